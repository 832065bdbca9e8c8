package httpapi

import "errors"

// Ingress error taxonomy. statusCode below translates each sentinel to its
// response code, matching the teacher's httpserver error-to-status mappings.
var (
	ErrMalformedEvent  = errors.New("httpapi: malformed event body")
	ErrUnsupportedKind = errors.New("httpapi: unsupported event kind")
	ErrBadUserAgent    = errors.New("httpapi: missing or unrecognized user agent")
	ErrAuthMissing     = errors.New("httpapi: authorization header missing")
	ErrAuthBadFormat   = errors.New("httpapi: authorization header is not basic auth")
	ErrAuthMismatch    = errors.New("httpapi: credentials do not match")
)

// statusCode maps a taxonomy sentinel to its HTTP response code.
func statusCode(err error) int {
	switch {
	case errors.Is(err, ErrMalformedEvent), errors.Is(err, ErrUnsupportedKind), errors.Is(err, ErrBadUserAgent), errors.Is(err, ErrAuthBadFormat):
		return 400
	case errors.Is(err, ErrAuthMissing), errors.Is(err, ErrAuthMismatch):
		return 401
	default:
		return 500
	}
}
