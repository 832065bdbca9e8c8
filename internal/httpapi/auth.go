package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cbackas/hookbuffer/internal/config"
)

const sonarrUserAgentPrefix = "Sonarr/"

// checkUserAgent requires the producer's User-Agent to start with
// "Sonarr/", matching spec.md's producer-identity check.
func checkUserAgent(h http.Header) error {
	ua := h.Get("User-Agent")
	if !strings.HasPrefix(ua, sonarrUserAgentPrefix) {
		return ErrBadUserAgent
	}
	return nil
}

// checkBasicAuth is a pure function of the Authorization header against the
// currently configured Credentials, constant-time compared the way the
// teacher's auth.APIKeyAuthenticator compares API keys. An empty
// Credentials (both User and Pass unset) means auth is disabled entirely.
func checkBasicAuth(h http.Header, creds config.Credentials) error {
	if creds.User == "" && creds.Pass == "" {
		return nil
	}

	authz := h.Get("Authorization")
	if authz == "" {
		return ErrAuthMissing
	}

	req := &http.Request{Header: h}
	user, pass, ok := req.BasicAuth()
	if !ok {
		return ErrAuthBadFormat
	}

	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(creds.User)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(creds.Pass)) == 1
	if !userMatch || !passMatch {
		return ErrAuthMismatch
	}
	return nil
}
