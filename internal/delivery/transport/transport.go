// Package transport builds the pooled HTTP client the delivery loop sends
// egress requests through. Field names and defaults are adapted from the
// teacher's httpclient module configuration, scoped down to what delivery
// needs: connection pooling and a per-request timeout, no verbose
// request/response logging.
package transport

import (
	"net"
	"net/http"
	"time"
)

// Config configures the pooled client. Zero values are replaced with the
// defaults below by New.
type Config struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	RequestTimeout      time.Duration
}

const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultRequestTimeout      = 30 * time.Second
)

// New returns an *http.Client tuned for repeated posts to a single egress
// host (the chat platform's webhook endpoint), applying defaults for any
// zero-valued field in cfg.
func New(cfg Config) *http.Client {
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = defaultIdleConnTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
	}
}
