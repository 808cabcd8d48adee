// Package httpclient builds the http.Client shared by every upstream call.
package httpclient

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"time"
)

// DefaultTimeout bounds a single upstream round trip. Calls are made while a user
// waits, so this stays in the tens of seconds.
const DefaultTimeout = 30 * time.Second

// Config holds the timeouts callers may tune.
type Config struct {
	// Timeout is the overall request limit, body read included.
	Timeout time.Duration
	// ResponseHeaderTimeout limits the wait for the first response byte.
	ResponseHeaderTimeout time.Duration
}

// FromEnv reads HTTP_TIMEOUT and HTTP_RESPONSE_HEADER_TIMEOUT, each either integer
// seconds or a Go duration, falling back to DefaultTimeout.
func FromEnv() Config {
	return Config{
		Timeout:               envDuration("HTTP_TIMEOUT", DefaultTimeout),
		ResponseHeaderTimeout: envDuration("HTTP_RESPONSE_HEADER_TIMEOUT", DefaultTimeout),
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	return fallback
}

// New creates a client with a dedicated transport. Zero timeouts fall back to DefaultTimeout.
func New(cfg Config) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ResponseHeaderTimeout <= 0 {
		cfg.ResponseHeaderTimeout = cfg.Timeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}

// NewDefaultHTTPClient is New(FromEnv()).
func NewDefaultHTTPClient() *http.Client {
	return New(FromEnv())
}
