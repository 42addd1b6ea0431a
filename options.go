// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"net/http"
	"time"
)

// Session configuration options using the functional options pattern

// APIKey sets a pre-generated API key; no keygen request is sent
func APIKey(key string) func(*HTTPSession) {
	return func(s *HTTPSession) {
		s.apiKey = key
	}
}

// Username sets the administrator used to generate an API key
func Username(username string) func(*HTTPSession) {
	return func(s *HTTPSession) {
		s.username = username
	}
}

// Password sets the password used to generate an API key
func Password(password string) func(*HTTPSession) {
	return func(s *HTTPSession) {
		s.password = password
	}
}

// Port sets the HTTPS port (default: 443)
func Port(port int) func(*HTTPSession) {
	return func(s *HTTPSession) {
		s.Port = port
	}
}

// VerifyCertificate enables or disables TLS certificate verification (default: true)
//
// WARNING: Disabling certificate verification makes the session vulnerable
// to Man-in-the-Middle attacks. Firewalls commonly ship self-signed
// certificates; prefer installing a trusted certificate over disabling this.
//
// Example:
//
//	session, _ := panos.NewHTTPSession("fw1.example.com",
//	    panos.APIKey(key),
//	    panos.VerifyCertificate(false))  // Insecure, use only for testing
func VerifyCertificate(verify bool) func(*HTTPSession) {
	return func(s *HTTPSession) {
		s.VerifyCertificate = verify
	}
}

// RequestTimeout sets the per-request timeout (default: 30s)
func RequestTimeout(duration time.Duration) func(*HTTPSession) {
	return func(s *HTTPSession) {
		s.RequestTimeout = duration
	}
}

// WithHTTPClient replaces the HTTP client. VerifyCertificate has no effect
// on a caller-supplied client.
func WithHTTPClient(client *http.Client) func(*HTTPSession) {
	return func(s *HTTPSession) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithDevice sets the device kind and version, skipping discovery in Open
//
// Example:
//
//	session, _ := panos.NewHTTPSession("panorama.example.com",
//	    panos.APIKey(key),
//	    panos.WithDevice(panos.DeviceContext{
//	        Kind:    panos.DevicePanorama,
//	        Version: panos.MustParseVersion("11.1.2"),
//	        Scope:   []panos.ScopeSegment{panos.DeviceGroup("branch")},
//	    }))
func WithDevice(dev DeviceContext) func(*HTTPSession) {
	return func(s *HTTPSession) {
		s.device = dev.WithScope(dev.Scope...)
		s.deviceKnown = true
	}
}

// WithScope sets the default scope of the session.
//
// Without it a firewall defaults to vsys1 and Panorama to shared.
func WithScope(scope ...ScopeSegment) func(*HTTPSession) {
	return func(s *HTTPSession) {
		s.scope = append([]ScopeSegment{}, scope...)
		if s.deviceKnown {
			s.device.Scope = append([]ScopeSegment(nil), scope...)
		}
	}
}

// WithLogger configures a custom logger for the session
//
// By default, the session uses NoOpLogger which discards all log messages.
// Objects bound to the session log through the same logger.
//
// Payloads logged at Debug level are redacted: password, phash, secret, key
// and pre-shared-key values are replaced in both JSON and XML.
//
// Example (DefaultLogger):
//
//	logger := panos.NewDefaultLogger(panos.LogLevelInfo)
//	session, _ := panos.NewHTTPSession("fw1.example.com",
//	    panos.APIKey(key),
//	    panos.WithLogger(logger))
//
// Example (zap):
//
//	zl, _ := zap.NewDevelopment()
//	session, _ := panos.NewHTTPSession("fw1.example.com",
//	    panos.APIKey(key),
//	    panos.WithLogger(panos.NewZapLogger(zl)))
func WithLogger(logger Logger) func(*HTTPSession) {
	return func(s *HTTPSession) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPrettyPrintLogs enables/disables JSON pretty printing in logs
//
// Default: disabled (false)
func WithPrettyPrintLogs(enabled bool) func(*HTTPSession) {
	return func(s *HTTPSession) {
		s.prettyPrintLogs = enabled
	}
}

// Request modifiers for individual requests

// Timeout returns a request modifier that overrides the session's request
// timeout for one request.
//
// Example:
//
//	// Some operational commands take longer than the default
//	res, err := session.Do(ctx, panos.OpCommand(cmd, panos.Timeout(2*time.Minute)))
func Timeout(duration time.Duration) func(*Request) {
	return func(req *Request) {
		req.Timeout = duration
	}
}
