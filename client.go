// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Default session configuration values
const (
	DefaultPort              = 443
	DefaultRequestTimeout    = 30 * time.Second
	DefaultVerifyCertificate = true
	DefaultPrettyPrintLogs   = false
)

// Security limits for payload logging
const (
	MaxPayloadSizeForLogging = 1 * 1024 * 1024 // 1MB limit to prevent ReDoS attacks
	MaxSensitiveFields       = 1000            // Max redaction operations to prevent DoS
)

// Logging message constants
const (
	PayloadTooLargeMessage     = "[PAYLOAD TOO LARGE FOR LOGGING]"
	PayloadTooManySensitiveMsg = "[PAYLOAD CONTAINS TOO MANY SENSITIVE FIELDS]"
)

// defaultRedactionPatterns match secrets in JSON and XML payloads
var defaultRedactionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"(password|phash|secret|key|pre-shared-key|auth-password|priv-password)"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`<(password|phash|secret|key|pre-shared-key|auth-password|priv-password)>[^<]*</(password|phash|secret|key|pre-shared-key|auth-password|priv-password)>`),
}

// sensitiveMarkers are counted before redaction to bound regex work
var sensitiveMarkers = []string{`"password"`, `"secret"`, `"key"`, `<password>`, `<key>`, `<secret>`, `<phash>`}

// HTTPSession is a Session speaking HTTPS to one PAN-OS firewall or Panorama.
//
// Credentials are exchanged for an API key on first use (or explicitly via
// Open) unless an API key is configured. The device kind and software version
// are discovered by Open unless WithDevice supplies them.
//
// An HTTPSession is safe for concurrent use. It never retries a request.
type HTTPSession struct {
	mu sync.RWMutex

	// Connection parameters
	Host     string
	Port     int
	apiKey   string // unexported for security
	username string // unexported for security
	password string // unexported for security

	VerifyCertificate bool
	RequestTimeout    time.Duration

	httpClient *http.Client

	device      DeviceContext
	deviceKnown bool
	scope       []ScopeSegment

	// Logging configuration
	logger            Logger
	prettyPrintLogs   bool
	redactionPatterns []*regexp.Regexp
}

// SystemInfo is the subset of "show system info" the session uses
type SystemInfo struct {
	Hostname   string
	Model      string
	Serial     string
	SWVersion  string
	SystemMode string
}

// NewHTTPSession creates a session for host with the given options.
//
// No request is sent; call Open to authenticate and discover the device.
//
// Example:
//
//	session, err := panos.NewHTTPSession("fw1.example.com",
//	    panos.Username("admin"),
//	    panos.Password("secret"),
//	    panos.VerifyCertificate(false),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := session.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
func NewHTTPSession(host string, opts ...func(*HTTPSession)) (*HTTPSession, error) {
	s := &HTTPSession{
		Host:              host,
		Port:              DefaultPort,
		VerifyCertificate: DefaultVerifyCertificate,
		RequestTimeout:    DefaultRequestTimeout,
		logger:            &NoOpLogger{},
		prettyPrintLogs:   DefaultPrettyPrintLogs,
		redactionPatterns: defaultRedactionPatterns,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.validateConfig(); err != nil {
		return nil, err
	}

	if s.httpClient == nil {
		s.httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				//nolint:gosec // G402: verification is on unless explicitly disabled
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: !s.VerifyCertificate},
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		}
	}

	s.logger.Info(context.Background(), "PAN-OS session created",
		"host", s.Host,
		"port", s.Port,
		"device_known", s.deviceKnown)

	return s, nil
}

// validateConfig checks the session configuration
func (s *HTTPSession) validateConfig() error {
	if strings.TrimSpace(s.Host) == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if strings.Contains(s.Host, "/") {
		return fmt.Errorf("host must not contain a scheme or path: %s", s.Host)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", s.Port)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got: %v", s.RequestTimeout)
	}
	if s.apiKey == "" && (s.username == "") != (s.password == "") {
		return fmt.Errorf("username and password must be set together")
	}
	if s.deviceKnown {
		if s.device.Kind != DeviceFirewall && s.device.Kind != DevicePanorama {
			return fmt.Errorf("invalid device kind: %s", s.device.Kind)
		}
		if s.device.Version.IsZero() {
			return fmt.Errorf("device version cannot be empty")
		}
	}

	if !s.VerifyCertificate {
		s.logger.Warn(context.Background(), "TLS certificate verification disabled",
			"host", s.Host,
			"security_risk", "Man-in-the-Middle attacks possible",
			"recommendation", "Use only in testing environments")
	}
	if !s.HasCredentials() {
		s.logger.Warn(context.Background(), "No credentials configured",
			"host", s.Host,
			"message", "device will reject requests")
	}
	return nil
}

// HasCredentials reports whether an API key or username/password is set
func (s *HTTPSession) HasCredentials() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey != "" || (s.username != "" && s.password != "")
}

// Logger returns the session logger; objects bound to the session log
// through it.
func (s *HTTPSession) Logger() Logger {
	return s.logger
}

// Device returns the discovered device context with the configured scope.
//
// The zero DeviceContext is returned before Open; resolving any object
// against it fails with KindScope.
func (s *HTTPSession) Device() DeviceContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.deviceKnown {
		return DeviceContext{}
	}
	return s.device.WithScope(s.device.Scope...)
}

// Open authenticates and discovers the device kind and software version.
//
// Open is idempotent; once the device is known it only ensures an API key.
func (s *HTTPSession) Open(ctx context.Context) error {
	if err := s.ensureKey(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	known := s.deviceKnown
	s.mu.RUnlock()
	if known {
		return nil
	}

	info, err := s.SystemInfo(ctx)
	if err != nil {
		return err
	}
	version, err := ParseVersion(info.SWVersion)
	if err != nil {
		return &Error{Kind: KindDevice, Op: "open", Message: "unsupported software version", Err: err}
	}

	dev := DeviceContext{Kind: DeviceFirewall, Version: version, Scope: []ScopeSegment{Vsys("vsys1")}}
	if isPanoramaModel(info) {
		dev.Kind = DevicePanorama
		dev.Scope = []ScopeSegment{Shared()}
	}

	s.mu.Lock()
	if s.scope != nil {
		dev.Scope = append([]ScopeSegment(nil), s.scope...)
	}
	s.device = dev
	s.deviceKnown = true
	s.mu.Unlock()

	s.logger.Info(ctx, "PAN-OS device discovered",
		"host", s.Host,
		"hostname", info.Hostname,
		"model", info.Model,
		"kind", dev.Kind.String(),
		"version", version.String())
	return nil
}

func isPanoramaModel(info SystemInfo) bool {
	if strings.EqualFold(info.SystemMode, "panorama") || strings.EqualFold(info.SystemMode, "management-only") {
		return true
	}
	return strings.EqualFold(info.Model, "panorama") || strings.HasPrefix(info.Model, "M-")
}

// SystemInfo runs "show system info"
func (s *HTTPSession) SystemInfo(ctx context.Context) (SystemInfo, error) {
	res, err := s.Do(ctx, OpCommand("<show><system><info></info></system></show>"))
	if err != nil {
		return SystemInfo{}, withOp(err, "open", "")
	}
	root, err := CheckXML("open", res)
	if err != nil {
		return SystemInfo{}, err
	}
	sys := root.FindElement("./result/system")
	if sys == nil {
		return SystemInfo{}, newError(KindDevice, "open", "system info missing from reply")
	}
	return SystemInfo{
		Hostname:   childText(sys, "hostname"),
		Model:      childText(sys, "model"),
		Serial:     childText(sys, "serial"),
		SWVersion:  childText(sys, "sw-version"),
		SystemMode: childText(sys, "system-mode"),
	}, nil
}

// ensureKey exchanges username/password for an API key once
func (s *HTTPSession) ensureKey(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.apiKey != "" {
		return nil
	}
	if s.username == "" || s.password == "" {
		return newError(KindAuth, "keygen", "no API key or credentials configured")
	}

	s.logger.Debug(ctx, "Generating API key", "host", s.Host, "user", s.username)

	form := url.Values{"type": {XMLTypeKeygen}, "user": {s.username}, "password": {s.password}}
	res, err := s.send(ctx, http.MethodPost, s.baseURL()+"/api/", "application/x-www-form-urlencoded",
		form.Encode(), "", s.RequestTimeout)
	if err != nil {
		return withOp(err, "keygen", "")
	}
	res.Transport = TransportXML
	root, err := CheckXML("keygen", res)
	if err != nil {
		return err
	}
	key := root.FindElement("./result/key")
	if key == nil || strings.TrimSpace(key.Text()) == "" {
		return newError(KindAuth, "keygen", "device returned no API key")
	}
	s.apiKey = strings.TrimSpace(key.Text())

	s.logger.Info(ctx, "API key generated", "host", s.Host)
	return nil
}

// Do sends one request. It never retries.
//
// Network failures and timeouts are returned as KindTransport errors and
// HTTP 401/403 replies as KindAuth. Any other reply is returned as is for
// the caller to interpret.
func (s *HTTPSession) Do(ctx context.Context, req Request) (Response, error) {
	if err := ValidateTransport(req.Transport); err != nil {
		return Response{}, newError(KindValidation, "request", "%v", err)
	}
	if err := s.ensureKey(ctx); err != nil {
		return Response{}, err
	}
	s.mu.RLock()
	key := s.apiKey
	s.mu.RUnlock()

	timeout := s.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	var (
		method, target, contentType, body string
	)
	if req.Transport == TransportREST {
		method = req.Method
		target = s.baseURL() + req.Path
		if len(req.Params) > 0 {
			target += "?" + req.Params.Encode()
		}
		if req.Payload != "" {
			contentType, body = "application/json", req.Payload
		}
	} else {
		method, target = http.MethodPost, s.baseURL()+"/api/"
		contentType, body = "application/x-www-form-urlencoded", xmlForm(req).Encode()
	}

	s.logger.Debug(ctx, "PAN-OS request",
		"transport", req.Transport.String(),
		"method", method,
		"action", req.Method,
		"path", req.Path,
		"payload", s.preparePayloadForLogging(req.Payload))

	res, err := s.send(ctx, method, target, contentType, body, key, timeout)
	if err != nil {
		s.logger.Error(ctx, "PAN-OS request failed",
			"transport", req.Transport.String(),
			"path", req.Path,
			"error", err.Error())
		return Response{}, err
	}
	res.Transport = req.Transport

	s.logger.Debug(ctx, "PAN-OS response",
		"status", res.StatusCode,
		"body", s.preparePayloadForLogging(string(res.Body)))

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return res, &Error{
			Kind:        KindAuth,
			Op:          "request",
			Code:        res.StatusCode,
			Message:     "device rejected the API key",
			InternalMsg: string(res.Body),
		}
	}
	return res, nil
}

// xmlForm builds the XML API form parameters of req
func xmlForm(req Request) url.Values {
	form := url.Values{}
	for k, v := range req.Params {
		form[k] = append([]string(nil), v...)
	}
	form.Set("type", req.XMLType())
	if req.Method != "" {
		form.Set("action", req.Method)
	}
	if req.Path != "" {
		form.Set("xpath", req.Path)
	}
	if req.Payload != "" {
		form.Set("element", req.Payload)
	}
	return form
}

// send performs the HTTP exchange
func (s *HTTPSession) send(ctx context.Context, method, target, contentType, body, key string, timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return Response{}, &Error{Kind: KindValidation, Op: "request", Message: "invalid request", Err: err}
	}
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	hreq.Header.Set("Accept", "application/json, application/xml")
	if key != "" {
		hreq.Header.Set("X-PAN-KEY", key)
	}

	hres, err := s.httpClient.Do(hreq)
	if err != nil {
		return Response{}, transportError(ctx, err)
	}
	defer hres.Body.Close()

	data, err := io.ReadAll(hres.Body)
	if err != nil {
		return Response{}, transportError(ctx, err)
	}
	return Response{StatusCode: hres.StatusCode, Body: data}, nil
}

// transportError classifies a failed HTTP exchange
func transportError(ctx context.Context, err error) *Error {
	msg := "connection failed"
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		msg = "request timed out"
	case errors.Is(ctx.Err(), context.Canceled):
		msg = "request canceled"
	}
	return &Error{Kind: KindTransport, Op: "request", Message: msg, InternalMsg: err.Error(), Err: err}
}

func (s *HTTPSession) baseURL() string {
	host := s.Host
	if s.Port != DefaultPort {
		host = net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	}
	return "https://" + host
}

// preparePayloadForLogging redacts secrets and formats a payload for logging
//
// Size and sensitive-field limits are checked before any regex runs. JSON
// payloads are indented when pretty printing is enabled.
func (s *HTTPSession) preparePayloadForLogging(payload string) string {
	if payload == "" {
		return ""
	}
	if len(payload) > MaxPayloadSizeForLogging {
		return PayloadTooLargeMessage
	}

	count := 0
	for _, m := range sensitiveMarkers {
		count += strings.Count(payload, m)
	}
	if count > MaxSensitiveFields {
		s.logger.Warn(context.Background(), "Too many sensitive fields detected",
			"count", count,
			"max", MaxSensitiveFields)
		return PayloadTooManySensitiveMsg
	}

	redacted := s.redactSensitiveData(payload)

	if trimmed := strings.TrimSpace(redacted); s.prettyPrintLogs &&
		(strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(redacted), "", "  "); err == nil {
			return buf.String()
		}
	}
	return redacted
}

// redactSensitiveData replaces secret values in JSON and XML with [REDACTED]
func (s *HTTPSession) redactSensitiveData(payload string) string {
	result := payload
	for _, p := range s.redactionPatterns {
		result = p.ReplaceAllStringFunc(result, redactMatch)
	}
	return result
}

// redactMatch keeps the key or tags of a match and hides the value
func redactMatch(m string) string {
	if strings.HasPrefix(m, "<") {
		open := m[:strings.Index(m, ">")+1]
		closing := m[strings.LastIndex(m, "</"):]
		return open + "[REDACTED]" + closing
	}
	return m[:strings.Index(m, ":")+1] + `"[REDACTED]"`
}
