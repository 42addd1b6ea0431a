// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Input validation constants
const (
	// DefaultMaxNameLength is the PAN-OS limit for most object names
	DefaultMaxNameLength = 63

	// MaxPayloadSize is the maximum size of a write payload in bytes (10MB)
	MaxPayloadSize = 10 * 1024 * 1024
)

// validateName checks an object name before it is put into a URL or an
// xpath.
//
// Checks:
//   - Name length does not exceed the kind's limit
//   - Name is valid UTF-8
//   - Name has no null bytes or other control characters
func (k *Kind) validateName(name string) error {
	limit := k.MaxNameLength
	if limit <= 0 {
		limit = DefaultMaxNameLength
	}
	if n := utf8.RuneCountInString(name); n > limit {
		return newError(KindValidation, "resolve", "name %q exceeds maximum length of %d characters (got %d)",
			truncate(name), limit, n)
	}
	if !utf8.ValidString(name) {
		return newError(KindValidation, "resolve", "name %q is not valid UTF-8", truncate(name))
	}
	for i, r := range name {
		if unicode.IsControl(r) {
			return newError(KindValidation, "resolve", "name contains control character %U at position %d", r, i)
		}
	}
	return nil
}

// validatePayload checks a write payload before it is sent
func validatePayload(req Request) error {
	if len(req.Payload) > MaxPayloadSize {
		return newError(KindValidation, "request", "payload size exceeds maximum of %d bytes (got %d bytes)",
			MaxPayloadSize, len(req.Payload))
	}
	if req.Transport == TransportREST && req.Payload != "" && !gjson.Valid(req.Payload) {
		return newError(KindValidation, "request", "payload is not valid JSON")
	}
	return nil
}

// truncate shortens a value for error messages
func truncate(s string) string {
	return truncateAt(s, 100)
}

// truncateAt cuts s to at most n bytes without splitting a UTF-8 sequence
func truncateAt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for i := 0; i < utf8.UTFMax-1 && cut > 0 && !utf8.RuneStart(s[cut]); i++ {
		cut--
	}
	return s[:cut] + "..."
}
