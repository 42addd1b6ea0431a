// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Body builds a REST JSON payload step by step with sjson paths.
//
// Each step returns a new Body. The first failing step is remembered and
// turns every later step into a no-op; String and Err report it.
//
//	body := panos.Body{}.
//	    Set("entry.ip-netmask", "10.0.0.0/24").
//	    Set("entry.tag.member", []string{"dmz"})
//	payload, err := body.String()
//
// PAN-OS attribute keys start with '@', so paths naming them must go
// through sjsonPath; the engine does this when it encodes records.
type Body struct {
	str string
	err error
}

// step applies one sjson edit unless an earlier step failed
func (b Body) step(op, path string, edit func(string) (string, error)) Body {
	if b.err != nil {
		return b
	}
	out, err := edit(b.str)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("%s(%q): %w", op, path, err)}
	}
	return Body{str: out}
}

// Set stores value (encoded by sjson) at path
func (b Body) Set(path string, value any) Body {
	return b.step("Set", path, func(s string) (string, error) {
		return sjson.Set(s, path, value)
	})
}

// SetRaw stores already encoded JSON at path, e.g. a preserved extra
func (b Body) SetRaw(path, raw string) Body {
	return b.step("SetRaw", path, func(s string) (string, error) {
		return sjson.SetRaw(s, path, raw)
	})
}

// Delete removes path
func (b Body) Delete(path string) Body {
	return b.step("Delete", path, func(s string) (string, error) {
		return sjson.Delete(s, path)
	})
}

// String returns the payload and the first error
func (b Body) String() (string, error) {
	return b.str, b.err
}

// Err returns the first error
func (b Body) Err() error {
	return b.err
}

// Res returns the payload, or "" after an error
func (b Body) Res() string {
	if b.err != nil {
		return ""
	}
	return b.str
}

// Get reads path from the payload with gjson
func (b Body) Get(path string) gjson.Result {
	return gjson.Get(b.Res(), path)
}
