// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"context"
	"fmt"
	"strings"
)

// Session is the authenticated connection to one device.
//
// Implementations own transport, authentication and device discovery. Do
// issues exactly one request and never retries. Transport failures must be
// returned as *Error with KindTransport and rejected credentials as KindAuth;
// any other device reply is returned as a Response for the engine to
// interpret.
//
// The engine does not serialize access to a Session. Callers sharing one
// Session between goroutines are responsible for ordering their writes.
type Session interface {
	Do(ctx context.Context, req Request) (Response, error)
	Device() DeviceContext
}

// DeviceKind distinguishes a firewall from a Panorama manager
type DeviceKind int

const (
	// DeviceFirewall is a standalone or managed next-generation firewall
	DeviceFirewall DeviceKind = iota + 1

	// DevicePanorama is the centralized manager
	DevicePanorama
)

// String returns the string representation of a DeviceKind
func (k DeviceKind) String() string {
	switch k {
	case DeviceFirewall:
		return "firewall"
	case DevicePanorama:
		return "panorama"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

// ScopeType names a scope segment
type ScopeType string

const (
	ScopeShared        ScopeType = "shared"
	ScopeVsys          ScopeType = "vsys"
	ScopeDeviceGroup   ScopeType = "device-group"
	ScopeTemplate      ScopeType = "template"
	ScopeTemplateStack ScopeType = "template-stack"
)

// ScopeSegment narrows where a configuration object lives
type ScopeSegment struct {
	Type ScopeType
	Name string
}

// Shared returns the shared scope segment
func Shared() ScopeSegment { return ScopeSegment{Type: ScopeShared} }

// Vsys returns a vsys scope segment
func Vsys(name string) ScopeSegment { return ScopeSegment{Type: ScopeVsys, Name: name} }

// DeviceGroup returns a device-group scope segment
func DeviceGroup(name string) ScopeSegment { return ScopeSegment{Type: ScopeDeviceGroup, Name: name} }

// Template returns a template scope segment
func Template(name string) ScopeSegment { return ScopeSegment{Type: ScopeTemplate, Name: name} }

// TemplateStack returns a template-stack scope segment
func TemplateStack(name string) ScopeSegment {
	return ScopeSegment{Type: ScopeTemplateStack, Name: name}
}

func (s ScopeSegment) String() string {
	if s.Name == "" {
		return string(s.Type)
	}
	return string(s.Type) + "=" + s.Name
}

// DeviceContext identifies the target device and the default scope.
//
// It is a value: WithScope returns a modified copy and never changes the
// receiver, so a context handed out by a Session stays immutable.
type DeviceContext struct {
	Kind    DeviceKind
	Scope   []ScopeSegment
	Version Version
}

// WithScope returns a copy of the context using the given scope
func (d DeviceContext) WithScope(scope ...ScopeSegment) DeviceContext {
	d.Scope = append([]ScopeSegment(nil), scope...)
	return d
}

// IsZero reports whether the device has not been discovered yet
func (d DeviceContext) IsZero() bool {
	return d.Kind == 0 && d.Version.IsZero() && len(d.Scope) == 0
}

// segment returns the named scope segment, if present
func (d DeviceContext) segment(t ScopeType) (ScopeSegment, bool) {
	for _, s := range d.Scope {
		if s.Type == t {
			return s, true
		}
	}
	return ScopeSegment{}, false
}

func (d DeviceContext) String() string {
	parts := make([]string, 0, len(d.Scope))
	for _, s := range d.Scope {
		parts = append(parts, s.String())
	}
	return fmt.Sprintf("%s %s [%s]", d.Kind, d.Version, strings.Join(parts, ","))
}
