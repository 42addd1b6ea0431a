// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import "fmt"

// Transport selects which PAN-OS management API carries a request
type Transport int

const (
	// TransportREST uses the /restapi JSON API
	TransportREST Transport = iota + 1

	// TransportXML uses the /api XML API
	TransportXML
)

// String returns the string representation of a Transport
func (t Transport) String() string {
	switch t {
	case TransportREST:
		return "rest"
	case TransportXML:
		return "xml"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// ValidateTransport checks that t is one of the supported transports
func ValidateTransport(t Transport) error {
	if t == TransportREST || t == TransportXML {
		return nil
	}
	return fmt.Errorf("invalid transport: %s (valid values: rest, xml)", t)
}
