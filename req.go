// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"net/url"
	"time"
)

// Operation is the engine-level operation a request is built for
type Operation string

const (
	// OpRead reads one entity
	OpRead Operation = "read"

	// OpList reads every entity of a collection
	OpList Operation = "list"

	// OpCreate creates one entity
	OpCreate Operation = "create"

	// OpUpdate merges changed fields into an existing entity
	OpUpdate Operation = "update"

	// OpReplace replaces an existing entity with a full representation
	OpReplace Operation = "replace"

	// OpDelete removes one entity
	OpDelete Operation = "delete"
)

// XML API config actions
const (
	ActionGet    = "get"
	ActionShow   = "show"
	ActionSet    = "set"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// XML API request types
const (
	XMLTypeConfig = "config"
	XMLTypeOp     = "op"
	XMLTypeCommit = "commit"
	XMLTypeKeygen = "keygen"
)

// Request describes one call against the device.
//
// It is produced per call by the resolver (or the commit helpers) and is
// never retained.
//
// For TransportREST, Method is the HTTP method, Path the resource path below
// the host and Params the query string. For TransportXML, Method is the config
// action (get, show, set, edit, delete), Path the xpath and Payload the
// element; Params carries any other XML API parameters such as type and cmd.
type Request struct {
	Transport Transport
	Method    string
	Path      string
	Params    url.Values
	Payload   string

	// Timeout overrides the session's request timeout when set
	Timeout time.Duration
}

// XMLType returns the XML API request type, defaulting to config
func (r Request) XMLType() string {
	if t := r.Params.Get("type"); t != "" {
		return t
	}
	return XMLTypeConfig
}

// OpCommand builds an XML API operational command request.
//
// Example:
//
//	req := panos.OpCommand("<show><system><info></info></system></show>")
//	res, err := session.Do(ctx, req)
func OpCommand(cmd string, mods ...func(*Request)) Request {
	req := Request{
		Transport: TransportXML,
		Params:    url.Values{"type": {XMLTypeOp}, "cmd": {cmd}},
	}
	for _, mod := range mods {
		mod(&req)
	}
	return req
}

// ShowConfig builds an XML API request reading the active (running)
// configuration at xpath.
func ShowConfig(xpath string, mods ...func(*Request)) Request {
	req := Request{
		Transport: TransportXML,
		Method:    ActionShow,
		Path:      xpath,
	}
	for _, mod := range mods {
		mod(&req)
	}
	return req
}
