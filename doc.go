// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package panos synchronizes configuration objects with PAN-OS firewalls and
// Panorama over the REST API and the XML API.
//
// An entity kind (address object, security rule, template, ...) is declared
// once as data: a field schema, where the collection lives on each API and a
// version-gated transport table. Objects of that kind are then read, edited
// locally and written back without hand-building REST paths or XML payloads.
//
// # Quick Start
//
//	session, err := panos.NewHTTPSession("fw1.example.com",
//	    panos.Username("admin"),
//	    panos.Password("secret"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx := context.Background()
//	if err := session.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	address := &panos.Kind{
//	    Name:       "address",
//	    Collection: "Objects/Addresses",
//	    XMLPath:    "address",
//	    Scopes:     []panos.ScopeType{panos.ScopeVsys, panos.ScopeShared, panos.ScopeDeviceGroup},
//	    Schema: panos.MustSchema(
//	        panos.FieldDescriptor{Name: "ip-netmask", Type: panos.ValueString},
//	        panos.FieldDescriptor{Name: "description", Type: panos.ValueString},
//	        panos.FieldDescriptor{Name: "tag", Type: panos.ValueList, Unordered: true},
//	    ),
//	    Rules: []panos.TransportRule{
//	        {Transport: panos.TransportXML},
//	        {Since: panos.MustParseVersion("10.0"), Transport: panos.TransportREST, Update: panos.UpdatePartial},
//	    },
//	}
//
//	obj := panos.NewObject(session, address, "web1")
//	_ = obj.Set("ip-netmask", "10.0.0.10/32")
//	if err := obj.Create(ctx); errors.Is(err, panos.ErrConflict) {
//	    // already there: refresh and update instead
//	}
//
// # Object Lifecycle
//
// An Object starts unbound. Refresh or Create give it a baseline (synced).
// Set marks fields; the object is dirty while any working value differs from
// the baseline. Update sends the changes and is a no-op without any. Delete
// makes the object terminal.
//
// Refresh overwrites local edits by default. Use WithRefreshPolicy(RefreshMerge)
// or RefreshWith to keep them.
//
// # Error Handling
//
// Every failure is an *Error with a Kind. Branch with errors.Is:
//
//	err := obj.Refresh(ctx)
//	switch {
//	case errors.Is(err, panos.ErrNotFound):
//	    // create it
//	case errors.Is(err, panos.ErrTransport):
//	    // network problem; the device state is unknown
//	}
//
// Nothing is retried automatically. A write that failed with a transport
// error may have been applied; refresh before trying again.
//
// # Commit
//
// Writes go to the candidate configuration. Commit (or CommitAll on
// Panorama) returns a Job that the caller polls or waits on with a context
// deadline of its choosing.
//
// # Thread Safety
//
// HTTPSession is safe for concurrent use. Objects are not. The engine does
// not serialize writes from different goroutines against one device.
package panos
