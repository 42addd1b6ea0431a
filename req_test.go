// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"net/url"
	"testing"
	"time"
)

func TestTimeout(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     time.Duration
	}{
		{
			name:     "30 second timeout",
			duration: 30 * time.Second,
			want:     30 * time.Second,
		},
		{
			name:     "2 minute timeout",
			duration: 2 * time.Minute,
			want:     2 * time.Minute,
		},
		{
			name:     "zero timeout",
			duration: 0,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{}
			modifier := Timeout(tt.duration)
			modifier(req)

			if req.Timeout != tt.want {
				t.Errorf("Timeout() timeout = %v, want %v", req.Timeout, tt.want)
			}
		})
	}
}

func TestXMLType(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
		want   string
	}{
		{"default", nil, XMLTypeConfig},
		{"op", url.Values{"type": {XMLTypeOp}}, XMLTypeOp},
		{"commit", url.Values{"type": {XMLTypeCommit}}, XMLTypeCommit},
		{"empty type", url.Values{"type": {""}}, XMLTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Transport: TransportXML, Params: tt.params}
			if got := req.XMLType(); got != tt.want {
				t.Errorf("XMLType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpCommand(t *testing.T) {
	cmd := "<show><system><info></info></system></show>"
	req := OpCommand(cmd, Timeout(5*time.Second))

	if req.Transport != TransportXML {
		t.Errorf("Transport = %s, want xml", req.Transport)
	}
	if req.XMLType() != XMLTypeOp {
		t.Errorf("XMLType() = %q, want op", req.XMLType())
	}
	if req.Params.Get("cmd") != cmd {
		t.Errorf("cmd = %q, want %q", req.Params.Get("cmd"), cmd)
	}
	if req.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", req.Timeout)
	}
}

func TestShowConfig(t *testing.T) {
	xpath := "/config/devices/entry[@name='localhost.localdomain']/vsys/entry[@name='vsys1']/address"
	req := ShowConfig(xpath)

	if req.Method != ActionShow || req.Path != xpath || req.XMLType() != XMLTypeConfig {
		t.Errorf("got method=%q path=%q type=%q", req.Method, req.Path, req.XMLType())
	}
}

func TestMultipleModifiers(t *testing.T) {
	req := ShowConfig("/config/shared/address",
		Timeout(10*time.Second),
		func(r *Request) { r.Params = url.Values{"target": {"0123456789"}} },
	)

	if req.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", req.Timeout)
	}
	if req.Params.Get("target") != "0123456789" {
		t.Errorf("target = %q", req.Params.Get("target"))
	}
}

func TestModifierOverwrite(t *testing.T) {
	req := OpCommand("<show><jobs><all/></jobs></show>", Timeout(10*time.Second), Timeout(20*time.Second))
	if req.Timeout != 20*time.Second {
		t.Errorf("Timeout = %v, want the last modifier to win", req.Timeout)
	}
}
