// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panorama

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/netascode/go-panos"
)

const stackXML = `<response status="success"><result total-count="1" count="1"><entry name="edge-stack">` +
	`<templates><member>base</member></templates>` +
	`<devices><entry name="0001"><variable><entry name="$dns"><type><ip-netmask>8.8.8.8</ip-netmask></type></entry></variable></entry></devices>` +
	`</entry></result></response>`

func newStack() *TemplateStack {
	return NewTemplateStack(newFakeSession(pano, nil), "edge-stack")
}

// typed builds the stored form of a variable entry
func typed(name, typ string, value any) panos.Entry {
	return panos.Entry{Name: name, Record: panos.Record{Values: map[string]any{
		"type": panos.Record{Values: map[string]any{typ: value}},
	}}}
}

var entryOpts = cmp.Options{cmpopts.EquateEmpty()}

func TestTemplateStack_AddTemplate(t *testing.T) {
	ts := newStack()
	for _, name := range []string{"base", "branch"} {
		added, err := ts.AddTemplate(name)
		if err != nil || !added {
			t.Fatalf("AddTemplate(%q) = %v, %v", name, added, err)
		}
	}
	added, err := ts.AddTemplate("base")
	if err != nil || added {
		t.Errorf("AddTemplate(base) again = %v, %v, want false", added, err)
	}
	if diff := cmp.Diff([]string{"base", "branch"}, ts.Templates()); diff != "" {
		t.Errorf("Templates() mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateStack_DefineVariable(t *testing.T) {
	ts := newStack()

	if err := ts.DefineVariable("$mgmt", "ip-netmask", "10.0.0.1/24"); err != nil {
		t.Fatalf("DefineVariable() error = %v", err)
	}
	if err := ts.DefineVariable("$psk", VariablePreSharedKey, "s3cret"); err != nil {
		t.Fatalf("DefineVariable(psk) error = %v", err)
	}
	if err := ts.DefineVariable("$mgmt", "ip-netmask", "10.0.0.2/24"); err != nil {
		t.Fatalf("DefineVariable() redefinition error = %v", err)
	}

	want := []panos.Entry{
		typed("$mgmt", "ip-netmask", "10.0.0.2/24"),
		typed("$psk", VariablePreSharedKey, panos.Record{Values: map[string]any{"value": "s3cret"}}),
	}
	if diff := cmp.Diff(want, ts.Variables(), entryOpts); diff != "" {
		t.Errorf("Variables() mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateStack_DefineVariableErrors(t *testing.T) {
	tests := []struct {
		name  string
		typ   string
		value any
	}{
		{"unknown type", "mac-address", "00:11"},
		{"non-string value", "ip-netmask", 42},
		{"psk of wrong type", VariablePreSharedKey, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newStack()
			var err error
			if s, ok := tt.value.(string); ok {
				err = ts.DefineVariable("$v", tt.typ, s)
				requireKind(t, err, panos.KindValidation)
				return
			}
			_, err = variableEntry(ts.Object, "$v", tt.typ, tt.value)
			requireKind(t, err, panos.KindValidation)
		})
	}
}

func TestTemplateStack_VariableType(t *testing.T) {
	s := newFakeSession(pano9, func(req panos.Request) (panos.Response, error) {
		return xmlReply(stackXML)
	})
	ts := NewTemplateStack(s, "edge-stack")
	if err := ts.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if err := ts.DefineVariable("$mgmt", "hostname", "fw.example.com"); err != nil {
		t.Fatalf("DefineVariable() error = %v", err)
	}

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"$mgmt", "hostname", true},
		{"$dns", "ip-netmask", true},
		{"$nope", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ts.VariableType(tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("VariableType(%q) = %q, %v, want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTemplateStack_SetDeviceVariable(t *testing.T) {
	ts := newStack()
	if err := ts.DefineVariable("$mgmt", "ip-netmask", "10.0.0.1/24"); err != nil {
		t.Fatalf("DefineVariable() error = %v", err)
	}
	if err := ts.DefineVariable("$psk", VariablePreSharedKey, "default"); err != nil {
		t.Fatalf("DefineVariable() error = %v", err)
	}

	if err := ts.SetDeviceVariable("0001", "$mgmt", "10.1.1.1/24"); err != nil {
		t.Fatalf("SetDeviceVariable() error = %v", err)
	}
	if err := ts.SetDeviceVariable("0001", "$mgmt", "10.1.1.2/24"); err != nil {
		t.Fatalf("SetDeviceVariable() overwrite error = %v", err)
	}
	if err := ts.SetDeviceVariable("0001", "$psk", map[string]any{"key": "-AQ=="}); err != nil {
		t.Fatalf("SetDeviceVariable(psk) error = %v", err)
	}

	if diff := cmp.Diff([]string{"0001"}, ts.Devices()); diff != "" {
		t.Errorf("Devices() mismatch (-want +got):\n%s", diff)
	}
	devices := ts.GetEntries("devices")
	want := []panos.Entry{
		typed("$mgmt", "ip-netmask", "10.1.1.2/24"),
		typed("$psk", VariablePreSharedKey, panos.Record{Values: map[string]any{"key": "-AQ=="}}),
	}
	if diff := cmp.Diff(want, devices[0].Values["variable"], entryOpts); diff != "" {
		t.Errorf("device variables mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateStack_SetDeviceVariableErrors(t *testing.T) {
	ts := newStack()
	if err := ts.DefineVariable("$mgmt", "ip-netmask", "10.0.0.1/24"); err != nil {
		t.Fatalf("DefineVariable() error = %v", err)
	}

	requireKind(t, ts.SetDeviceVariable("0001", "$undefined", "x"), panos.KindValidation)
	requireKind(t, ts.SetDeviceVariable("0001", "$mgmt", 10), panos.KindValidation)
	if len(ts.Devices()) != 0 {
		t.Errorf("Devices() = %v after rejected assignments", ts.Devices())
	}
}

func TestTemplateStack_RemoveDeviceVariable(t *testing.T) {
	ts := newStack()
	if err := ts.DefineVariable("$a", "fqdn", "a.example.com"); err != nil {
		t.Fatal(err)
	}
	if err := ts.DefineVariable("$b", "fqdn", "b.example.com"); err != nil {
		t.Fatal(err)
	}
	for _, v := range []string{"$a", "$b"} {
		if err := ts.SetDeviceVariable("0001", v, "x.example.com"); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		serial, name string
		want         bool
	}{
		{"0001", "$a", true},
		{"0001", "$a", false},
		{"0002", "$b", false},
		{"0001", "$b", true},
	}
	for _, tt := range tests {
		removed, err := ts.RemoveDeviceVariable(tt.serial, tt.name)
		if err != nil {
			t.Fatalf("RemoveDeviceVariable(%s, %s) error = %v", tt.serial, tt.name, err)
		}
		if removed != tt.want {
			t.Errorf("RemoveDeviceVariable(%s, %s) = %v, want %v", tt.serial, tt.name, removed, tt.want)
		}
	}

	devices := ts.GetEntries("devices")
	if _, ok := devices[0].Values["variable"]; ok {
		t.Error("empty variable list kept on the device")
	}
}

func TestTemplateStack_Devices(t *testing.T) {
	ts := newStack()
	for _, serial := range []string{"0001", "0002"} {
		if added, err := ts.AddDevice(serial); err != nil || !added {
			t.Fatalf("AddDevice(%s) = %v, %v", serial, added, err)
		}
	}
	if added, _ := ts.AddDevice("0001"); added {
		t.Error("AddDevice() added a member twice")
	}

	if removed, _ := ts.RemoveDevice("0001"); !removed {
		t.Error("RemoveDevice(0001) = false")
	}
	if removed, _ := ts.RemoveDevice("0009"); removed {
		t.Error("RemoveDevice(0009) = true for a non-member")
	}
	if diff := cmp.Diff([]string{"0002"}, ts.Devices()); diff != "" {
		t.Errorf("Devices() mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateStack_VariablesFromDevices(t *testing.T) {
	const reply = `<response status="success"><result total-count="1" count="1"><entry name="edge-stack">` +
		`<devices><entry name="0001"><variable>` +
		`<entry name="$dns"><type><ip-netmask>8.8.8.8</ip-netmask></type></entry>` +
		`<entry name="$psk"><type><pre-shared-key><key>-AQ==x</key></pre-shared-key></type></entry>` +
		`</variable></entry>` +
		`<entry name="0002"><variable><entry name="$only-here"><type><fqdn>a.example.com</fqdn></type></entry></variable></entry>` +
		`</devices></entry></result></response>`
	s := newFakeSession(pano9, func(req panos.Request) (panos.Response, error) {
		return xmlReply(reply)
	})
	ts := NewTemplateStack(s, "edge-stack")
	ctx := context.Background()

	got, err := ts.VariablesFromDevices(ctx)
	if err != nil {
		t.Fatalf("VariablesFromDevices() error = %v", err)
	}
	want := []panos.Entry{
		typed("$dns", "ip-netmask", ""),
		typed("$psk", VariablePreSharedKey, panos.Record{}),
	}
	if diff := cmp.Diff(want, got, entryOpts); diff != "" {
		t.Errorf("VariablesFromDevices() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, ts.Variables(), entryOpts); diff != "" {
		t.Errorf("Variables() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"variable"}, ts.Changes()); diff != "" {
		t.Errorf("Changes() mismatch (-want +got):\n%s", diff)
	}
	if n := len(s.sent()); n != 1 {
		t.Errorf("sent %d requests, want one refresh", n)
	}

	if _, err := ts.VariablesFromDevices(ctx); err != nil {
		t.Fatalf("VariablesFromDevices() again error = %v", err)
	}
	if n := len(s.sent()); n != 1 {
		t.Errorf("sent %d requests, want no refresh with devices loaded", n)
	}
}

func TestTemplateStack_VariablesFromDevicesNone(t *testing.T) {
	s := newFakeSession(pano9, func(req panos.Request) (panos.Response, error) {
		return xmlReply(`<response status="success"><result total-count="1" count="1">` +
			`<entry name="edge-stack"><templates><member>base</member></templates></entry></result></response>`)
	})
	ts := NewTemplateStack(s, "edge-stack")

	got, err := ts.VariablesFromDevices(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("VariablesFromDevices() = %v, %v, want none", got, err)
	}
	if changes := ts.Changes(); len(changes) != 0 {
		t.Errorf("Changes() = %v, want none", changes)
	}
}

func TestTemplateStack_VariablesFromDevicesRefreshError(t *testing.T) {
	s := newFakeSession(pano9, func(req panos.Request) (panos.Response, error) {
		return xmlReply(`<response status="success" code="7"><result/></response>`)
	})
	ts := NewTemplateStack(s, "edge-stack")

	_, err := ts.VariablesFromDevices(context.Background())
	if panos.KindOf(err) != panos.KindNotFound {
		t.Errorf("VariablesFromDevices() error = %v, want not-found", err)
	}
}

func TestTemplateStack_UpdateXML(t *testing.T) {
	s := newFakeSession(pano9, func(req panos.Request) (panos.Response, error) {
		if req.Method == panos.ActionGet {
			return xmlReply(stackXML)
		}
		return xmlReply(xmlOK)
	})
	ts := NewTemplateStack(s, "edge-stack")
	ctx := context.Background()
	if err := ts.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if _, err := ts.AddTemplate("extra"); err != nil {
		t.Fatal(err)
	}
	if err := ts.SetDeviceVariable("0002", "$dns", "1.1.1.1"); err != nil {
		t.Fatalf("SetDeviceVariable() error = %v", err)
	}
	if diff := cmp.Diff([]string{"devices", "templates"}, ts.Changes()); diff != "" {
		t.Errorf("Changes() mismatch (-want +got):\n%s", diff)
	}

	if err := ts.Update(ctx); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	req := s.sent()[1]
	if req.Method != panos.ActionEdit {
		t.Errorf("Method = %s, want edit", req.Method)
	}
	for _, part := range []string{
		`<templates><member>base</member><member>extra</member></templates>`,
		`<entry name="0002"><variable><entry name="$dns"><type><ip-netmask>1.1.1.1</ip-netmask></type></entry></variable></entry>`,
	} {
		if !strings.Contains(req.Payload, part) {
			t.Errorf("Payload missing %s:\n%s", part, req.Payload)
		}
	}
	if ts.State() != panos.StateSynced {
		t.Errorf("State() = %s after Update", ts.State())
	}
}

func TestStacksWithTemplate(t *testing.T) {
	s := newFakeSession(pano, func(req panos.Request) (panos.Response, error) {
		return restReply(http.StatusOK, restResult(
			`{"@name":"s1","templates":{"member":["base","edge"]}}`,
			`{"@name":"s2","templates":{"member":["dc"]}}`,
			`{"@name":"s3","templates":{"member":["edge"]}}`,
		))
	})

	stacks, err := StacksWithTemplate(context.Background(), s, "edge")
	if err != nil {
		t.Fatalf("StacksWithTemplate() error = %v", err)
	}
	var names []string
	for _, ts := range stacks {
		names = append(names, ts.Name())
		if ts.State() != panos.StateSynced {
			t.Errorf("%s: State() = %s, want synced", ts.Name(), ts.State())
		}
	}
	if diff := cmp.Diff([]string{"s1", "s3"}, names); diff != "" {
		t.Errorf("stacks mismatch (-want +got):\n%s", diff)
	}

	req := s.sent()[0]
	if req.Path != "/restapi/v11.1/Panorama/TemplateStacks" || req.Params.Encode() != "location=panorama" {
		t.Errorf("list request = %s?%s", req.Path, req.Params.Encode())
	}
}

func TestStacksWithTemplate_Error(t *testing.T) {
	s := newFakeSession(pano, func(req panos.Request) (panos.Response, error) {
		return restReply(http.StatusForbidden, `{"code":16,"message":"Unauthorized"}`)
	})
	_, err := StacksWithTemplate(context.Background(), s, "edge")
	requireKind(t, err, panos.KindAuth)
}
