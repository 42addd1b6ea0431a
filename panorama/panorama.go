// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package panorama declares the Panorama configuration sections that live
// directly below the Panorama device root (templates, template stacks and
// device groups) and adds helpers for editing them.
//
// The kinds are plain panos.Kind values; the wrappers embed *panos.Object so
// the usual Refresh, Create, Update and Delete apply.
//
//	reg := panos.NewRegistry()
//	if err := panorama.Register(reg); err != nil {
//	    log.Fatal(err)
//	}
//
//	ts := panorama.NewTemplateStack(session, "Branch-Stack")
//	if err := ts.Refresh(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	_ = ts.SetDeviceVariable("0123456789", "$mgmt_ip", "10.1.2.3/32")
//	err := ts.Update(ctx)
package panorama

import (
	"context"
	"fmt"

	"github.com/netascode/go-panos"
)

// restSince is the first release whose REST API serves the Panorama sections
var restSince = panos.MustParseVersion("10.0")

// Kinds returns the kinds declared by this package
func Kinds() []*panos.Kind {
	return []*panos.Kind{TemplateKind, TemplateStackKind, DeviceGroupKind}
}

// Register adds the Panorama kinds to r
func Register(r *panos.Registry) error {
	for _, k := range Kinds() {
		if err := r.Register(k); err != nil {
			return err
		}
	}
	return nil
}

// ParentDeviceGroup returns the parent of a device group, or "shared" for a
// top-level group. The hierarchy is read from Panorama's read-only config.
func ParentDeviceGroup(ctx context.Context, s panos.Session, name string) (string, error) {
	xpath := "/config/readonly/devices/entry[@name='localhost.localdomain']/device-group/entry[@name=" +
		panos.XPathLiteral(name) + "]/parent-dg"
	res, err := s.Do(ctx, panos.Request{
		Transport: panos.TransportXML,
		Method:    panos.ActionShow,
		Path:      xpath,
	})
	if err != nil {
		return "", err
	}
	root, err := panos.CheckXML("parent-dg", res)
	if err != nil {
		return "", err
	}
	if e := root.FindElement("./result/parent-dg"); e != nil && e.Text() != "" {
		return e.Text(), nil
	}
	return "shared", nil
}

// exists wraps Object.Exists for a fresh object of kind k
func exists(ctx context.Context, s panos.Session, k *panos.Kind, name string) (bool, error) {
	return panos.NewObject(s, k, name).Exists(ctx)
}

func invalid(o *panos.Object, op, format string, args ...any) error {
	return &panos.Error{
		Kind:    panos.KindValidation,
		Op:      op,
		Entity:  o.Kind().Entity(o.Name()),
		Message: fmt.Sprintf(format, args...),
	}
}

// findEntry returns the index of the entry called name, or -1
func findEntry(entries []panos.Entry, name string) int {
	for i, e := range entries {
		if e.Name == name {
			return i
		}
	}
	return -1
}

func entryNames(entries []panos.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}
