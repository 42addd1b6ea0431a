// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panorama

import (
	"context"
	"errors"

	"github.com/netascode/go-panos"
)

// DeviceGroupKind is a Panorama device group
var DeviceGroupKind = &panos.Kind{
	Name:       "device-group",
	Collection: "Panorama/DeviceGroups",
	XMLPath:    "device-group",
	Devices:    []panos.DeviceKind{panos.DevicePanorama},
	Schema: panos.MustSchema(
		panos.FieldDescriptor{Name: "description", Type: panos.ValueString},
		panos.FieldDescriptor{
			Name: "devices",
			Type: panos.ValueEntries,
			Fields: []panos.FieldDescriptor{
				{Name: "vsys", Type: panos.ValueEntries},
			},
		},
		panos.FieldDescriptor{Name: "reference-templates", Type: panos.ValueList, Unordered: true},
		panos.FieldDescriptor{Name: "authorization-code", Type: panos.ValueString},
		panos.FieldDescriptor{Name: "to-sw-version", Type: panos.ValueString},
	),
	Rules: []panos.TransportRule{
		{Transport: panos.TransportXML},
		{Since: restSince, Transport: panos.TransportREST},
	},
}

// ErrNoSuchTemplate is wrapped by CheckReferenceTemplates for a reference
// template that is neither a template nor a template stack
var ErrNoSuchTemplate = errors.New("no such template or template stack")

// DeviceGroup wraps a device group object
type DeviceGroup struct {
	*panos.Object
}

// NewDeviceGroup returns an unbound device group
func NewDeviceGroup(s panos.Session, name string, opts ...panos.ObjectOption) *DeviceGroup {
	return &DeviceGroup{Object: panos.NewObject(s, DeviceGroupKind, name, opts...)}
}

// Devices returns the serial numbers of the member firewalls
func (g *DeviceGroup) Devices() []string {
	return entryNames(g.GetEntries("devices"))
}

// AddDevice adds a firewall by serial number, optionally limited to some of
// its vsys. It reports false when the firewall is already a member.
func (g *DeviceGroup) AddDevice(serial string, vsys ...string) (bool, error) {
	devices := g.GetEntries("devices")
	if findEntry(devices, serial) >= 0 {
		return false, nil
	}
	rec := panos.NewRecord()
	if len(vsys) > 0 {
		entries := make([]panos.Entry, 0, len(vsys))
		for _, v := range vsys {
			entries = append(entries, panos.Entry{Name: v, Record: panos.NewRecord()})
		}
		rec.Values["vsys"] = entries
	}
	return true, g.Set("devices", append(devices, panos.Entry{Name: serial, Record: rec}))
}

// RemoveDevice removes a firewall and reports false when it was not a member
func (g *DeviceGroup) RemoveDevice(serial string) (bool, error) {
	devices := g.GetEntries("devices")
	i := findEntry(devices, serial)
	if i < 0 {
		return false, nil
	}
	return true, g.Set("devices", append(devices[:i], devices[i+1:]...))
}

// ReferenceTemplates returns the templates and stacks the group references
func (g *DeviceGroup) ReferenceTemplates() []string {
	return g.GetList("reference-templates")
}

// AddReferenceTemplate adds a template or template stack reference and
// reports false when it is already referenced
func (g *DeviceGroup) AddReferenceTemplate(name string) (bool, error) {
	refs := g.GetList("reference-templates")
	for _, r := range refs {
		if r == name {
			return false, nil
		}
	}
	return true, g.Set("reference-templates", append(refs, name))
}

// CheckReferenceTemplates verifies that every referenced name exists on
// Panorama as a template or a template stack
func (g *DeviceGroup) CheckReferenceTemplates(ctx context.Context) error {
	for _, name := range g.ReferenceTemplates() {
		ok, err := exists(ctx, g.Session(), TemplateKind, name)
		if err != nil {
			return err
		}
		if !ok {
			ok, err = exists(ctx, g.Session(), TemplateStackKind, name)
			if err != nil {
				return err
			}
		}
		if !ok {
			return &panos.Error{
				Kind:    panos.KindValidation,
				Op:      "check-reference-templates",
				Entity:  g.Kind().Entity(g.Name()),
				Message: name + ": " + ErrNoSuchTemplate.Error(),
				Err:     ErrNoSuchTemplate,
			}
		}
	}
	return nil
}
