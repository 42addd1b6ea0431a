// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panorama

import (
	"strings"

	"github.com/netascode/go-panos"
)

// TemplateKind is a Panorama template
var TemplateKind = &panos.Kind{
	Name:       "template",
	Collection: "Panorama/Templates",
	XMLPath:    "template",
	Devices:    []panos.DeviceKind{panos.DevicePanorama},
	Schema: panos.MustSchema(
		panos.FieldDescriptor{Name: "description", Type: panos.ValueString},
		panos.FieldDescriptor{
			Name:     "default-vsys",
			Path:     "settings.default-vsys",
			Type:     panos.ValueString,
			Required: true,
			Default:  "vsys1",
		},
	),
	Rules: []panos.TransportRule{
		{Transport: panos.TransportXML},
		{Since: restSince, Transport: panos.TransportREST, Update: panos.UpdatePartial},
	},
}

// Template wraps a template object
type Template struct {
	*panos.Object
}

// NewTemplate returns an unbound template
func NewTemplate(s panos.Session, name string, opts ...panos.ObjectOption) *Template {
	return &Template{Object: panos.NewObject(s, TemplateKind, name, opts...)}
}

// DefaultVsys returns the vsys that firewalls receiving the template use
// for vsys-specific settings
func (t *Template) DefaultVsys() string {
	return t.GetString("default-vsys")
}

// SetDefaultVsys sets the default vsys. The name must start with "vsys".
func (t *Template) SetDefaultVsys(vsys string) error {
	if !strings.HasPrefix(vsys, "vsys") {
		return invalid(t.Object, "set", "default vsys %q must start with \"vsys\"", vsys)
	}
	return t.Set("default-vsys", vsys)
}
