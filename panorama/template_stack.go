// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panorama

import (
	"context"

	"github.com/netascode/go-panos"
)

// VariablePreSharedKey is the only variable type holding an object
// ({key} or {value}) instead of a string
const VariablePreSharedKey = "pre-shared-key"

// VariableTypes lists the value types a template stack variable can take
var VariableTypes = []string{
	"ip-netmask",
	"ip-range",
	"hostname",
	"ipv4-subnet",
	"ipv6-subnet",
	VariablePreSharedKey,
	"fqdn",
	"group-id",
	"device-priority",
	"device-id",
	"interface",
	"as-number",
	"qos-profile",
	"egress-max",
	"link-tag",
}

// variableFields describes one <variable><entry>: a "type" container holding
// exactly one of VariableTypes
func variableFields() []panos.FieldDescriptor {
	types := make([]panos.FieldDescriptor, 0, len(VariableTypes))
	for _, t := range VariableTypes {
		if t == VariablePreSharedKey {
			types = append(types, panos.FieldDescriptor{
				Name: t,
				Type: panos.ValueObject,
				Fields: []panos.FieldDescriptor{
					{Name: "key", Type: panos.ValueString},
					{Name: "value", Type: panos.ValueString},
				},
			})
			continue
		}
		types = append(types, panos.FieldDescriptor{Name: t, Type: panos.ValueString})
	}
	return []panos.FieldDescriptor{{Name: "type", Type: panos.ValueObject, Fields: types}}
}

// TemplateStackKind is a Panorama template stack
var TemplateStackKind = &panos.Kind{
	Name:       "template-stack",
	Collection: "Panorama/TemplateStacks",
	XMLPath:    "template-stack",
	Devices:    []panos.DeviceKind{panos.DevicePanorama},
	Schema: panos.MustSchema(
		panos.FieldDescriptor{Name: "description", Type: panos.ValueString},
		panos.FieldDescriptor{Name: "templates", Type: panos.ValueList},
		panos.FieldDescriptor{Name: "variable", Type: panos.ValueEntries, Fields: variableFields()},
		panos.FieldDescriptor{
			Name: "devices",
			Type: panos.ValueEntries,
			Fields: []panos.FieldDescriptor{
				{Name: "variable", Type: panos.ValueEntries, Fields: variableFields()},
			},
		},
	),
	Rules: []panos.TransportRule{
		{Transport: panos.TransportXML},
		{Since: restSince, Transport: panos.TransportREST},
	},
}

// TemplateStack wraps a template stack object.
//
// Helpers edit the working record only; call Update (or Create) to send the
// result.
type TemplateStack struct {
	*panos.Object
}

// NewTemplateStack returns an unbound template stack
func NewTemplateStack(s panos.Session, name string, opts ...panos.ObjectOption) *TemplateStack {
	return &TemplateStack{Object: panos.NewObject(s, TemplateStackKind, name, opts...)}
}

// Templates returns the member templates, highest priority first
func (t *TemplateStack) Templates() []string {
	return t.GetList("templates")
}

// AddTemplate appends a template at the lowest priority. It reports false
// when the template is already a member.
func (t *TemplateStack) AddTemplate(name string) (bool, error) {
	members := t.GetList("templates")
	for _, m := range members {
		if m == name {
			return false, nil
		}
	}
	return true, t.Set("templates", append(members, name))
}

// Variables returns the stack-level variable definitions
func (t *TemplateStack) Variables() []panos.Entry {
	return t.GetEntries("variable")
}

// DefineVariable defines (or redefines) a stack-level variable with its
// default value
func (t *TemplateStack) DefineVariable(name, typ, value string) error {
	if !isVariableType(typ) {
		return invalid(t.Object, "define-variable", "unknown variable type %q", typ)
	}
	entry, err := variableEntry(t.Object, name, typ, value)
	if err != nil {
		return err
	}
	vars := t.GetEntries("variable")
	if i := findEntry(vars, name); i >= 0 {
		vars[i] = entry
	} else {
		vars = append(vars, entry)
	}
	return t.Set("variable", vars)
}

// Devices returns the serial numbers of the devices in the stack
func (t *TemplateStack) Devices() []string {
	return entryNames(t.GetEntries("devices"))
}

// AddDevice adds a device by serial number and reports false when it is
// already a member
func (t *TemplateStack) AddDevice(serial string) (bool, error) {
	devices := t.GetEntries("devices")
	if findEntry(devices, serial) >= 0 {
		return false, nil
	}
	return true, t.Set("devices", append(devices, panos.Entry{Name: serial, Record: panos.NewRecord()}))
}

// RemoveDevice removes a device and its variable assignments. It reports
// false when the device is not a member.
func (t *TemplateStack) RemoveDevice(serial string) (bool, error) {
	devices := t.GetEntries("devices")
	i := findEntry(devices, serial)
	if i < 0 {
		return false, nil
	}
	return true, t.Set("devices", append(devices[:i], devices[i+1:]...))
}

// VariableType returns the type of a variable, looked up in the stack-level
// definitions first and in the devices' assignments second
func (t *TemplateStack) VariableType(name string) (string, bool) {
	defs := t.GetEntries("variable")
	if i := findEntry(defs, name); i >= 0 {
		if typ := variableType(defs[i]); typ != "" {
			return typ, true
		}
	}
	for _, d := range t.GetEntries("devices") {
		vars, _ := d.Values["variable"].([]panos.Entry)
		if i := findEntry(vars, name); i >= 0 {
			if typ := variableType(vars[i]); typ != "" {
				return typ, true
			}
		}
	}
	return "", false
}

// VariablesFromDevices replaces the stack-level variable definitions with
// the variables assigned on the first device, keeping their names and types
// and leaving the values empty. Without devices in the working record the
// stack is refreshed first; a stack that still has none yields no
// definitions and is left unchanged.
func (t *TemplateStack) VariablesFromDevices(ctx context.Context) ([]panos.Entry, error) {
	devices := t.GetEntries("devices")
	if len(devices) == 0 {
		if err := t.Refresh(ctx); err != nil {
			return nil, err
		}
		if devices = t.GetEntries("devices"); len(devices) == 0 {
			return nil, nil
		}
	}
	vars, _ := devices[0].Values["variable"].([]panos.Entry)
	defs := make([]panos.Entry, 0, len(vars))
	for _, v := range vars {
		typ := variableType(v)
		if typ == "" {
			continue
		}
		var empty any = ""
		if typ == VariablePreSharedKey {
			empty = panos.NewRecord()
		}
		rec := panos.NewRecord()
		rec.Values["type"] = map[string]any{typ: empty}
		defs = append(defs, panos.Entry{Name: v.Name, Record: rec})
	}
	if err := t.Set("variable", defs); err != nil {
		return nil, err
	}
	return t.GetEntries("variable"), nil
}

// SetDeviceVariable assigns a per-device value to a variable.
//
// The variable type comes from VariableType, so the variable must be
// defined on the stack or already assigned on another device. A device that
// is not a member yet is added. Pre-shared keys accept a plain string, stored
// as the key's value, or a map with "key" or "value".
func (t *TemplateStack) SetDeviceVariable(serial, name string, value any) error {
	typ, ok := t.VariableType(name)
	if !ok {
		return invalid(t.Object, "set-device-variable", "variable %q is not defined on the stack", name)
	}
	entry, err := variableEntry(t.Object, name, typ, value)
	if err != nil {
		return err
	}

	devices := t.GetEntries("devices")
	i := findEntry(devices, serial)
	if i < 0 {
		devices = append(devices, panos.Entry{Name: serial, Record: panos.NewRecord()})
		i = len(devices) - 1
	}
	vars, _ := devices[i].Values["variable"].([]panos.Entry)
	if j := findEntry(vars, name); j >= 0 {
		vars[j] = entry
	} else {
		vars = append(vars, entry)
	}
	devices[i].Values["variable"] = vars
	return t.Set("devices", devices)
}

// RemoveDeviceVariable drops a per-device assignment and reports whether
// there was one
func (t *TemplateStack) RemoveDeviceVariable(serial, name string) (bool, error) {
	devices := t.GetEntries("devices")
	i := findEntry(devices, serial)
	if i < 0 {
		return false, nil
	}
	vars, _ := devices[i].Values["variable"].([]panos.Entry)
	j := findEntry(vars, name)
	if j < 0 {
		return false, nil
	}
	vars = append(vars[:j], vars[j+1:]...)
	if len(vars) == 0 {
		delete(devices[i].Values, "variable")
	} else {
		devices[i].Values["variable"] = vars
	}
	return true, t.Set("devices", devices)
}

// StacksWithTemplate returns the template stacks that include the template
func StacksWithTemplate(ctx context.Context, s panos.Session, template string) ([]*TemplateStack, error) {
	objs, err := panos.List(ctx, s, TemplateStackKind)
	if err != nil {
		return nil, err
	}
	var out []*TemplateStack
	for _, o := range objs {
		for _, m := range o.GetList("templates") {
			if m == template {
				out = append(out, &TemplateStack{Object: o})
				break
			}
		}
	}
	return out, nil
}

func isVariableType(typ string) bool {
	for _, t := range VariableTypes {
		if t == typ {
			return true
		}
	}
	return false
}

// variableType returns the single type key set on a variable entry
func variableType(e panos.Entry) string {
	rec, ok := e.Values["type"].(panos.Record)
	if !ok {
		return ""
	}
	for _, t := range VariableTypes {
		if _, ok := rec.Values[t]; ok {
			return t
		}
	}
	return ""
}

// variableEntry builds a variable entry holding value under its type key
func variableEntry(o *panos.Object, name, typ string, value any) (panos.Entry, error) {
	if typ == VariablePreSharedKey {
		switch v := value.(type) {
		case string:
			value = map[string]any{"value": v}
		case map[string]any, panos.Record:
		default:
			return panos.Entry{}, invalid(o, "set-variable", "pre-shared-key %q expects a string or a key/value map, got %T", name, value)
		}
	} else if _, ok := value.(string); !ok {
		return panos.Entry{}, invalid(o, "set-variable", "variable %q of type %s expects a string, got %T", name, typ, value)
	}
	rec := panos.NewRecord()
	rec.Values["type"] = map[string]any{typ: value}
	return panos.Entry{Name: name, Record: rec}, nil
}
