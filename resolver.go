// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"net/http"
	"net/url"
	"strings"
)

// deviceRoot is the XML API anchor of the local device configuration
const deviceRoot = "/config/devices/entry[@name='localhost.localdomain']"

// location is the resolved placement of an entity
type location struct {
	typ  ScopeType // empty for entities living directly below the device root
	name string
	vsys string // vsys inside a template or template stack
}

// location resolves where objects of k live for the given device context.
//
// Container segments (device group, template, template stack) win over vsys
// and shared. A vsys-only kind without a vsys segment, a container segment on
// a firewall or a scope the kind cannot live in all fail with KindScope.
func (k *Kind) location(dev DeviceContext) (location, error) {
	if len(k.Scopes) == 0 {
		return location{}, nil
	}

	for _, seg := range dev.Scope {
		switch seg.Type {
		case ScopeDeviceGroup, ScopeTemplate, ScopeTemplateStack:
		default:
			continue
		}
		if dev.Kind != DevicePanorama {
			return location{}, newError(KindScope, "resolve", "%s scope is only valid on panorama", seg.Type)
		}
		if !k.allowsScope(seg.Type) {
			return location{}, newError(KindScope, "resolve", "kind %q cannot live in a %s", k.Name, seg.Type)
		}
		if seg.Name == "" {
			return location{}, newError(KindScope, "resolve", "%s scope requires a name", seg.Type)
		}
		loc := location{typ: seg.Type, name: seg.Name}
		if seg.Type == ScopeDeviceGroup {
			return loc, nil
		}
		if v, ok := dev.segment(ScopeVsys); ok && k.allowsScope(ScopeVsys) {
			if v.Name == "" {
				return location{}, newError(KindScope, "resolve", "vsys scope requires a name")
			}
			loc.vsys = v.Name
		} else if !k.allowsScope(ScopeShared) {
			return location{}, newError(KindScope, "resolve", "kind %q requires a vsys inside %s %q", k.Name, seg.Type, seg.Name)
		}
		return loc, nil
	}

	if v, ok := dev.segment(ScopeVsys); ok && k.allowsScope(ScopeVsys) {
		if dev.Kind == DevicePanorama {
			return location{}, newError(KindScope, "resolve", "vsys scope on panorama requires a template or template stack")
		}
		if v.Name == "" {
			return location{}, newError(KindScope, "resolve", "vsys scope requires a name")
		}
		return location{typ: ScopeVsys, name: v.Name}, nil
	}
	if k.allowsScope(ScopeShared) {
		return location{typ: ScopeShared}, nil
	}
	return location{}, newError(KindScope, "resolve", "kind %q requires a %s scope", k.Name, k.Scopes[0])
}

// restParams returns the REST query parameters selecting loc
func (loc location) restParams(dev DeviceContext) url.Values {
	q := url.Values{}
	switch loc.typ {
	case "":
		if dev.Kind == DevicePanorama {
			q.Set("location", "panorama")
		}
	case ScopeShared:
		q.Set("location", "shared")
	default:
		q.Set("location", string(loc.typ))
		q.Set(string(loc.typ), loc.name)
	}
	if loc.vsys != "" {
		q.Set("vsys", loc.vsys)
	}
	return q
}

// xpathRoot returns the XML xpath of the configuration subtree selected by loc
func (loc location) xpathRoot() string {
	switch loc.typ {
	case "":
		return deviceRoot
	case ScopeShared:
		return "/config/shared"
	case ScopeVsys:
		return deviceRoot + "/vsys/entry[@name=" + XPathLiteral(loc.name) + "]"
	case ScopeDeviceGroup:
		return deviceRoot + "/device-group/entry[@name=" + XPathLiteral(loc.name) + "]"
	}
	base := deviceRoot + "/" + string(loc.typ) + "/entry[@name=" + XPathLiteral(loc.name) + "]/config"
	if loc.vsys == "" {
		return base + "/shared"
	}
	return base + "/devices/entry[@name='localhost.localdomain']/vsys/entry[@name=" + XPathLiteral(loc.vsys) + "]"
}

// Resolve builds the request skeleton addressing one entity (or, for OpList,
// the collection) of kind k on the device.
//
// The transport comes from the kind's rule for the device version. Scope
// problems are reported as KindScope before anything is sent. The returned
// request carries no payload; the caller adds it for writes.
func Resolve(k *Kind, name string, dev DeviceContext, op Operation) (Request, error) {
	if dev.Kind == 0 || dev.Version.IsZero() {
		return Request{}, newError(KindScope, "resolve", "device context not established")
	}
	if !k.supports(dev.Kind) {
		return Request{}, newError(KindScope, "resolve", "kind %q is not available on %s", k.Name, dev.Kind)
	}
	if op != OpList && name == "" {
		return Request{}, newError(KindValidation, "resolve", "kind %q: object name cannot be empty", k.Name)
	}
	if op != OpList {
		if err := k.validateName(name); err != nil {
			return Request{}, err
		}
	}
	rule, err := k.Rule(dev.Version)
	if err != nil {
		return Request{}, err
	}
	loc, err := k.location(dev)
	if err != nil {
		return Request{}, err
	}

	if rule.Transport == TransportREST {
		return restRequest(k, name, dev, loc, op)
	}
	return xmlRequest(k, name, loc, op)
}

func restRequest(k *Kind, name string, dev DeviceContext, loc location, op Operation) (Request, error) {
	req := Request{
		Transport: TransportREST,
		Path:      "/restapi/" + dev.Version.APIVersion() + "/" + k.Collection,
		Params:    loc.restParams(dev),
	}
	switch op {
	case OpRead, OpList:
		req.Method = http.MethodGet
	case OpCreate:
		req.Method = http.MethodPost
	case OpUpdate, OpReplace:
		req.Method = http.MethodPut
	case OpDelete:
		req.Method = http.MethodDelete
	default:
		return Request{}, newError(KindValidation, "resolve", "unknown operation %q", op)
	}
	if op != OpList {
		req.Params.Set("name", name)
	}
	return req, nil
}

func xmlRequest(k *Kind, name string, loc location, op Operation) (Request, error) {
	collection := loc.xpathRoot() + "/" + strings.Trim(k.XMLPath, "/")
	entry := collection + "/entry[@name=" + XPathLiteral(name) + "]"
	req := Request{Transport: TransportXML}
	switch op {
	case OpRead:
		req.Method, req.Path = ActionGet, entry
	case OpList:
		req.Method, req.Path = ActionGet, collection
	case OpCreate:
		req.Method, req.Path = ActionSet, collection
	case OpUpdate:
		req.Method, req.Path = ActionSet, entry
	case OpReplace:
		req.Method, req.Path = ActionEdit, entry
	case OpDelete:
		req.Method, req.Path = ActionDelete, entry
	default:
		return Request{}, newError(KindValidation, "resolve", "unknown operation %q", op)
	}
	return req, nil
}

// XPathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote characters is built with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	args := make([]string, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `"'"`)
		}
		if p != "" {
			args = append(args, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}
