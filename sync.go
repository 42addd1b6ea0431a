// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"context"
	"errors"
	"strings"

	"github.com/beevik/etree"
)

// namedRecord is one decoded entry of a read reply
type namedRecord struct {
	name string
	rec  Record
}

// Refresh reads the entity and makes the reply the new baseline.
//
// Local edits are handled by the object's refresh policy: RefreshOverwrite
// (the default) discards them, RefreshMerge re-applies them on top of the new
// baseline. An entity missing on the device yields KindNotFound and leaves
// the object unchanged.
func (o *Object) Refresh(ctx context.Context) error {
	return o.RefreshWith(ctx, o.policy)
}

// RefreshWith is Refresh with an explicit policy for this call
func (o *Object) RefreshWith(ctx context.Context, policy RefreshPolicy) error {
	if o.deleted {
		return o.terminal("refresh")
	}
	rec, err := o.read(ctx, "refresh")
	if err != nil {
		return err
	}

	if policy != RefreshMerge || !o.hasBaseline && len(o.tracker.dirty) == 0 {
		o.rebase(rec)
		o.logger.Debug(ctx, "Object refreshed", "entity", o.entity())
		return nil
	}

	// Local changes are those against the previous baseline, or every
	// assignment when the object had none.
	changed := o.tracker.Marked()
	if o.hasBaseline {
		changed = o.Changes()
	}
	prev := o.working
	o.rebase(rec)
	for _, f := range changed {
		if v, ok := prev.Values[f]; ok {
			o.working.Values[f] = cloneValue(v)
		} else {
			delete(o.working.Values, f)
		}
		o.tracker.MarkDirty(f)
	}
	o.logger.Debug(ctx, "Object refreshed with local changes merged",
		"entity", o.entity(),
		"merged", strings.Join(changed, ","))
	return nil
}

// Exists reports whether the entity exists on the device. The baseline is
// not touched.
func (o *Object) Exists(ctx context.Context) (bool, error) {
	if o.deleted {
		return false, o.terminal("exists")
	}
	_, err := o.read(ctx, "exists")
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create writes a new entity from the working record.
//
// Only unbound objects can be created. Declared defaults fill required
// fields left unset; a required field with neither value nor default fails
// with KindValidation before anything is sent. An entity that already exists
// yields KindConflict. On success the sent record becomes the baseline.
func (o *Object) Create(ctx context.Context) error {
	if o.deleted {
		return o.terminal("create")
	}
	if o.hasBaseline {
		return o.invalidState("create", "object is already bound to a device entity")
	}
	rec, missing := o.kind.Schema.applyDefaults(o.working)
	if len(missing) > 0 {
		e := newError(KindValidation, "create", "required fields without value: %s", strings.Join(missing, ", "))
		e.Entity = o.entity()
		return e
	}

	dev := o.Device()
	req, err := Resolve(o.kind, o.name, dev, OpCreate)
	if err != nil {
		return withOp(err, "create", o.entity())
	}

	// The XML API's set merges into an existing entry instead of failing
	if req.Transport == TransportXML {
		exists, err := o.Exists(ctx)
		if err != nil {
			return withOp(err, "create", o.entity())
		}
		if exists {
			e := newError(KindConflict, "create", "entity already exists")
			e.Entity = o.entity()
			return e
		}
	}

	req.Payload, err = o.payload(req.Transport, rec, nil, false)
	if err != nil {
		return withOp(err, "create", o.entity())
	}
	if err := o.write(ctx, "create", req); err != nil {
		return err
	}
	o.rebase(rec)
	o.logger.Info(ctx, "Object created", "entity", o.entity(), "transport", req.Transport.String())
	return nil
}

// Update sends local changes to the device.
//
// Without changes Update returns immediately and sends nothing. Depending on
// the kind's transport rule only the changed fields (UpdatePartial) or the
// full record with preserved unmodeled data (UpdateReplace) is sent. Clearing
// a field, or changing a list, object or entry list over XML, always uses a
// full replace. On failure the baseline and the local
// changes are kept; refresh before retrying since the write may have been
// applied.
func (o *Object) Update(ctx context.Context) error {
	if o.deleted {
		return o.terminal("update")
	}
	if !o.hasBaseline {
		return o.invalidState("update", "object has no baseline; refresh or create it first")
	}
	changes := o.Changes()
	if len(changes) == 0 {
		o.tracker.Clear()
		return nil
	}

	dev := o.Device()
	rule, err := o.kind.Rule(dev.Version)
	if err != nil {
		return withOp(err, "update", o.entity())
	}
	op, fields := OpReplace, []string(nil)
	if rule.Update == UpdatePartial && o.mergeable(rule.Transport, changes) {
		op, fields = OpUpdate, changes
	}

	req, err := Resolve(o.kind, o.name, dev, op)
	if err != nil {
		return withOp(err, "update", o.entity())
	}
	req.Payload, err = o.payload(req.Transport, o.working, fields, op == OpUpdate)
	if err != nil {
		return withOp(err, "update", o.entity())
	}
	if err := o.write(ctx, "update", req); err != nil {
		return err
	}
	o.rebase(o.working.clone())
	o.logger.Info(ctx, "Object updated",
		"entity", o.entity(),
		"transport", req.Transport.String(),
		"strategy", string(op),
		"fields", strings.Join(changes, ","))
	return nil
}

// Delete removes the entity from the device. The object becomes terminal.
func (o *Object) Delete(ctx context.Context) error {
	if o.deleted {
		return o.terminal("delete")
	}
	if !o.hasBaseline {
		return o.invalidState("delete", "object has no baseline; refresh it first")
	}
	req, err := Resolve(o.kind, o.name, o.Device(), OpDelete)
	if err != nil {
		return withOp(err, "delete", o.entity())
	}
	if err := o.write(ctx, "delete", req); err != nil {
		return err
	}
	o.deleted = true
	o.tracker.Clear()
	o.logger.Info(ctx, "Object deleted", "entity", o.entity())
	return nil
}

// List reads every entity of kind k in the session's scope (or the scope
// given by an InScope option) and returns them as synced objects.
func List(ctx context.Context, s Session, k *Kind, opts ...ObjectOption) ([]*Object, error) {
	probe := NewObject(s, k, "", opts...)
	req, err := Resolve(k, "", probe.Device(), OpList)
	if err != nil {
		return nil, withOp(err, "list", k.Name)
	}
	res, err := s.Do(ctx, req)
	if err != nil {
		return nil, withOp(err, "list", k.Name)
	}
	entries, err := decodeEntries(k.Schema, "list", req.Transport, res)
	if err != nil {
		return nil, withOp(err, "list", k.Name)
	}
	out := make([]*Object, 0, len(entries))
	for _, e := range entries {
		o := NewObject(s, k, e.name, opts...)
		o.rebase(e.rec)
		out = append(out, o)
	}
	probe.logger.Debug(ctx, "Objects listed", "kind", k.Name, "count", len(out))
	return out, nil
}

// read fetches and decodes the entity
func (o *Object) read(ctx context.Context, op string) (Record, error) {
	req, err := Resolve(o.kind, o.name, o.Device(), OpRead)
	if err != nil {
		return Record{}, withOp(err, op, o.entity())
	}
	o.logger.Debug(ctx, "Reading object",
		"entity", o.entity(),
		"transport", req.Transport.String(),
		"path", req.Path)
	res, err := o.session.Do(ctx, req)
	if err != nil {
		o.logger.Warn(ctx, "Read failed", "entity", o.entity(), "error", err.Error())
		return Record{}, withOp(err, op, o.entity())
	}
	entries, err := decodeEntries(o.kind.Schema, op, req.Transport, res)
	if err != nil {
		return Record{}, withOp(err, op, o.entity())
	}
	for _, e := range entries {
		if e.name == o.name {
			return e.rec, nil
		}
	}
	e := newError(KindNotFound, op, "entity not present on device")
	e.Entity = o.entity()
	return Record{}, e
}

// write sends a mutating request and checks the device's reply
func (o *Object) write(ctx context.Context, op string, req Request) error {
	o.logger.Debug(ctx, "Writing object",
		"entity", o.entity(),
		"transport", req.Transport.String(),
		"method", req.Method,
		"path", req.Path)
	if err := validatePayload(req); err != nil {
		return withOp(err, op, o.entity())
	}
	res, err := o.session.Do(ctx, req)
	if err == nil {
		if req.Transport == TransportREST {
			_, err = CheckREST(op, res)
		} else {
			_, err = CheckXML(op, res)
		}
	}
	if err != nil {
		o.logger.Warn(ctx, "Write failed",
			"entity", o.entity(),
			"operation", op,
			"error", err.Error())
		return withOp(err, op, o.entity())
	}
	return nil
}

// payload encodes rec for a write. REST payloads are wrapped in the
// {"entry": ...} envelope. A partial XML update targets the entry xpath, so
// its payload is the entry's children without the <entry> element.
func (o *Object) payload(t Transport, rec Record, fields []string, partial bool) (string, error) {
	s := o.kind.Schema
	if t == TransportREST {
		entry, err := s.encodeREST(o.name, rec, fields)
		if err != nil {
			return "", err
		}
		return Body{str: "{}"}.SetRaw("entry", entry).String()
	}
	elem, err := s.encodeXML(o.name, rec, fields)
	if err != nil {
		return "", err
	}
	if partial {
		return xmlChildren(elem), nil
	}
	return elementString(elem), nil
}

// mergeable reports whether the changed fields can be sent on their own.
// A cleared field never can. The XML set action merges into the entry, so
// it cannot remove members, entries or sub-fields; over XML a change to a
// list, object or entry list needs a full edit.
func (o *Object) mergeable(t Transport, fields []string) bool {
	for _, name := range fields {
		if v, ok := o.working.Values[name]; !ok || isEmptyValue(v) {
			return false
		}
		if t != TransportXML {
			continue
		}
		if f, ok := o.kind.Schema.Field(name); ok {
			switch f.Type {
			case ValueList, ValueObject, ValueEntries:
				return false
			}
		}
	}
	return true
}

func (o *Object) invalidState(op, msg string) error {
	e := newError(KindInvalidState, op, "%s", msg)
	e.Entity = o.entity()
	return e
}

// decodeEntries checks a read reply and decodes every entry in it
func decodeEntries(s *Schema, op string, t Transport, res Response) ([]namedRecord, error) {
	var out []namedRecord
	if t == TransportREST {
		body, err := CheckREST(op, res)
		if err != nil {
			return nil, err
		}
		for _, e := range restEntries(body) {
			rec, err := s.decodeREST(e)
			if err != nil {
				return nil, err
			}
			out = append(out, namedRecord{name: restChild(e, "@name").String(), rec: rec})
		}
		return out, nil
	}

	root, err := CheckXML(op, res)
	if err != nil {
		return nil, err
	}
	for _, e := range xmlEntries(root) {
		rec, err := s.decodeXML(e)
		if err != nil {
			return nil, err
		}
		out = append(out, namedRecord{name: e.SelectAttrValue("name", ""), rec: rec})
	}
	return out, nil
}

// xmlChildren serializes the child elements of e
func xmlChildren(e *etree.Element) string {
	var b strings.Builder
	for _, c := range e.ChildElements() {
		b.WriteString(elementString(c))
	}
	return b.String()
}
