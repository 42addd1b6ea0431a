// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"fmt"
)

// State is the lifecycle state of an Object
type State int

const (
	// StateUnbound objects have no baseline yet
	StateUnbound State = iota

	// StateSynced objects match their baseline
	StateSynced

	// StateDirty objects have working values that differ from the baseline
	StateDirty

	// StateDeleted objects were deleted on the device; every further
	// operation fails with KindTerminalState
	StateDeleted
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateSynced:
		return "synced"
	case StateDirty:
		return "dirty"
	case StateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// RefreshPolicy decides what happens to unsynced local edits on refresh
type RefreshPolicy int

const (
	// RefreshOverwrite replaces the working values with the fetched baseline
	RefreshOverwrite RefreshPolicy = iota

	// RefreshMerge re-applies the changed working values on top of the
	// fetched baseline
	RefreshMerge
)

// Object is a local, stateful copy of one configuration entity.
//
// The baseline holds the last known device state and is only replaced by a
// refresh or a successful create or update. The working record holds local
// edits. An Object is not safe for concurrent use.
type Object struct {
	kind    *Kind
	name    string
	session Session
	scope   []ScopeSegment
	policy  RefreshPolicy
	logger  Logger

	baseline    Record
	working     Record
	hasBaseline bool
	deleted     bool
	tracker     Tracker
}

// ObjectOption configures an Object
type ObjectOption func(*Object)

// InScope places the object in the given scope instead of the session's
// default scope.
//
// Example:
//
//	addr := panos.NewObject(session, addressKind, "web1",
//	    panos.InScope(panos.DeviceGroup("branch")))
func InScope(scope ...ScopeSegment) ObjectOption {
	return func(o *Object) {
		o.scope = append([]ScopeSegment{}, scope...)
	}
}

// WithRefreshPolicy sets the default policy used by Refresh
func WithRefreshPolicy(p RefreshPolicy) ObjectOption {
	return func(o *Object) {
		o.policy = p
	}
}

// WithObjectLogger overrides the logger inherited from the session
func WithObjectLogger(l Logger) ObjectOption {
	return func(o *Object) {
		o.logger = l
	}
}

// loggerSource is implemented by sessions that expose their logger
type loggerSource interface {
	Logger() Logger
}

// NewObject returns an unbound object of kind k named name.
//
// The object is not read from the device: call Refresh for an existing
// entity or set its fields and call Create for a new one.
func NewObject(s Session, k *Kind, name string, opts ...ObjectOption) *Object {
	o := &Object{
		kind:     k,
		name:     name,
		session:  s,
		baseline: NewRecord(),
		working:  NewRecord(),
		logger:   loggerOf(s),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = &NoOpLogger{}
	}
	return o
}

// Name returns the object's identity within its kind
func (o *Object) Name() string { return o.name }

// Kind returns the object's entity kind
func (o *Object) Kind() *Kind { return o.kind }

// Session returns the session the object talks to
func (o *Object) Session() Session { return o.session }

// State returns the lifecycle state
func (o *Object) State() State {
	switch {
	case o.deleted:
		return StateDeleted
	case !o.hasBaseline:
		return StateUnbound
	case len(o.Changes()) > 0:
		return StateDirty
	}
	return StateSynced
}

// Device returns the device context the object resolves against
func (o *Object) Device() DeviceContext {
	dev := o.session.Device()
	if o.scope != nil {
		dev = dev.WithScope(o.scope...)
	}
	return dev
}

// Set assigns a working value. The value is validated against the field
// declaration; int values are stored as int64 and maps as Record.
func (o *Object) Set(field string, value any) error {
	if o.deleted {
		return o.terminal("set")
	}
	v, err := o.kind.Schema.Normalize(field, value)
	if err != nil {
		return withOp(err, "set", o.kind.Entity(o.name))
	}
	o.working.Values[field] = v
	o.tracker.MarkDirty(field)
	return nil
}

// Unset removes a working value
func (o *Object) Unset(field string) error {
	if o.deleted {
		return o.terminal("unset")
	}
	if _, ok := o.kind.Schema.Field(field); !ok {
		return newError(KindValidation, "unset", "unknown field %q", field)
	}
	delete(o.working.Values, field)
	o.tracker.MarkDirty(field)
	return nil
}

// Get returns a copy of a working value
func (o *Object) Get(field string) (any, bool) {
	v, ok := o.working.Values[field]
	return cloneValue(v), ok
}

// GetString returns a string or enumeration field, "" when unset
func (o *Object) GetString(field string) string {
	s, _ := o.working.Values[field].(string)
	return s
}

// GetInt returns an integer field, 0 when unset
func (o *Object) GetInt(field string) int64 {
	n, _ := o.working.Values[field].(int64)
	return n
}

// GetBool returns a boolean field, false when unset
func (o *Object) GetBool(field string) bool {
	b, _ := o.working.Values[field].(bool)
	return b
}

// GetList returns a copy of a member-list field
func (o *Object) GetList(field string) []string {
	l, _ := o.working.Values[field].([]string)
	return append([]string(nil), l...)
}

// GetEntries returns a copy of an entry-list field
func (o *Object) GetEntries(field string) []Entry {
	e, _ := cloneValue(o.working.Values[field]).([]Entry)
	return e
}

// Baseline returns a copy of the last known device state
func (o *Object) Baseline() Record { return o.baseline.clone() }

// Working returns a copy of the working record
func (o *Object) Working() Record { return o.working.clone() }

// Changes returns the fields whose working value differs from the baseline
func (o *Object) Changes() []string {
	return o.tracker.Diff(o.kind.Schema, o.baseline, o.working)
}

// Discard drops every local edit
func (o *Object) Discard() {
	o.working = o.baseline.clone()
	o.tracker.Clear()
}

func (o *Object) entity() string {
	return o.kind.Entity(o.name)
}

func (o *Object) terminal(op string) error {
	e := newError(KindTerminalState, op, "object was deleted")
	e.Entity = o.entity()
	return e
}

// rebase installs rec as the new baseline and working record
func (o *Object) rebase(rec Record) {
	o.baseline = rec
	o.working = rec.clone()
	o.hasBaseline = true
	o.tracker.Clear()
}
