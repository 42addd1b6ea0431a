// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// ValueKind is the local value type of a field
type ValueKind int

const (
	// ValueString holds a string
	ValueString ValueKind = iota + 1

	// ValueInt holds an int64
	ValueInt

	// ValueBool holds a bool (yes/no on the wire)
	ValueBool

	// ValueEnum holds a string restricted to FieldDescriptor.Enum
	ValueEnum

	// ValueList holds a []string (a member list on the wire)
	ValueList

	// ValueObject holds a Record described by FieldDescriptor.Fields
	ValueObject

	// ValueEntries holds a []Entry (an entry list keyed by name)
	ValueEntries
)

// String returns the string representation of a ValueKind
func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueInt:
		return "integer"
	case ValueBool:
		return "boolean"
	case ValueEnum:
		return "enumeration"
	case ValueList:
		return "list"
	case ValueObject:
		return "object"
	case ValueEntries:
		return "entries"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

// FieldDescriptor declares one field of an entity kind.
//
// Path is the wire path relative to the entry, segments separated by ".".
// It names the JSON key chain for REST and the element chain for XML and
// defaults to Name.
type FieldDescriptor struct {
	Name      string
	Path      string
	Type      ValueKind
	Required  bool
	Default   any
	Enum      []string
	Unordered bool

	// Fields describes the members of ValueObject values and of each entry of
	// ValueEntries values
	Fields []FieldDescriptor
}

func (f FieldDescriptor) segments() []string {
	return strings.Split(f.Path, ".")
}

// Raw is wire data the schema does not model, kept verbatim so that writing
// an object back does not drop it.
type Raw struct {
	Transport Transport
	Data      string
}

// Record is a decoded field map plus the unmodeled wire data found next to it
type Record struct {
	Values map[string]any
	// Extra is keyed by wire path: segments joined with '.', where '.' and
	// '\' inside a segment are escaped with '\'.
	Extra map[string]Raw
}

// NewRecord returns an empty record
func NewRecord() Record {
	return Record{Values: map[string]any{}, Extra: map[string]Raw{}}
}

// clone returns a deep copy of the record
func (r Record) clone() Record {
	out := NewRecord()
	for k, v := range r.Values {
		out.Values[k] = cloneValue(v)
	}
	for k, v := range r.Extra {
		out.Extra[k] = v
	}
	return out
}

// Entry is one element of an entry list
type Entry struct {
	Name string
	Record
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case Record:
		return t.clone()
	case []Entry:
		out := make([]Entry, len(t))
		for i, e := range t {
			out[i] = Entry{Name: e.Name, Record: e.Record.clone()}
		}
		return out
	default:
		return v
	}
}

// Schema is the immutable field declaration of an entity kind, shared by
// every object of that kind.
type Schema struct {
	fields []FieldDescriptor
	byName map[string]int
	sub    map[string]*Schema
	tree   *pathNode
}

// NewSchema validates the descriptors and builds a schema
func NewSchema(fields ...FieldDescriptor) (*Schema, error) {
	s := &Schema{
		byName: make(map[string]int, len(fields)),
		sub:    map[string]*Schema{},
		tree:   &pathNode{},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("field name cannot be empty")
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		if f.Path == "" {
			f.Path = f.Name
		}
		for _, seg := range f.segments() {
			if seg == "" || strings.HasPrefix(seg, "@") {
				return nil, fmt.Errorf("field %q: invalid wire path %q", f.Name, f.Path)
			}
		}
		if f.Type < ValueString || f.Type > ValueEntries {
			return nil, fmt.Errorf("field %q: invalid value kind %d", f.Name, int(f.Type))
		}
		if f.Type == ValueEnum && len(f.Enum) == 0 {
			return nil, fmt.Errorf("field %q: enumeration without values", f.Name)
		}
		if f.Type == ValueObject || f.Type == ValueEntries {
			sub, err := NewSchema(f.Fields...)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			s.sub[f.Name] = sub
		}
		if !s.tree.insert(f.segments()) {
			return nil, fmt.Errorf("field %q: wire path %q overlaps another field", f.Name, f.Path)
		}
		s.byName[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	for _, f := range s.fields {
		if f.Default == nil {
			continue
		}
		if _, err := s.normalize(f, f.Default); err != nil {
			return nil, fmt.Errorf("field %q: bad default: %w", f.Name, err)
		}
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error
func MustSchema(fields ...FieldDescriptor) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the descriptors in declaration order
func (s *Schema) Fields() []FieldDescriptor {
	return append([]FieldDescriptor(nil), s.fields...)
}

// Field returns the descriptor of a field
func (s *Schema) Field(name string) (FieldDescriptor, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.fields[i], true
}

// WirePath returns the wire path of a field for the given transport:
// a dotted JSON key chain for REST and a slash-separated element path for XML.
func (s *Schema) WirePath(name string, t Transport) (string, error) {
	f, ok := s.Field(name)
	if !ok {
		return "", newError(KindValidation, "resolve", "unknown field %q", name)
	}
	if t == TransportXML {
		return strings.ReplaceAll(f.Path, ".", "/"), nil
	}
	return f.Path, nil
}

// Normalize checks value against the field's declaration and returns it in
// its canonical local type (int -> int64, map -> Record, copies of slices).
func (s *Schema) Normalize(name string, value any) (any, error) {
	f, ok := s.Field(name)
	if !ok {
		return nil, newError(KindValidation, "set", "unknown field %q", name)
	}
	return s.normalize(f, value)
}

func (s *Schema) normalize(f FieldDescriptor, value any) (any, error) {
	bad := func() (any, error) {
		return nil, newError(KindValidation, "set", "field %q expects %s, got %T", f.Name, f.Type, value)
	}
	switch f.Type {
	case ValueString:
		if v, ok := value.(string); ok {
			return v, nil
		}
		return bad()
	case ValueInt:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		}
		return bad()
	case ValueBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
		return bad()
	case ValueEnum:
		v, ok := value.(string)
		if !ok {
			return bad()
		}
		for _, e := range f.Enum {
			if e == v {
				return v, nil
			}
		}
		return nil, newError(KindValidation, "set", "field %q: %q is not one of %s", f.Name, v, strings.Join(f.Enum, ", "))
	case ValueList:
		if v, ok := value.([]string); ok {
			return append([]string{}, v...), nil
		}
		return bad()
	case ValueObject:
		sub := s.sub[f.Name]
		switch v := value.(type) {
		case Record:
			return sub.normalizeRecord(v)
		case map[string]any:
			return sub.normalizeRecord(Record{Values: v})
		}
		return bad()
	case ValueEntries:
		v, ok := value.([]Entry)
		if !ok {
			return bad()
		}
		sub := s.sub[f.Name]
		out := make([]Entry, 0, len(v))
		for _, e := range v {
			if e.Name == "" {
				return nil, newError(KindValidation, "set", "field %q: entry name cannot be empty", f.Name)
			}
			rec, err := sub.normalizeRecord(e.Record)
			if err != nil {
				return nil, err
			}
			out = append(out, Entry{Name: e.Name, Record: rec.(Record)})
		}
		return out, nil
	}
	return bad()
}

func (s *Schema) normalizeRecord(r Record) (any, error) {
	out := NewRecord()
	for k, v := range r.Values {
		if v == nil {
			continue
		}
		nv, err := s.Normalize(k, v)
		if err != nil {
			return nil, err
		}
		out.Values[k] = nv
	}
	for k, v := range r.Extra {
		out.Extra[k] = v
	}
	return out, nil
}

// Equal compares two local values of a field.
//
// Absent (nil) and empty values are equal; Unordered lists compare as sets.
func (s *Schema) Equal(name string, a, b any) bool {
	f, ok := s.Field(name)
	if !ok {
		return cmp.Equal(a, b)
	}
	opts := []cmp.Option{cmpopts.EquateEmpty()}
	if s.unordered(f) {
		opts = append(opts, cmpopts.SortSlices(func(x, y string) bool { return x < y }))
	}
	if a == nil || b == nil {
		return isEmptyValue(a) && isEmptyValue(b)
	}
	return cmp.Equal(a, b, opts...)
}

// unordered reports whether the field or any field nested below it is
// declared order-insensitive
func (s *Schema) unordered(f FieldDescriptor) bool {
	if f.Unordered {
		return true
	}
	if sub, ok := s.sub[f.Name]; ok {
		for _, sf := range sub.fields {
			if sub.unordered(sf) {
				return true
			}
		}
	}
	return false
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []string:
		return len(t) == 0
	case []Entry:
		return len(t) == 0
	case Record:
		return len(t.Values) == 0 && len(t.Extra) == 0
	}
	return false
}

// applyDefaults fills Default into every required field that has no value and
// reports required fields left without one.
func (s *Schema) applyDefaults(r Record) (Record, []string) {
	out := r.clone()
	var missing []string
	for _, f := range s.fields {
		if _, ok := out.Values[f.Name]; ok || !f.Required {
			continue
		}
		if f.Default == nil {
			missing = append(missing, f.Name)
			continue
		}
		v, _ := s.normalize(f, f.Default)
		out.Values[f.Name] = v
	}
	sort.Strings(missing)
	return out, missing
}

// pathNode is a prefix tree over field wire paths, used to tell modeled wire
// keys from unknown ones.
type pathNode struct {
	children map[string]*pathNode
	leaf     bool
}

// insert adds a path and reports false when it collides with an existing
// path (one being a prefix of the other)
func (n *pathNode) insert(segs []string) bool {
	cur := n
	for i, seg := range segs {
		if cur.leaf {
			return false
		}
		if cur.children == nil {
			cur.children = map[string]*pathNode{}
		}
		next, ok := cur.children[seg]
		if !ok {
			next = &pathNode{}
			cur.children[seg] = next
		}
		if i == len(segs)-1 {
			if next.leaf || len(next.children) > 0 {
				return false
			}
			next.leaf = true
		}
		cur = next
	}
	return true
}
