// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// restChild returns the value of key in a JSON object.
//
// Keys are matched literally; gjson path syntax is avoided because PAN-OS
// keys start with '@', which gjson reads as a modifier.
func restChild(obj gjson.Result, key string) gjson.Result {
	var out gjson.Result
	if !obj.IsObject() {
		return out
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out = v
			return false
		}
		return true
	})
	return out
}

func restLookup(obj gjson.Result, segs []string) gjson.Result {
	cur := obj
	for _, seg := range segs {
		cur = restChild(cur, seg)
		if !cur.Exists() {
			return cur
		}
	}
	return cur
}

var sjsonEscaper = strings.NewReplacer(
	`\`, `\\`, `.`, `\.`, `*`, `\*`, `?`, `\?`,
	`@`, `\@`, `#`, `\#`, `|`, `\|`, `:`, `\:`,
)

// sjsonPath joins path segments into an sjson path. Every character sjson
// treats as syntax is escaped, so "@name" addresses the literal key.
func sjsonPath(segs ...string) string {
	escaped := make([]string, len(segs))
	for i, s := range segs {
		escaped[i] = sjsonEscaper.Replace(s)
	}
	return strings.Join(escaped, ".")
}

// decodeREST decodes one REST entry object into a record
func (s *Schema) decodeREST(entry gjson.Result) (Record, error) {
	if !entry.IsObject() {
		return Record{}, mismatch("", "object", entry.Raw)
	}
	rec := NewRecord()
	for _, f := range s.fields {
		raw := restLookup(entry, f.segments())
		if !raw.Exists() || raw.Type == gjson.Null {
			continue
		}
		v, err := s.decodeRESTValue(f, raw)
		if err != nil {
			return Record{}, err
		}
		rec.Values[f.Name] = v
	}
	s.tree.collectREST(entry, nil, rec.Extra)
	return rec, nil
}

func (s *Schema) decodeRESTValue(f FieldDescriptor, raw gjson.Result) (any, error) {
	switch f.Type {
	case ValueString:
		if raw.Type != gjson.String {
			return nil, mismatch(f.Name, "string", raw.Raw)
		}
		return raw.Str, nil
	case ValueInt:
		if raw.Type != gjson.Number {
			return nil, mismatch(f.Name, "integer", raw.Raw)
		}
		return parseCanonicalInt(f.Name, raw.Raw)
	case ValueBool:
		if raw.Type != gjson.String {
			return nil, mismatch(f.Name, "yes/no", raw.Raw)
		}
		return parseYesNo(f.Name, raw.Str)
	case ValueEnum:
		if raw.Type != gjson.String {
			return nil, mismatch(f.Name, "enumeration", raw.Raw)
		}
		return checkEnum(f, raw.Str)
	case ValueList:
		members, ok := onlyKey(raw, "member")
		if !ok || !members.IsArray() {
			return nil, mismatch(f.Name, "member list", raw.Raw)
		}
		out := []string{}
		for _, m := range members.Array() {
			if m.Type != gjson.String {
				return nil, mismatch(f.Name, "string member", m.Raw)
			}
			out = append(out, m.Str)
		}
		return out, nil
	case ValueObject:
		rec, err := s.sub[f.Name].decodeREST(raw)
		if err != nil {
			return nil, nested(f.Name, err)
		}
		return rec, nil
	case ValueEntries:
		entries, ok := onlyKey(raw, "entry")
		if !ok || !entries.IsArray() {
			return nil, mismatch(f.Name, "entry list", raw.Raw)
		}
		out := []Entry{}
		for _, e := range entries.Array() {
			name := restChild(e, "@name")
			if name.Type != gjson.String || name.Str == "" {
				return nil, mismatch(f.Name, "named entry", e.Raw)
			}
			rec, err := s.sub[f.Name].decodeREST(e)
			if err != nil {
				return nil, nested(f.Name, err)
			}
			out = append(out, Entry{Name: name.Str, Record: rec})
		}
		return out, nil
	}
	return nil, mismatch(f.Name, f.Type.String(), raw.Raw)
}

// onlyKey returns obj[key] when obj is an object whose single key is key
func onlyKey(obj gjson.Result, key string) (gjson.Result, bool) {
	if !obj.IsObject() {
		return gjson.Result{}, false
	}
	var out gjson.Result
	n := 0
	obj.ForEach(func(k, v gjson.Result) bool {
		n++
		if k.String() == key {
			out = v
		}
		return true
	})
	return out, n == 1 && out.Exists()
}

// collectREST stores every non-attribute key of obj that no field claims
func (n *pathNode) collectREST(obj gjson.Result, prefix []string, extra map[string]Raw) {
	obj.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if strings.HasPrefix(key, "@") {
			return true
		}
		path := append(append([]string(nil), prefix...), key)
		child, ok := n.children[key]
		switch {
		case !ok:
			extra[extraKey(path)] = Raw{Transport: TransportREST, Data: v.Raw}
		case child.leaf:
		case v.IsObject():
			child.collectREST(v, path, extra)
		default:
			extra[extraKey(path)] = Raw{Transport: TransportREST, Data: v.Raw}
		}
		return true
	})
}

// encodeREST encodes the named fields of rec (all fields and the preserved
// extras when names is nil) as a REST entry object.
func (s *Schema) encodeREST(name string, rec Record, names []string) (string, error) {
	b := Body{str: "{}"}
	if name != "" {
		b = b.Set(sjsonPath("@name"), name)
	}
	b, err := s.writeREST(b, rec, names)
	if err != nil {
		return "", err
	}
	return b.String()
}

func (s *Schema) writeREST(b Body, rec Record, names []string) (Body, error) {
	for _, f := range s.selectFields(names) {
		v, ok := rec.Values[f.Name]
		if !ok || v == nil {
			continue
		}
		path := sjsonPath(f.segments()...)
		switch f.Type {
		case ValueString, ValueEnum:
			b = b.Set(path, v)
		case ValueInt:
			b = b.Set(path, v)
		case ValueBool:
			b = b.Set(path, yesNo(v.(bool)))
		case ValueList:
			b = b.Set(path+".member", v)
		case ValueObject:
			raw, err := s.sub[f.Name].encodeREST("", v.(Record), nil)
			if err != nil {
				return b, err
			}
			b = b.SetRaw(path, raw)
		case ValueEntries:
			parts := make([]string, 0, len(v.([]Entry)))
			for _, e := range v.([]Entry) {
				raw, err := s.sub[f.Name].encodeREST(e.Name, e.Record, nil)
				if err != nil {
					return b, err
				}
				parts = append(parts, raw)
			}
			b = b.SetRaw(path, `{"entry":[`+strings.Join(parts, ",")+`]}`)
		}
	}
	if names == nil {
		for _, path := range sortedKeys(rec.Extra) {
			raw := rec.Extra[path]
			if raw.Transport != TransportREST {
				continue
			}
			b = b.SetRaw(sjsonPath(extraPath(path)...), raw.Data)
		}
	}
	return b, b.Err()
}

// selectFields returns the descriptors named in names, all when names is nil
func (s *Schema) selectFields(names []string) []FieldDescriptor {
	if names == nil {
		return s.fields
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]FieldDescriptor, 0, len(names))
	for _, f := range s.fields {
		if want[f.Name] {
			out = append(out, f)
		}
	}
	return out
}

func parseCanonicalInt(field, text string) (int64, error) {
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != text {
		return 0, mismatch(field, "integer", text)
	}
	return n, nil
}

func parseYesNo(field, text string) (bool, error) {
	switch text {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	return false, mismatch(field, "yes/no", text)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func checkEnum(f FieldDescriptor, v string) (string, error) {
	for _, e := range f.Enum {
		if e == v {
			return v, nil
		}
	}
	return "", mismatch(f.Name, "one of "+strings.Join(f.Enum, "|"), v)
}

func mismatch(field, want, got string) *Error {
	got = truncateAt(got, 64)
	if field == "" {
		return newError(KindSchemaMismatch, "decode", "expected %s, got %s", want, got)
	}
	return newError(KindSchemaMismatch, "decode", "field %q: expected %s, got %s", field, want, got)
}

// nested prefixes the field name of a schema mismatch raised in a sub-schema
func nested(field string, err error) error {
	if pe, ok := err.(*Error); ok {
		cp := *pe
		cp.Message = fmt.Sprintf("in %q: %s", field, cp.Message)
		return &cp
	}
	return err
}
