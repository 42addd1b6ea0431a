// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/tidwall/gjson"
)

// Decode parses one entry in the wire format of t into a record.
//
// For TransportREST payload is a JSON entry object ({"@name": ..., ...}); for
// TransportXML it is an <entry> element. Values are checked strictly against
// the schema and never coerced: integers must be canonical decimals, booleans
// yes/no and enumerations one of the declared values. Keys the schema does
// not model are kept in Record.Extra.
func (s *Schema) Decode(t Transport, payload string) (Record, error) {
	switch t {
	case TransportREST:
		if !gjson.Valid(payload) {
			return Record{}, newError(KindSchemaMismatch, "decode", "invalid JSON entry")
		}
		return s.decodeREST(gjson.Parse(payload))
	case TransportXML:
		doc := etree.NewDocument()
		if err := doc.ReadFromString(payload); err != nil {
			return Record{}, newError(KindSchemaMismatch, "decode", "invalid XML entry: %v", err)
		}
		if doc.Root() == nil {
			return Record{}, newError(KindSchemaMismatch, "decode", "empty XML entry")
		}
		return s.decodeXML(doc.Root())
	}
	return Record{}, ValidateTransport(t)
}

// Encode renders a record in the wire format of t.
//
// With fields == nil every set field and every preserved extra of the same
// transport is written; otherwise only the named fields are. REST output is
// a bare entry object, XML output an <entry name="..."> element. Values are
// normalized as Set does; a value of the wrong type is a KindValidation error.
func (s *Schema) Encode(t Transport, name string, rec Record, fields []string) (string, error) {
	norm, err := s.normalizeRecord(rec)
	if err != nil {
		if pe, ok := err.(*Error); ok {
			cp := *pe
			cp.Op = "encode"
			err = &cp
		}
		return "", err
	}
	rec = norm.(Record)
	switch t {
	case TransportREST:
		return s.encodeREST(name, rec, fields)
	case TransportXML:
		elem, err := s.encodeXML(name, rec, fields)
		if err != nil {
			return "", err
		}
		return elementString(elem), nil
	}
	return "", ValidateTransport(t)
}

// restEntries returns the entry objects of a REST read reply
// ({"result": {"entry": [...]}}).
func restEntries(body gjson.Result) []gjson.Result {
	entries := restChild(restChild(body, "result"), "entry")
	switch {
	case entries.IsArray():
		return entries.Array()
	case entries.IsObject():
		return []gjson.Result{entries}
	}
	return nil
}

// xmlEntries returns the <entry> elements of an XML config read reply.
//
// A get on an entry xpath answers <result><entry .../></result>, a get on a
// collection answers <result><address><entry .../>...</address></result>.
func xmlEntries(root *etree.Element) []*etree.Element {
	result := root.SelectElement("result")
	if result == nil {
		return nil
	}
	if entries := result.SelectElements("entry"); len(entries) > 0 {
		return entries
	}
	var out []*etree.Element
	for _, c := range result.ChildElements() {
		out = append(out, c.SelectElements("entry")...)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var extraKeyEscaper = strings.NewReplacer(`\`, `\\`, `.`, `\.`)

// extraKey joins the wire path of a preserved element into a Record.Extra
// key. Dots inside a segment are escaped so extraPath can split it back.
func extraKey(segs []string) string {
	escaped := make([]string, len(segs))
	for i, s := range segs {
		escaped[i] = extraKeyEscaper.Replace(s)
	}
	return strings.Join(escaped, ".")
}

// extraPath splits a Record.Extra key on its unescaped dots
func extraPath(key string) []string {
	var segs []string
	var cur strings.Builder
	for i := 0; i < len(key); i++ {
		switch c := key[i]; {
		case c == '\\' && i+1 < len(key):
			i++
			cur.WriteByte(key[i])
		case c == '.':
			segs = append(segs, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(segs, cur.String())
}
