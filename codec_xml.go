// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"strconv"

	"github.com/beevik/etree"
)

// xmlLookup walks the element chain named by segs
func xmlLookup(elem *etree.Element, segs []string) *etree.Element {
	cur := elem
	for _, seg := range segs {
		cur = cur.SelectElement(seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// decodeXML decodes one <entry> (or any container) element into a record
func (s *Schema) decodeXML(entry *etree.Element) (Record, error) {
	rec := NewRecord()
	for _, f := range s.fields {
		elem := xmlLookup(entry, f.segments())
		if elem == nil {
			continue
		}
		v, err := s.decodeXMLValue(f, elem)
		if err != nil {
			return Record{}, err
		}
		rec.Values[f.Name] = v
	}
	s.tree.collectXML(entry, nil, rec.Extra)
	return rec, nil
}

func (s *Schema) decodeXMLValue(f FieldDescriptor, elem *etree.Element) (any, error) {
	switch f.Type {
	case ValueString, ValueInt, ValueBool, ValueEnum:
		if len(elem.ChildElements()) > 0 {
			return nil, mismatch(f.Name, f.Type.String(), "<"+elem.Tag+"> with child elements")
		}
		text := elem.Text()
		switch f.Type {
		case ValueInt:
			return parseCanonicalInt(f.Name, text)
		case ValueBool:
			return parseYesNo(f.Name, text)
		case ValueEnum:
			return checkEnum(f, text)
		}
		return text, nil
	case ValueList:
		out := []string{}
		for _, m := range elem.ChildElements() {
			if m.Tag != "member" || len(m.ChildElements()) > 0 {
				return nil, mismatch(f.Name, "member list", "<"+m.Tag+">")
			}
			out = append(out, m.Text())
		}
		return out, nil
	case ValueObject:
		rec, err := s.sub[f.Name].decodeXML(elem)
		if err != nil {
			return nil, nested(f.Name, err)
		}
		return rec, nil
	case ValueEntries:
		out := []Entry{}
		for _, e := range elem.ChildElements() {
			name := e.SelectAttrValue("name", "")
			if e.Tag != "entry" || name == "" {
				return nil, mismatch(f.Name, "named entry", "<"+e.Tag+">")
			}
			rec, err := s.sub[f.Name].decodeXML(e)
			if err != nil {
				return nil, nested(f.Name, err)
			}
			out = append(out, Entry{Name: name, Record: rec})
		}
		return out, nil
	}
	return nil, mismatch(f.Name, f.Type.String(), elem.Tag)
}

// collectXML stores every child element of elem that no field claims.
// Repeated unknown siblings share one Raw holding all of them in order.
func (n *pathNode) collectXML(elem *etree.Element, prefix []string, extra map[string]Raw) {
	for _, c := range elem.ChildElements() {
		path := append(append([]string(nil), prefix...), c.Tag)
		child, ok := n.children[c.Tag]
		switch {
		case ok && child.leaf:
		case ok && len(c.ChildElements()) > 0:
			child.collectXML(c, path, extra)
		default:
			key := extraKey(path)
			raw := extra[key]
			raw.Transport = TransportXML
			raw.Data += elementString(c)
			extra[key] = raw
		}
	}
}

// encodeXML encodes the named fields of rec (all fields and the preserved
// extras when names is nil) as an <entry name="..."> element.
func (s *Schema) encodeXML(name string, rec Record, names []string) (*etree.Element, error) {
	entry := etree.NewElement("entry")
	if name != "" {
		entry.CreateAttr("name", name)
	}
	if err := s.writeXML(entry, rec, names); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Schema) writeXML(parent *etree.Element, rec Record, names []string) error {
	for _, f := range s.selectFields(names) {
		v, ok := rec.Values[f.Name]
		if !ok || v == nil {
			continue
		}
		elem := ensureChain(parent, f.segments())
		switch f.Type {
		case ValueString, ValueEnum:
			elem.SetText(v.(string))
		case ValueInt:
			elem.SetText(strconv.FormatInt(v.(int64), 10))
		case ValueBool:
			elem.SetText(yesNo(v.(bool)))
		case ValueList:
			for _, m := range v.([]string) {
				elem.CreateElement("member").SetText(m)
			}
		case ValueObject:
			if err := s.sub[f.Name].writeXML(elem, v.(Record), nil); err != nil {
				return err
			}
		case ValueEntries:
			for _, e := range v.([]Entry) {
				child, err := s.sub[f.Name].encodeXML(e.Name, e.Record, nil)
				if err != nil {
					return err
				}
				elem.AddChild(child)
			}
		}
	}
	if names != nil {
		return nil
	}
	for _, path := range sortedKeys(rec.Extra) {
		raw := rec.Extra[path]
		if raw.Transport != TransportXML {
			continue
		}
		segs := extraPath(path)
		at := ensureChain(parent, segs[:len(segs)-1])
		doc := etree.NewDocument()
		if err := doc.ReadFromString(raw.Data); err != nil {
			return newError(KindSchemaMismatch, "encode", "preserved element %q is not valid XML: %v", path, err)
		}
		for _, c := range doc.ChildElements() {
			at.AddChild(c.Copy())
		}
	}
	return nil
}

// ensureChain returns the element at segs below parent, creating missing
// elements and reusing existing ones so that fields sharing a prefix share
// their container.
func ensureChain(parent *etree.Element, segs []string) *etree.Element {
	cur := parent
	for _, seg := range segs {
		next := cur.SelectElement(seg)
		if next == nil {
			next = cur.CreateElement(seg)
		}
		cur = next
	}
	return cur
}

// elementString serializes one element
func elementString(e *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(e.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}
