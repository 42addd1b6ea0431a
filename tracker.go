// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import "sort"

// Tracker records which fields of an object were assigned since the last
// sync and decides which of them actually differ from the baseline.
type Tracker struct {
	dirty map[string]struct{}
}

// MarkDirty records an assignment to field
func (t *Tracker) MarkDirty(field string) {
	if t.dirty == nil {
		t.dirty = map[string]struct{}{}
	}
	t.dirty[field] = struct{}{}
}

// Marked returns the assigned fields, sorted
func (t *Tracker) Marked() []string {
	out := make([]string, 0, len(t.dirty))
	for f := range t.dirty {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Diff returns the assigned fields whose working value differs from the
// baseline, sorted by name. A field set back to its baseline value is not
// part of the diff.
func (t *Tracker) Diff(s *Schema, baseline, working Record) []string {
	var out []string
	for _, f := range t.Marked() {
		if !s.Equal(f, baseline.Values[f], working.Values[f]) {
			out = append(out, f)
		}
	}
	return out
}

// Clear forgets every assignment
func (t *Tracker) Clear() {
	t.dirty = nil
}
