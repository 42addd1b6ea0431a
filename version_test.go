// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import "testing"

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    Version
		wantErr bool
	}{
		{input: "10.1", want: Version{Major: 10, Minor: 1}},
		{input: "10.2.4", want: Version{Major: 10, Minor: 2, Patch: 4}},
		{input: "11.0.2-h1", want: Version{Major: 11, Minor: 0, Patch: 2, Hotfix: "h1"}},
		{input: " 9.1.16 ", want: Version{Major: 9, Minor: 1, Patch: 16}},
		{input: "", wantErr: true},
		{input: "10", wantErr: true},
		{input: "10.x", wantErr: true},
		{input: "10.1.2.3", wantErr: true},
		{input: "-1.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseVersion(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVersion(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMustParseVersion_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParseVersion() did not panic on bad input")
		}
	}()
	MustParseVersion("eleven")
}

func TestVersion_Compare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"10.1", "10.1.0", 0},
		{"10.2", "10.1.9", 1},
		{"9.1.16", "10.0", -1},
		{"11.0.2-h1", "11.0.2", 0},
		{"11.0.3", "11.0.2-h4", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			a, b := MustParseVersion(tt.a), MustParseVersion(tt.b)
			if got := a.Compare(b); got != tt.want {
				t.Errorf("Compare() = %d, want %d", got, tt.want)
			}
			if got := a.AtLeast(b); got != (tt.want >= 0) {
				t.Errorf("AtLeast() = %v", got)
			}
		})
	}
}

func TestVersion_Strings(t *testing.T) {
	v := MustParseVersion("10.2.4-h3")
	if v.String() != "10.2.4-h3" {
		t.Errorf("String() = %q", v.String())
	}
	if v.APIVersion() != "v10.2" {
		t.Errorf("APIVersion() = %q, want v10.2", v.APIVersion())
	}
	if (Version{}).IsZero() != true || v.IsZero() {
		t.Error("IsZero() mismatch")
	}
}
