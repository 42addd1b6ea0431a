// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a PAN-OS software version such as 10.2.4-h3.
//
// Only Major and Minor take part in schema and transport selection; Patch and
// Hotfix are kept for display.
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Hotfix string
}

// ParseVersion parses a PAN-OS version string ("10.1", "10.2.4", "11.0.2-h1").
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("version cannot be empty")
	}

	var v Version
	base := s
	if i := strings.IndexByte(s, '-'); i >= 0 {
		base, v.Hotfix = s[:i], s[i+1:]
	}

	parts := strings.Split(base, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, fmt.Errorf("invalid version %q (want major.minor[.patch])", s)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: bad component %q", s, p)
		}
		nums[i] = n
	}
	v.Major, v.Minor = nums[0], nums[1]
	if len(nums) == 3 {
		v.Patch = nums[2]
	}
	return v, nil
}

// MustParseVersion is like ParseVersion but panics on error. Intended for
// package-level kind declarations.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether the version is unset.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0 && v.Patch == 0 && v.Hotfix == ""
}

// Compare compares major.minor.patch and returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpInt(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpInt(v.Minor, o.Minor)
	default:
		return cmpInt(v.Patch, o.Patch)
	}
}

// AtLeast reports whether v >= o.
func (v Version) AtLeast(o Version) bool {
	return v.Compare(o) >= 0
}

// APIVersion returns the REST API version segment, e.g. "v10.2".
func (v Version) APIVersion() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Hotfix != "" {
		s += "-" + v.Hotfix
	}
	return s
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
