// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// UpdateStrategy selects how an update reaches the device
type UpdateStrategy int

const (
	// UpdateReplace sends the full record, preserved extras included
	UpdateReplace UpdateStrategy = iota

	// UpdatePartial sends only the changed fields
	UpdatePartial
)

// String returns the string representation of an UpdateStrategy
func (u UpdateStrategy) String() string {
	switch u {
	case UpdateReplace:
		return "replace"
	case UpdatePartial:
		return "partial"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(u))
	}
}

// TransportRule is one row of a kind's transport table.
//
// The rule with the highest Since not above the device version applies, so a
// kind served by the XML API on older releases can move to REST by adding a
// second rule.
type TransportRule struct {
	Since     Version
	Transport Transport
	Update    UpdateStrategy
}

// Kind declares one configuration entity kind.
type Kind struct {
	// Name identifies the kind in errors and logs (e.g. "address")
	Name string

	// Collection is the REST resource, e.g. "Objects/Addresses"
	Collection string

	// XMLPath is the element path of the collection below the scope root,
	// e.g. "address" or "profiles/virus"
	XMLPath string

	// Devices lists the device kinds the entity exists on; empty means all
	Devices []DeviceKind

	// Scopes lists the scope types the entity can live in. The first one is
	// the default when the device context names no usable scope. Empty means
	// the entity lives directly below the device root (Panorama templates,
	// device groups).
	Scopes []ScopeType

	// MaxNameLength overrides DefaultMaxNameLength for object names
	MaxNameLength int

	Schema *Schema
	Rules  []TransportRule
}

// Entity returns the "<kind>/<name>" label used in errors and logs
func (k *Kind) Entity(name string) string {
	return k.Name + "/" + name
}

// Validate checks the declaration
func (k *Kind) Validate() error {
	if strings.TrimSpace(k.Name) == "" {
		return fmt.Errorf("kind name cannot be empty")
	}
	if k.Schema == nil {
		return fmt.Errorf("kind %q: schema cannot be nil", k.Name)
	}
	if len(k.Rules) == 0 {
		return fmt.Errorf("kind %q: at least one transport rule is required", k.Name)
	}
	seen := map[Version]bool{}
	for _, r := range k.Rules {
		if err := ValidateTransport(r.Transport); err != nil {
			return fmt.Errorf("kind %q: %w", k.Name, err)
		}
		if seen[r.Since] {
			return fmt.Errorf("kind %q: duplicate rule for version %s", k.Name, r.Since)
		}
		seen[r.Since] = true
		if r.Transport == TransportREST && k.Collection == "" {
			return fmt.Errorf("kind %q: REST rule without collection", k.Name)
		}
		if r.Transport == TransportXML && k.XMLPath == "" {
			return fmt.Errorf("kind %q: XML rule without xml path", k.Name)
		}
	}
	return nil
}

// Rule returns the transport rule applying to a device version
func (k *Kind) Rule(v Version) (TransportRule, error) {
	var (
		best  TransportRule
		found bool
	)
	for _, r := range k.Rules {
		if !v.AtLeast(r.Since) {
			continue
		}
		if !found || r.Since.Compare(best.Since) > 0 {
			best, found = r, true
		}
	}
	if !found {
		return TransportRule{}, newError(KindScope, "resolve", "kind %q is not available on PAN-OS %s", k.Name, v)
	}
	return best, nil
}

func (k *Kind) supports(d DeviceKind) bool {
	if len(k.Devices) == 0 {
		return true
	}
	for _, x := range k.Devices {
		if x == d {
			return true
		}
	}
	return false
}

func (k *Kind) allowsScope(t ScopeType) bool {
	for _, s := range k.Scopes {
		if s == t {
			return true
		}
	}
	return false
}

// Registry maps kind names to their declarations.
//
// Registrations happen at program start; lookups are safe for concurrent
// use. The zero value is an empty registry ready to use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{kinds: map[string]*Kind{}}
}

// Register validates and adds a kind
func (r *Registry) Register(k *Kind) error {
	if err := k.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[k.Name]; ok {
		return fmt.Errorf("kind %q already registered", k.Name)
	}
	if r.kinds == nil {
		r.kinds = map[string]*Kind{}
	}
	r.kinds[k.Name] = k
	return nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(k *Kind) *Kind {
	if err := r.Register(k); err != nil {
		panic(err)
	}
	return k
}

// Lookup returns a registered kind
func (r *Registry) Lookup(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Names returns the registered kind names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for n := range r.kinds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
