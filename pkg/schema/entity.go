// Package schema holds the static property tables of the CRM entities that
// destinations write, and resolves arbitrary input keys to canonical
// property names.
package schema

import (
	"sort"
	"strings"
)

// EntityDescriptor describes one CRM object type. It is immutable after
// construction and safe to share.
type EntityDescriptor struct {
	name                  string
	known                 map[string]struct{}
	aliases               map[string]string
	defaultUniqueProperty string
}

// NewEntityDescriptor builds a descriptor from its property tables. The
// inputs are copied.
func NewEntityDescriptor(name string, known []string, aliases map[string]string, uniqueProperty string) *EntityDescriptor {
	d := &EntityDescriptor{
		name:                  name,
		known:                 make(map[string]struct{}, len(known)),
		aliases:               make(map[string]string, len(aliases)),
		defaultUniqueProperty: uniqueProperty,
	}
	for _, k := range known {
		d.known[k] = struct{}{}
	}
	for k, v := range aliases {
		d.aliases[k] = v
	}
	return d
}

// Name returns the entity name
func (d *EntityDescriptor) Name() string { return d.name }

// DefaultUniqueProperty returns the property searched by default, or "".
func (d *EntityDescriptor) DefaultUniqueProperty() string { return d.defaultUniqueProperty }

// IsKnown reports whether key is a canonical property of the entity.
func (d *EntityDescriptor) IsKnown(key string) bool {
	_, ok := d.known[key]
	return ok
}

// KnownProperties returns the canonical properties in sorted order.
func (d *EntityDescriptor) KnownProperties() []string {
	out := make([]string, 0, len(d.known))
	for k := range d.known {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Alias returns the canonical property an alias maps to.
func (d *EntityDescriptor) Alias(key string) (string, bool) {
	v, ok := d.aliases[key]
	return v, ok
}

// Resolve maps an input key to a canonical property name. The first rule
// that applies wins:
//
//  1. key is a known property: unchanged
//  2. key is an alias: its canonical property
//  3. lower-cased key is a known property: lower-cased key
//  4. otherwise: lower-cased key
//
// Resolve never rejects a key.
func (d *EntityDescriptor) Resolve(key string) string {
	if _, ok := d.known[key]; ok {
		return key
	}
	if canonical, ok := d.aliases[key]; ok {
		return canonical
	}
	return strings.ToLower(key)
}
