// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package docop implements document operations: scripts of retain,
// insert, delete, attribute and annotation components over a
// structured document. A document is itself represented by the
// operation that inserts it into the empty document (an
// "initialization").
//
// Positions and lengths are counted in runes. Each element start and
// element end occupies one position.
package docop

import (
	"sort"
	"unicode/utf8"
)

// Component is one step of an operation. It is implemented by
// Retain, Characters, DeleteCharacters, ElementStart, ElementEnd,
// DeleteElementStart, DeleteElementEnd, ReplaceAttributes,
// UpdateAttributes and AnnotationBoundary.
type Component interface {
	component()
}

// Retain skips N positions of the input document.
type Retain struct{ N int }

// Characters inserts Text.
type Characters struct{ Text string }

// DeleteCharacters deletes Text, which must match the input document.
type DeleteCharacters struct{ Text string }

// ElementStart inserts the start of an element.
type ElementStart struct {
	Tag   string
	Attrs Attributes
}

// ElementEnd inserts the end of the innermost inserted element.
type ElementEnd struct{}

// DeleteElementStart deletes an element start, which must match the
// input document.
type DeleteElementStart struct {
	Tag   string
	Attrs Attributes
}

// DeleteElementEnd deletes the end of the innermost deleted element.
type DeleteElementEnd struct{}

// ReplaceAttributes replaces the attributes of the element start at
// the current position. It consumes and produces one position.
type ReplaceAttributes struct {
	Old, New Attributes
}

// UpdateAttributes modifies individual attributes of the element
// start at the current position. It consumes and produces one
// position.
type UpdateAttributes struct {
	Update AttributesUpdate
}

// AnnotationBoundary changes the set of annotations that apply to
// the components that follow it. Ends closes keys opened by earlier
// boundaries; Changes opens (or reopens) keys.
type AnnotationBoundary struct {
	Ends    []string
	Changes []AnnotationChange
}

// AnnotationChange changes the value of annotation Key from Old to
// New. A nil value means the key is absent.
type AnnotationChange struct {
	Key      string
	Old, New *string
}

func (Retain) component()             {}
func (Characters) component()         {}
func (DeleteCharacters) component()   {}
func (ElementStart) component()       {}
func (ElementEnd) component()         {}
func (DeleteElementStart) component() {}
func (DeleteElementEnd) component()   {}
func (ReplaceAttributes) component()  {}
func (UpdateAttributes) component()   {}
func (AnnotationBoundary) component() {}

// Empty tells whether the boundary neither ends nor changes a key.
func (b AnnotationBoundary) Empty() bool {
	return len(b.Ends) == 0 && len(b.Changes) == 0
}

// Op is an operation: an ordered sequence of components. Ops are
// treated as immutable once built.
type Op []Component

// Attributes are the attributes of an element.
type Attributes map[string]string

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal tells whether a and b hold the same attributes. A nil map is
// equal to an empty one.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || v != w {
			return false
		}
	}
	return true
}

// Update returns a copy of a with u applied.
func (a Attributes) Update(u AttributesUpdate) Attributes {
	b := make(Attributes, len(a))
	for k, v := range a {
		b[k] = v
	}
	for _, c := range u {
		if c.New == nil {
			delete(b, c.Name)
		} else {
			b[c.Name] = *c.New
		}
	}
	return b
}

// AttributesUpdate is a list of attribute changes, at most one per
// name.
type AttributesUpdate []AttributeChange

// AttributeChange changes attribute Name from Old to New. A nil value
// means the attribute is absent.
type AttributeChange struct {
	Name     string
	Old, New *string
}

// Invert returns the update that undoes u.
func (u AttributesUpdate) Invert() AttributesUpdate {
	v := make(AttributesUpdate, len(u))
	for i, c := range u {
		v[i] = AttributeChange{c.Name, c.New, c.Old}
	}
	return v
}

// Compose returns the update equivalent to u followed by v.
func (u AttributesUpdate) Compose(v AttributesUpdate) AttributesUpdate {
	byName := make(map[string]AttributeChange, len(u)+len(v))
	for _, c := range u {
		byName[c.Name] = c
	}
	for _, c := range v {
		if prev, ok := byName[c.Name]; ok {
			c.Old = prev.Old
		}
		byName[c.Name] = c
	}
	w := make(AttributesUpdate, 0, len(byName))
	for _, c := range byName {
		w = append(w, c)
	}
	sort.Slice(w, func(i, j int) bool { return w[i].Name < w[j].Name })
	return w
}

// Value returns a pointer to s, for use as an annotation or
// attribute value.
func Value(s string) *string { return &s }

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// InputLen returns the length of the document op applies to.
func InputLen(op Op) int {
	var n int
	for _, c := range op {
		switch c := c.(type) {
		case Retain:
			n += c.N
		case DeleteCharacters:
			n += runeLen(c.Text)
		case DeleteElementStart, DeleteElementEnd, ReplaceAttributes, UpdateAttributes:
			n++
		}
	}
	return n
}

// OutputLen returns the length of the document op produces.
func OutputLen(op Op) int {
	var n int
	for _, c := range op {
		switch c := c.(type) {
		case Retain:
			n += c.N
		case Characters:
			n += runeLen(c.Text)
		case ElementStart, ElementEnd, ReplaceAttributes, UpdateAttributes:
			n++
		}
	}
	return n
}

// IsInitialization tells whether op applies to the empty document,
// that is, whether it consists only of insertions and annotation
// boundaries.
func IsInitialization(op Op) bool {
	return InputLen(op) == 0
}

// Text returns the concatenated text inserted by op.
func Text(op Op) string {
	var b []byte
	for _, c := range op {
		if c, ok := c.(Characters); ok {
			b = append(b, c.Text...)
		}
	}
	return string(b)
}
