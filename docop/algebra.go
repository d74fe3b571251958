// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package docop

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/grailbio/wavecrypt/errors"
)

// Algebra is the operational-transform algebra over ops.
// Implementations must satisfy Invert(Invert(a)) == a, and
// Compose(a, Invert(a)) must leave every document unchanged.
type Algebra interface {
	// Compose returns the op equivalent to applying a and then b.
	// The output length of a must equal the input length of b.
	Compose(a, b Op) (Op, error)
	// Invert returns the op that undoes a.
	Invert(a Op) Op
}

// Default is the package's Algebra.
var Default Algebra = algebra{}

type algebra struct{}

func (algebra) Invert(op Op) Op { return Invert(op) }

func (algebra) Compose(a, b Op) (Op, error) { return Compose(a, b) }

// Invert returns the op that undoes op: insertions become deletions
// and vice versa, and attribute and annotation changes are reversed.
func Invert(op Op) Op {
	inv := make(Op, len(op))
	for i, c := range op {
		switch c := c.(type) {
		case Characters:
			inv[i] = DeleteCharacters(c)
		case DeleteCharacters:
			inv[i] = Characters(c)
		case ElementStart:
			inv[i] = DeleteElementStart(c)
		case DeleteElementStart:
			inv[i] = ElementStart(c)
		case ElementEnd:
			inv[i] = DeleteElementEnd{}
		case DeleteElementEnd:
			inv[i] = ElementEnd{}
		case ReplaceAttributes:
			inv[i] = ReplaceAttributes{c.New, c.Old}
		case UpdateAttributes:
			inv[i] = UpdateAttributes{c.Update.Invert()}
		case AnnotationBoundary:
			b := AnnotationBoundary{Ends: append([]string(nil), c.Ends...)}
			for _, ch := range c.Changes {
				b.Changes = append(b.Changes, AnnotationChange{ch.Key, ch.New, ch.Old})
			}
			inv[i] = b
		default:
			inv[i] = c
		}
	}
	return inv
}

// annotations is the set of annotation changes in effect at a point
// of an op.
type annotations map[string]AnnotationChange

func (a annotations) apply(b AnnotationBoundary) {
	for _, k := range b.Ends {
		delete(a, k)
	}
	for _, ch := range b.Changes {
		a[ch.Key] = ch
	}
}

func (a annotations) copy() annotations {
	c := make(annotations, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

func (a annotations) keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// overlay returns the annotations of content annotated by a and then
// by b: a key set by both goes from a's old value to b's new value.
func overlay(a, b annotations) annotations {
	c := a.copy()
	for k, ch := range b {
		if prev, ok := c[k]; ok {
			ch.Old = prev.Old
		}
		c[k] = ch
	}
	return c
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// iter walks the non-boundary components of an op, splitting them as
// they are partially consumed and tracking the annotations in effect.
type iter struct {
	op   Op
	next int
	head Component
	ann  annotations
}

func newIter(op Op) *iter {
	return &iter{op: op, ann: make(annotations)}
}

// peek returns the current component, or nil at the end of the op.
func (it *iter) peek() Component {
	for it.head == nil && it.next < len(it.op) {
		c := it.op[it.next]
		it.next++
		if b, ok := c.(AnnotationBoundary); ok {
			it.ann.apply(b)
			continue
		}
		it.head = c
	}
	return it.head
}

// advance consumes n positions of the current component.
func (it *iter) advance(n int) {
	switch c := it.head.(type) {
	case Retain:
		if c.N > n {
			it.head = Retain{c.N - n}
			return
		}
	case Characters:
		if _, rest := splitRunes(c.Text, n); rest != "" {
			it.head = Characters{rest}
			return
		}
	case DeleteCharacters:
		if _, rest := splitRunes(c.Text, n); rest != "" {
			it.head = DeleteCharacters{rest}
			return
		}
	}
	it.head = nil
}

func splitRunes(s string, n int) (prefix, rest string) {
	i := 0
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i], s[i:]
}

// emitter builds a composed op, emitting annotation boundaries
// whenever the annotations wanted for the next component differ from
// those in effect.
type emitter struct {
	b    Builder
	open annotations
}

func (e *emitter) emit(c Component, want annotations) {
	var ab AnnotationBoundary
	for _, k := range e.open.keys() {
		if _, ok := want[k]; !ok {
			ab.Ends = append(ab.Ends, k)
		}
	}
	for _, k := range want.keys() {
		ch := want[k]
		if prev, ok := e.open[k]; !ok || !sameValue(prev.Old, ch.Old) || !sameValue(prev.New, ch.New) {
			ab.Changes = append(ab.Changes, ch)
		}
	}
	e.b.AnnotationBoundary(ab)
	e.open = want.copy()
	e.b.Add(c)
}

func (e *emitter) finish() Op {
	e.b.AnnotationBoundary(AnnotationBoundary{Ends: e.open.keys()})
	return e.b.Build()
}

func isDelete(c Component) bool {
	switch c.(type) {
	case DeleteCharacters, DeleteElementStart, DeleteElementEnd:
		return true
	}
	return false
}

func isInsert(c Component) bool {
	switch c.(type) {
	case Characters, ElementStart, ElementEnd:
		return true
	}
	return false
}

// outputLen returns the number of positions c produces.
func outputLen(c Component) int {
	switch c := c.(type) {
	case Retain:
		return c.N
	case Characters:
		return runeLen(c.Text)
	}
	return 1
}

// inputLen returns the number of positions c consumes.
func inputLen(c Component) int {
	switch c := c.(type) {
	case Retain:
		return c.N
	case DeleteCharacters:
		return runeLen(c.Text)
	}
	return 1
}

// Compose returns the op equivalent to applying a and then b. It
// fails with errors.Malformed if the output length of a differs from
// the input length of b, or if b deletes content that a does not
// produce. Composing a document initialization with an op applies the
// op to the document.
//
// Annotations of content deleted by a are those of a overlaid with
// those of b; annotations of content inserted by b are those of b;
// other content carries the overlay of a's and b's annotations.
func Compose(a, b Op) (Op, error) {
	var (
		ai, bi = newIter(a), newIter(b)
		out    = emitter{open: make(annotations)}
	)
	for {
		ac, bc := ai.peek(), bi.peek()
		if ac == nil && bc == nil {
			break
		}
		if isDelete(ac) {
			out.emit(ac, overlay(ai.ann, bi.ann))
			ai.head = nil
			continue
		}
		if isInsert(bc) {
			out.emit(bc, bi.ann)
			bi.head = nil
			continue
		}
		if ac == nil || bc == nil {
			return nil, errors.E(errors.Malformed, fmt.Sprintf("compose: length mismatch: %d != %d", OutputLen(a), InputLen(b)))
		}
		n := outputLen(ac)
		if m := inputLen(bc); m < n {
			n = m
		}
		c, err := composeComponents(ac, bc, n)
		if err != nil {
			return nil, err
		}
		if c != nil {
			out.emit(c, overlay(ai.ann, bi.ann))
		}
		ai.advance(n)
		bi.advance(n)
	}
	return out.finish(), nil
}

// composeComponents composes the first n positions of the output of
// ac with the first n positions of the input of bc. It returns nil if
// they cancel out.
func composeComponents(ac, bc Component, n int) (Component, error) {
	mismatch := func() (Component, error) {
		return nil, errors.E(errors.Malformed, fmt.Sprintf("compose: %s cannot be followed by %s", name(ac), name(bc)))
	}
	switch a := ac.(type) {
	case Retain:
		switch b := bc.(type) {
		case Retain:
			return Retain{n}, nil
		case DeleteCharacters:
			prefix, _ := splitRunes(b.Text, n)
			return DeleteCharacters{prefix}, nil
		default:
			return bc, nil
		}
	case Characters:
		prefix, _ := splitRunes(a.Text, n)
		switch b := bc.(type) {
		case Retain:
			return Characters{prefix}, nil
		case DeleteCharacters:
			if deleted, _ := splitRunes(b.Text, n); deleted != prefix {
				return nil, errors.E(errors.Malformed, fmt.Sprintf("compose: deleted characters %q do not match %q", deleted, prefix))
			}
			return nil, nil
		}
	case ElementStart:
		switch b := bc.(type) {
		case Retain:
			return a, nil
		case DeleteElementStart:
			if a.Tag != b.Tag || !a.Attrs.Equal(b.Attrs) {
				return nil, errors.E(errors.Malformed, fmt.Sprintf("compose: deleted element %q does not match %q", b.Tag, a.Tag))
			}
			return nil, nil
		case ReplaceAttributes:
			return ElementStart{a.Tag, b.New}, nil
		case UpdateAttributes:
			return ElementStart{a.Tag, a.Attrs.Update(b.Update)}, nil
		}
	case ElementEnd:
		switch bc.(type) {
		case Retain:
			return a, nil
		case DeleteElementEnd:
			return nil, nil
		}
	case ReplaceAttributes:
		switch b := bc.(type) {
		case Retain:
			return a, nil
		case ReplaceAttributes:
			return ReplaceAttributes{a.Old, b.New}, nil
		case UpdateAttributes:
			return ReplaceAttributes{a.Old, a.New.Update(b.Update)}, nil
		case DeleteElementStart:
			return DeleteElementStart{b.Tag, a.Old}, nil
		case DeleteElementEnd:
			return nil, errors.E(errors.Malformed, "compose: attributes of an element end")
		}
	case UpdateAttributes:
		switch b := bc.(type) {
		case Retain:
			return a, nil
		case UpdateAttributes:
			return UpdateAttributes{a.Update.Compose(b.Update)}, nil
		case ReplaceAttributes:
			return ReplaceAttributes{b.Old.Update(a.Update.Invert()), b.New}, nil
		case DeleteElementStart:
			return DeleteElementStart{b.Tag, b.Attrs.Update(a.Update.Invert())}, nil
		}
	}
	return mismatch()
}

// ComposeAll composes ops in order. It returns nil for no ops.
func ComposeAll(alg Algebra, ops ...Op) (Op, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	acc := ops[0]
	for i, op := range ops[1:] {
		var err error
		if acc, err = alg.Compose(acc, op); err != nil {
			return nil, errors.E(fmt.Sprintf("composing op %d", i+1), err)
		}
	}
	return acc, nil
}
