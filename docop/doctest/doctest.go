// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package doctest generates random documents and random well-formed
// operations over them, for property tests.
package doctest

import (
	"math/rand"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/wavecrypt/docop"
)

// Generator generates random documents and ops. Text is generated by
// gofuzz and may contain any printable rune.
type Generator struct {
	rnd  *rand.Rand
	fz   *fuzz.Fuzzer
	tags []string
}

// New returns a generator seeded with seed.
func New(seed int64) *Generator {
	return &Generator{
		rnd:  rand.New(rand.NewSource(seed)),
		fz:   fuzz.New().NilChance(0).RandSource(rand.NewSource(seed + 1)),
		tags: []string{"p", "b", "i", "line"},
	}
}

// Text returns a non-empty random string of at most max runes.
func (g *Generator) Text(max int) string {
	var s string
	for {
		g.fz.Fuzz(&s)
		r := []rune(s)
		if len(r) == 0 {
			continue
		}
		if len(r) > max {
			r = r[:1+g.rnd.Intn(max)]
		}
		return string(r)
	}
}

func (g *Generator) attrs() docop.Attributes {
	if g.rnd.Intn(2) == 0 {
		return nil
	}
	return docop.Attributes{"style": g.tags[g.rnd.Intn(len(g.tags))]}
}

func (g *Generator) element(b *docop.Builder, depth int) {
	b.ElementStart(g.tags[g.rnd.Intn(len(g.tags))], g.attrs())
	for n := g.rnd.Intn(3); n > 0; n-- {
		g.content(b, depth+1)
	}
	b.ElementEnd()
}

func (g *Generator) content(b *docop.Builder, depth int) {
	if depth < 3 && g.rnd.Intn(4) == 0 {
		g.element(b, depth)
		return
	}
	b.Characters(g.Text(12))
}

// Doc returns a random document initialization with text and nested
// elements.
func (g *Generator) Doc() docop.Op {
	var b docop.Builder
	for n := 1 + g.rnd.Intn(6); n > 0; n-- {
		g.content(&b, 0)
	}
	return b.Build()
}

// Items flattens a document initialization into unit components: one
// Characters per rune, and the element starts and ends.
func Items(doc docop.Op) []docop.Component {
	var items []docop.Component
	for _, c := range doc {
		switch c := c.(type) {
		case docop.Characters:
			for _, r := range c.Text {
				items = append(items, docop.Characters{Text: string(r)})
			}
		case docop.ElementStart, docop.ElementEnd:
			items = append(items, c)
		}
	}
	return items
}

// Op returns a random well-formed op whose input is doc. It retains,
// inserts text and elements, deletes text runs and whole leaf
// elements, and replaces element attributes.
func (g *Generator) Op(doc docop.Op) docop.Op {
	var (
		b     docop.Builder
		items = Items(doc)
	)
	for i := 0; i < len(items); {
		if g.rnd.Intn(5) == 0 {
			g.content(&b, 2)
		}
		switch it := items[i].(type) {
		case docop.Characters:
			j := i + 1
			for j < len(items) && j-i < 8 {
				if _, ok := items[j].(docop.Characters); !ok {
					break
				}
				j++
			}
			j = i + 1 + g.rnd.Intn(j-i)
			if g.rnd.Intn(3) == 0 {
				b.DeleteCharacters(text(items[i:j]))
			} else {
				b.Retain(j - i)
			}
			i = j
		case docop.ElementStart:
			if end, ok := leaf(items, i); ok && g.rnd.Intn(4) == 0 {
				b.DeleteElementStart(it.Tag, it.Attrs)
				b.DeleteCharacters(text(items[i+1 : end]))
				b.DeleteElementEnd()
				i = end + 1
				continue
			}
			if g.rnd.Intn(4) == 0 {
				b.ReplaceAttributes(it.Attrs, g.attrs())
			} else {
				b.Retain(1)
			}
			i++
		default:
			b.Retain(1)
			i++
		}
	}
	if g.rnd.Intn(3) == 0 {
		g.content(&b, 2)
	}
	return b.Build()
}

// History returns a document initialization followed by n random ops,
// each applying to the result of the previous ones.
func (g *Generator) History(n int) []docop.Op {
	doc := g.Doc()
	ops := []docop.Op{doc}
	for ; n > 0; n-- {
		op := g.Op(doc)
		next, err := docop.Compose(doc, op)
		if err != nil {
			panic(err)
		}
		ops = append(ops, op)
		doc = next
	}
	return ops
}

// leaf tells whether the element starting at items[i] contains only
// text, and returns the index of its end.
func leaf(items []docop.Component, i int) (int, bool) {
	for j := i + 1; j < len(items); j++ {
		switch items[j].(type) {
		case docop.ElementEnd:
			return j, true
		case docop.Characters:
		default:
			return 0, false
		}
	}
	return 0, false
}

func text(items []docop.Component) string {
	var s []byte
	for _, it := range items {
		s = append(s, it.(docop.Characters).Text...)
	}
	return string(s)
}
