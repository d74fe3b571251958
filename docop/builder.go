// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package docop

// Builder builds operations. It drops empty components and merges
// adjacent retains, insertions and deletions of text, so that two
// builders fed equivalent component streams build equal ops.
//
//	op := new(docop.Builder).Retain(4).Characters(" more").Retain(5).Build()
type Builder struct {
	op Op
}

// Add appends c.
func (b *Builder) Add(c Component) *Builder {
	switch c := c.(type) {
	case Retain:
		return b.Retain(c.N)
	case Characters:
		return b.Characters(c.Text)
	case DeleteCharacters:
		return b.DeleteCharacters(c.Text)
	case AnnotationBoundary:
		return b.AnnotationBoundary(c)
	}
	b.op = append(b.op, c)
	return b
}

func (b *Builder) last() Component {
	if len(b.op) == 0 {
		return nil
	}
	return b.op[len(b.op)-1]
}

// Retain appends Retain{n}.
func (b *Builder) Retain(n int) *Builder {
	if n <= 0 {
		return b
	}
	if r, ok := b.last().(Retain); ok {
		b.op[len(b.op)-1] = Retain{r.N + n}
		return b
	}
	b.op = append(b.op, Retain{n})
	return b
}

// Characters appends Characters{s}.
func (b *Builder) Characters(s string) *Builder {
	if s == "" {
		return b
	}
	if c, ok := b.last().(Characters); ok {
		b.op[len(b.op)-1] = Characters{c.Text + s}
		return b
	}
	b.op = append(b.op, Characters{s})
	return b
}

// DeleteCharacters appends DeleteCharacters{s}.
func (b *Builder) DeleteCharacters(s string) *Builder {
	if s == "" {
		return b
	}
	if c, ok := b.last().(DeleteCharacters); ok {
		b.op[len(b.op)-1] = DeleteCharacters{c.Text + s}
		return b
	}
	b.op = append(b.op, DeleteCharacters{s})
	return b
}

// ElementStart appends ElementStart{tag, attrs}.
func (b *Builder) ElementStart(tag string, attrs Attributes) *Builder {
	b.op = append(b.op, ElementStart{tag, attrs})
	return b
}

// ElementEnd appends ElementEnd{}.
func (b *Builder) ElementEnd() *Builder {
	b.op = append(b.op, ElementEnd{})
	return b
}

// DeleteElementStart appends DeleteElementStart{tag, attrs}.
func (b *Builder) DeleteElementStart(tag string, attrs Attributes) *Builder {
	b.op = append(b.op, DeleteElementStart{tag, attrs})
	return b
}

// DeleteElementEnd appends DeleteElementEnd{}.
func (b *Builder) DeleteElementEnd() *Builder {
	b.op = append(b.op, DeleteElementEnd{})
	return b
}

// ReplaceAttributes appends ReplaceAttributes{old, new}.
func (b *Builder) ReplaceAttributes(old, new Attributes) *Builder {
	b.op = append(b.op, ReplaceAttributes{old, new})
	return b
}

// UpdateAttributes appends UpdateAttributes{u}.
func (b *Builder) UpdateAttributes(u AttributesUpdate) *Builder {
	b.op = append(b.op, UpdateAttributes{u})
	return b
}

// AnnotationBoundary appends ab unless it is empty.
func (b *Builder) AnnotationBoundary(ab AnnotationBoundary) *Builder {
	if ab.Empty() {
		return b
	}
	b.op = append(b.op, ab)
	return b
}

// Start opens key with the given values.
func (b *Builder) Start(key string, old, new *string) *Builder {
	return b.AnnotationBoundary(AnnotationBoundary{Changes: []AnnotationChange{{key, old, new}}})
}

// End closes the given keys.
func (b *Builder) End(keys ...string) *Builder {
	return b.AnnotationBoundary(AnnotationBoundary{Ends: keys})
}

// Build returns the op built so far. The builder may continue to be
// used; later additions do not affect the returned op.
func (b *Builder) Build() Op {
	op := make(Op, len(b.op))
	copy(op, b.op)
	return op
}
