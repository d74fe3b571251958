// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package docop

import (
	"strconv"
	"strings"
)

// String returns a concise, single-line rendering of op, for example
//
//	|| { "cipher/add/1": null -> "…" }; __4; ++"****"; || { end "cipher/add/1" };
//
// The rendering is intended for logs and test failures; it is not
// parsed back.
func (op Op) String() string {
	var b strings.Builder
	for i, c := range op {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeComponent(&b, c)
		b.WriteByte(';')
	}
	return b.String()
}

func quote(v *string) string {
	if v == nil {
		return "null"
	}
	return strconv.Quote(*v)
}

func writeAttrs(b *strings.Builder, attrs Attributes) {
	b.WriteByte('{')
	for i, k := range attrs.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(attrs[k]))
	}
	b.WriteByte('}')
}

func writeComponent(b *strings.Builder, c Component) {
	switch c := c.(type) {
	case Retain:
		b.WriteString("__")
		b.WriteString(strconv.Itoa(c.N))
	case Characters:
		b.WriteString("++")
		b.WriteString(strconv.Quote(c.Text))
	case DeleteCharacters:
		b.WriteString("--")
		b.WriteString(strconv.Quote(c.Text))
	case ElementStart:
		b.WriteString("<< ")
		b.WriteString(c.Tag)
		b.WriteByte(' ')
		writeAttrs(b, c.Attrs)
	case ElementEnd:
		b.WriteString(">>")
	case DeleteElementStart:
		b.WriteString("x<< ")
		b.WriteString(c.Tag)
		b.WriteByte(' ')
		writeAttrs(b, c.Attrs)
	case DeleteElementEnd:
		b.WriteString("x>>")
	case ReplaceAttributes:
		b.WriteString("r@")
		writeAttrs(b, c.Old)
		b.WriteString(" -> ")
		writeAttrs(b, c.New)
	case UpdateAttributes:
		b.WriteString("u@{")
		for i, u := range c.Update {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(u.Name)
			b.WriteString(": ")
			b.WriteString(quote(u.Old))
			b.WriteString(" -> ")
			b.WriteString(quote(u.New))
		}
		b.WriteByte('}')
	case AnnotationBoundary:
		b.WriteString("|| { ")
		for _, ch := range c.Changes {
			b.WriteString(strconv.Quote(ch.Key))
			b.WriteString(": ")
			b.WriteString(quote(ch.Old))
			b.WriteString(" -> ")
			b.WriteString(quote(ch.New))
			b.WriteString(" ")
		}
		for _, k := range c.Ends {
			b.WriteString("end ")
			b.WriteString(strconv.Quote(k))
			b.WriteString(" ")
		}
		b.WriteByte('}')
	default:
		b.WriteString(name(c))
	}
}
