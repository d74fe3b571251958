// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package piecetable

import (
	"fmt"
	"unicode/utf8"

	"github.com/grailbio/wavecrypt/docop"
	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/log"
	"github.com/grailbio/wavecrypt/opcrypt"
)

// replayer holds the state of one op's replay.
type replayer struct {
	t    *Table
	root *node
	// cursor is the current position in the document.
	cursor int
	// active is the ciphertext of the most recently opened cipher
	// scope; inserted text comes from its plaintext, starting at
	// offset.
	active CipherID
	offset int
}

// Replay applies op, the next operation in the document's history,
// to the table. The op must be well-formed (errors.Malformed
// otherwise) and consistent with the table (errors.Provenance
// otherwise). On error the table is left unchanged.
//
// Inserted text is attributed to the ciphertext of the most recently
// opened cipher annotation with a value: position i of the text is
// rune offset+i of that ciphertext's plaintext, where offset counts
// the text inserted under the same ciphertext earlier in op.
func (t *Table) Replay(op docop.Op) error {
	if err := docop.Validate(op); err != nil {
		return err
	}
	if n := docop.InputLen(op); n != t.Len() {
		return errors.E(errors.Provenance, fmt.Sprintf("op spans %d positions, document has %d", n, t.Len()))
	}
	last := t.last
	r := replayer{t: t, root: t.root}
	for i, c := range op {
		if err := r.apply(c); err != nil {
			t.unregisterAfter(last)
			return errors.E(errors.Provenance, fmt.Sprintf("component %d at position %d", i, r.cursor), err)
		}
	}
	t.root = r.root
	if log.At(log.Debug) {
		log.Debug.Printf("piecetable: replayed %d components: %d pieces, length %d", len(op), t.NumPieces(), t.Len())
	}
	return nil
}

func (r *replayer) apply(c docop.Component) error {
	switch c := c.(type) {
	case docop.AnnotationBoundary:
		for _, ch := range c.Changes {
			if !opcrypt.IsCipherKey(ch.Key) || ch.New == nil {
				continue
			}
			if id := r.t.register(*ch.New); id != r.active {
				r.active, r.offset = id, 0
			}
		}
	case docop.Characters:
		if r.active == Structural {
			return errors.New("characters outside of a cipher scope")
		}
		n := utf8.RuneCountInString(c.Text)
		r.insert(Piece{r.active, r.offset, n})
		r.offset += n
	case docop.ElementStart, docop.ElementEnd:
		r.insert(structural)
	case docop.Retain:
		if r.cursor+c.N > length(r.root) {
			return errors.New(fmt.Sprintf("retain %d past end of document", c.N))
		}
		r.cursor += c.N
	case docop.DeleteCharacters:
		return r.delete(utf8.RuneCountInString(c.Text), false)
	case docop.DeleteElementStart, docop.DeleteElementEnd:
		return r.delete(1, true)
	case docop.ReplaceAttributes, docop.UpdateAttributes:
		// The attribute change consumes the element start it applies to.
		p, _, ok := find(r.root, r.cursor)
		if !ok || !p.IsStructural() {
			return errors.New("attribute change outside of an element start")
		}
		r.cursor++
	}
	return nil
}

func (r *replayer) insert(p Piece) {
	l, rest := split(r.root, r.cursor)
	r.root = join(l, p, rest)
	r.cursor += p.Length
}

// delete removes n positions at the cursor, which must all be
// structural or all be text.
func (r *replayer) delete(n int, structural bool) error {
	if r.cursor+n > length(r.root) {
		return errors.New(fmt.Sprintf("deleting %d positions past end of document", n))
	}
	l, rest := split(r.root, r.cursor)
	mid, tail := split(rest, n)
	var err error
	walk(mid, 0, 0, func(e Entry) bool {
		if e.IsStructural() != structural {
			if structural {
				err = errors.New("deleting an element over text")
			} else {
				err = errors.New("deleting characters over an element")
			}
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	r.root = concat(l, tail)
	return nil
}
