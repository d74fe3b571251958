// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package piecetable tracks the provenance of every position of an
// encrypted document. Replaying the document's obfuscated operation
// history into a Table partitions the document into pieces, each of
// which names the ciphertext its content was encrypted in and the
// range of that ciphertext's plaintext it corresponds to. A key
// holder can then recover the plaintext of the current document by
// decrypting only the ciphertexts still in use.
package piecetable

import (
	"fmt"
	"sort"

	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/must"
	"github.com/willf/bitset"
)

// CipherID identifies a ciphertext within one document's table. IDs
// are assigned from 1 in the order ciphertexts are first observed and
// are never reused. Zero identifies structural content.
type CipherID uint32

// Structural is the CipherID of structural (element) positions.
const Structural CipherID = 0

// Piece is a contiguous run of document positions whose content is
// the plaintext of ciphertext CipherID, runes [Offset, Offset+Length).
// A structural piece covers one element start or end: it has
// CipherID Structural, offset 0 and length 1.
type Piece struct {
	CipherID CipherID
	Offset   int
	Length   int
}

// IsStructural tells whether p covers an element start or end.
func (p Piece) IsStructural() bool { return p.CipherID == Structural }

func (p Piece) String() string {
	if p.IsStructural() {
		return "<>"
	}
	return fmt.Sprintf("%d[%d:%d]", p.CipherID, p.Offset, p.Offset+p.Length)
}

// split splits p after d positions; 0 < d < p.Length.
func (p Piece) split(d int) (Piece, Piece) {
	must.Truef(d > 0 && d < p.Length, "split %v at %d", p, d)
	return Piece{p.CipherID, p.Offset, d}, Piece{p.CipherID, p.Offset + d, p.Length - d}
}

var structural = Piece{Structural, 0, 1}

// Entry is a piece together with its position in the document.
type Entry struct {
	Position int
	Piece
}

// Table is the piece table of one document, together with the
// registry of ciphertexts its pieces refer to. The zero Table is an
// empty table. A Table is not safe for concurrent mutation.
type Table struct {
	root        *node
	ciphertexts map[CipherID]string
	ids         map[string]CipherID
	last        CipherID
}

// New returns an empty table.
func New() *Table {
	return new(Table)
}

// Len returns the length of the document.
func (t *Table) Len() int { return length(t.root) }

// NumPieces returns the number of pieces in the table.
func (t *Table) NumPieces() int { return count(t.root) }

// PieceAt returns the entry of the piece covering position pos.
func (t *Table) PieceAt(pos int) (Entry, bool) {
	p, at, ok := find(t.root, pos)
	return Entry{at, p}, ok
}

// Range calls fn, in position order, for every piece that overlaps
// [start, limit), until fn returns false.
func (t *Table) Range(start, limit int, fn func(Entry) bool) {
	walk(t.root, 0, start, func(e Entry) bool {
		if e.Position >= limit {
			return false
		}
		return fn(e)
	})
}

// Pieces returns all entries of the table in position order.
func (t *Table) Pieces() []Entry {
	entries := make([]Entry, 0, t.NumPieces())
	walk(t.root, 0, 0, func(e Entry) bool {
		entries = append(entries, e)
		return true
	})
	return entries
}

// Ciphertext returns the ciphertext registered as id.
func (t *Table) Ciphertext(id CipherID) (string, bool) {
	ct, ok := t.ciphertexts[id]
	return ct, ok
}

// Registry returns a copy of the table's ciphertext registry.
func (t *Table) Registry() map[CipherID]string {
	reg := make(map[CipherID]string, len(t.ciphertexts))
	for id, ct := range t.ciphertexts {
		reg[id] = ct
	}
	return reg
}

// CiphertextsInUse returns the registered ciphertexts that are
// referenced by at least one piece.
func (t *Table) CiphertextsInUse() map[CipherID]string {
	used := bitset.New(uint(t.last) + 1)
	walk(t.root, 0, 0, func(e Entry) bool {
		if !e.IsStructural() {
			used.Set(uint(e.CipherID))
		}
		return true
	})
	inUse := make(map[CipherID]string, used.Count())
	for i, ok := used.NextSet(0); ok; i, ok = used.NextSet(i + 1) {
		id := CipherID(i)
		inUse[id] = t.ciphertexts[id]
	}
	return inUse
}

// register returns the id of ciphertext ct, assigning a new one if ct
// has not been seen before.
func (t *Table) register(ct string) CipherID {
	if id, ok := t.ids[ct]; ok {
		return id
	}
	if t.ids == nil {
		t.ids = make(map[string]CipherID)
		t.ciphertexts = make(map[CipherID]string)
	}
	t.last++
	t.ids[ct] = t.last
	t.ciphertexts[t.last] = ct
	return t.last
}

// unregisterAfter drops the ciphertexts registered after id.
func (t *Table) unregisterAfter(id CipherID) {
	for ; t.last > id; t.last-- {
		delete(t.ids, t.ciphertexts[t.last])
		delete(t.ciphertexts, t.last)
	}
}

// Reconstitute returns the content of the document given the
// plaintexts of the ciphertexts in use: the concatenation, in
// position order, of each text piece's range of its plaintext.
// Structural pieces contribute nothing. It fails with errors.Integrity
// if a plaintext is missing or too short for a piece.
func (t *Table) Reconstitute(plaintexts map[CipherID]string) (string, error) {
	var (
		runes = make(map[CipherID][]rune)
		out   = make([]rune, 0, t.Len())
		err   error
	)
	walk(t.root, 0, 0, func(e Entry) bool {
		if e.IsStructural() {
			return true
		}
		r, ok := runes[e.CipherID]
		if !ok {
			pt, ok := plaintexts[e.CipherID]
			if !ok {
				err = errors.E(errors.Integrity, fmt.Sprintf("no plaintext for cipher %d", e.CipherID))
				return false
			}
			r = []rune(pt)
			runes[e.CipherID] = r
		}
		if e.Offset+e.Length > len(r) {
			err = errors.E(errors.Integrity, fmt.Sprintf("piece %v at %d exceeds plaintext of length %d", e.Piece, e.Position, len(r)))
			return false
		}
		out = append(out, r[e.Offset:e.Offset+e.Length]...)
		return true
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Check verifies the table's invariants: pieces are non-empty and
// tile [0, Len()) without gaps or overlaps, structural pieces are
// well-formed, and every text piece refers to a registered
// ciphertext. It returns an errors.Integrity error on violation.
func (t *Table) Check() error {
	if !check(t.root) {
		return errors.E(errors.Integrity, "piece tree is unbalanced or has stale metrics")
	}
	var (
		next int
		err  error
	)
	walk(t.root, 0, 0, func(e Entry) bool {
		err = t.checkEntry(e, next)
		next = e.Position + e.Length
		return err == nil
	})
	if err != nil {
		return errors.E(errors.Integrity, err)
	}
	if next != t.Len() {
		return errors.E(errors.Integrity, fmt.Sprintf("pieces cover [0, %d), document has length %d", next, t.Len()))
	}
	return nil
}

func (t *Table) checkEntry(e Entry, want int) error {
	switch {
	case e.Position != want:
		return fmt.Errorf("piece %v at %d: expected position %d", e.Piece, e.Position, want)
	case e.Length <= 0:
		return fmt.Errorf("piece %v at %d: non-positive length", e.Piece, e.Position)
	case e.IsStructural() && e.Piece != structural:
		return fmt.Errorf("structural piece %+v at %d", e.Piece, e.Position)
	case e.Offset < 0:
		return fmt.Errorf("piece %v at %d: negative offset", e.Piece, e.Position)
	}
	if !e.IsStructural() {
		if _, ok := t.ciphertexts[e.CipherID]; !ok {
			return fmt.Errorf("piece %v at %d: unregistered cipher", e.Piece, e.Position)
		}
	}
	return nil
}

// Ciphertext is a registry entry.
type Ciphertext struct {
	ID         CipherID
	Ciphertext string
}

// Snapshot is the plain-data form of a table.
type Snapshot struct {
	// Ciphertexts is the registry, ordered by id.
	Ciphertexts []Ciphertext
	// Pieces are the table's entries, ordered by position.
	Pieces []Entry
}

// Export returns a snapshot of the table.
func (t *Table) Export() Snapshot {
	s := Snapshot{
		Ciphertexts: make([]Ciphertext, 0, len(t.ciphertexts)),
		Pieces:      t.Pieces(),
	}
	for id, ct := range t.ciphertexts {
		s.Ciphertexts = append(s.Ciphertexts, Ciphertext{id, ct})
	}
	sort.Slice(s.Ciphertexts, func(i, j int) bool { return s.Ciphertexts[i].ID < s.Ciphertexts[j].ID })
	return s
}

// Import builds a table from a snapshot. The snapshot's pieces must
// be ordered by position and tile the document; registry ids and
// ciphertexts must be unique. Violations are errors.Serialization
// errors.
func Import(s Snapshot) (*Table, error) {
	t := New()
	for _, c := range s.Ciphertexts {
		if c.ID == Structural {
			return nil, errors.E(errors.Serialization, "ciphertext registered with structural id")
		}
		if t.ids == nil {
			t.ids = make(map[string]CipherID)
			t.ciphertexts = make(map[CipherID]string)
		}
		if _, ok := t.ciphertexts[c.ID]; ok {
			return nil, errors.E(errors.Serialization, fmt.Sprintf("duplicate cipher id %d", c.ID))
		}
		if _, ok := t.ids[c.Ciphertext]; ok {
			return nil, errors.E(errors.Serialization, fmt.Sprintf("cipher %d duplicates a registered ciphertext", c.ID))
		}
		t.ciphertexts[c.ID] = c.Ciphertext
		t.ids[c.Ciphertext] = c.ID
		if c.ID > t.last {
			t.last = c.ID
		}
	}
	pieces := make([]Piece, len(s.Pieces))
	var next int
	for i, e := range s.Pieces {
		if err := t.checkEntry(e, next); err != nil {
			return nil, errors.E(errors.Serialization, err)
		}
		pieces[i] = e.Piece
		next += e.Length
	}
	t.root = build(pieces)
	return t, nil
}
