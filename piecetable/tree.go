// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package piecetable

// The table is a persistent AVL tree of pieces ordered by position.
// Each node caches the total length and number of pieces of its
// subtree, so that a piece's position is the length of everything to
// its left. Nodes are never mutated once built: every update copies
// the path it touches, and old roots remain valid.

type node struct {
	piece       Piece
	left, right *node
	height      int
	length      int
	count       int
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func length(n *node) int {
	if n == nil {
		return 0
	}
	return n.length
}

func count(n *node) int {
	if n == nil {
		return 0
	}
	return n.count
}

func mk(p Piece, left, right *node) *node {
	h := height(left)
	if hr := height(right); hr > h {
		h = hr
	}
	return &node{
		piece:  p,
		left:   left,
		right:  right,
		height: h + 1,
		length: length(left) + p.Length + length(right),
		count:  count(left) + 1 + count(right),
	}
}

func rotateLeft(n *node) *node {
	r := n.right
	return mk(r.piece, mk(n.piece, n.left, r.left), r.right)
}

func rotateRight(n *node) *node {
	l := n.left
	return mk(l.piece, l.left, mk(n.piece, l.right, n.right))
}

// join returns the tree holding the pieces of l, then p, then those
// of r.
func join(l *node, p Piece, r *node) *node {
	switch hl, hr := height(l), height(r); {
	case hl > hr+1:
		return joinRight(l, p, r)
	case hr > hl+1:
		return joinLeft(l, p, r)
	default:
		return mk(p, l, r)
	}
}

func joinRight(l *node, p Piece, r *node) *node {
	c := l.right
	if height(c) <= height(r)+1 {
		t := mk(p, c, r)
		if height(t) <= height(l.left)+1 {
			return mk(l.piece, l.left, t)
		}
		return rotateLeft(mk(l.piece, l.left, rotateRight(t)))
	}
	t := joinRight(c, p, r)
	n := mk(l.piece, l.left, t)
	if height(t) <= height(l.left)+1 {
		return n
	}
	return rotateLeft(n)
}

func joinLeft(l *node, p Piece, r *node) *node {
	c := r.left
	if height(c) <= height(l)+1 {
		t := mk(p, l, c)
		if height(t) <= height(r.right)+1 {
			return mk(r.piece, t, r.right)
		}
		return rotateRight(mk(r.piece, rotateLeft(t), r.right))
	}
	t := joinLeft(l, p, c)
	n := mk(r.piece, t, r.right)
	if height(t) <= height(r.right)+1 {
		return n
	}
	return rotateRight(n)
}

// concat returns the tree holding the pieces of l followed by those
// of r.
func concat(l, r *node) *node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	rest, last := splitLast(l)
	return join(rest, last, r)
}

func splitLast(n *node) (*node, Piece) {
	if n.right == nil {
		return n.left, n.piece
	}
	rest, last := splitLast(n.right)
	return join(n.left, n.piece, rest), last
}

// split divides n at position pos: the returned trees hold the
// content before and after pos. A piece straddling pos is split in
// two; a split exactly on a piece boundary leaves pieces intact.
func split(n *node, pos int) (*node, *node) {
	if n == nil {
		return nil, nil
	}
	ll := length(n.left)
	switch {
	case pos <= ll:
		l, r := split(n.left, pos)
		return l, join(r, n.piece, n.right)
	case pos >= ll+n.piece.Length:
		l, r := split(n.right, pos-ll-n.piece.Length)
		return join(n.left, n.piece, l), r
	default:
		head, tail := n.piece.split(pos - ll)
		return join(n.left, head, nil), join(nil, tail, n.right)
	}
}

// find returns the piece covering pos, and its position.
func find(n *node, pos int) (Piece, int, bool) {
	var base int
	for n != nil {
		ll := length(n.left)
		switch {
		case pos < ll:
			n = n.left
		case pos < ll+n.piece.Length:
			return n.piece, base + ll, true
		default:
			base += ll + n.piece.Length
			pos -= ll + n.piece.Length
			n = n.right
		}
	}
	return Piece{}, 0, false
}

// walk calls fn for each piece at or after position start, in
// order, until fn returns false. It returns false if fn did.
func walk(n *node, base, start int, fn func(Entry) bool) bool {
	if n == nil {
		return true
	}
	ll := length(n.left)
	if start < base+ll {
		if !walk(n.left, base, start, fn) {
			return false
		}
	}
	pos := base + ll
	if pos+n.piece.Length > start {
		if !fn(Entry{pos, n.piece}) {
			return false
		}
	}
	return walk(n.right, pos+n.piece.Length, start, fn)
}

// build returns a balanced tree of the given pieces, in order.
func build(pieces []Piece) *node {
	if len(pieces) == 0 {
		return nil
	}
	m := len(pieces) / 2
	return mk(pieces[m], build(pieces[:m]), build(pieces[m+1:]))
}

// check verifies the cached metrics and balance of n.
func check(n *node) bool {
	if n == nil {
		return true
	}
	if !check(n.left) || !check(n.right) {
		return false
	}
	want := mk(n.piece, n.left, n.right)
	if n.height != want.height || n.length != want.length || n.count != want.count {
		return false
	}
	d := height(n.left) - height(n.right)
	return d >= -1 && d <= 1
}
