// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package wavelet defines the operations of a wavelet, the versioned,
// multi-participant container of documents, and the deltas that group
// them in a wavelet's history.
package wavelet

import (
	"github.com/grailbio/wavecrypt/docop"
)

// Context describes who produced an operation, and when.
type Context struct {
	// Creator is the participant that authored the operation.
	Creator string `json:"creator,omitempty"`
	// Timestamp is the operation's time in milliseconds since the epoch.
	Timestamp int64 `json:"timestamp,omitempty"`
	// VersionIncrement is the number of versions the operation
	// advances the wavelet by.
	VersionIncrement int64 `json:"versionIncrement,omitempty"`
}

// Op is an operation on a wavelet. It is implemented by BlipContent,
// AddParticipant, RemoveParticipant and NoOp.
type Op interface {
	// Context returns the operation's context.
	Context() Context
}

// BlipContent modifies the content of one document of the wavelet.
type BlipContent struct {
	Ctx        Context
	DocumentID string
	Content    docop.Op
}

// AddParticipant adds a participant to the wavelet.
type AddParticipant struct {
	Ctx         Context
	Participant string
}

// RemoveParticipant removes a participant from the wavelet.
type RemoveParticipant struct {
	Ctx         Context
	Participant string
}

// NoOp only advances the wavelet's version.
type NoOp struct {
	Ctx Context
}

func (o BlipContent) Context() Context       { return o.Ctx }
func (o AddParticipant) Context() Context    { return o.Ctx }
func (o RemoveParticipant) Context() Context { return o.Ctx }
func (o NoOp) Context() Context              { return o.Ctx }

// ContentOf returns the document id and document operation carried
// by op, if op modifies document content.
func ContentOf(op Op) (documentID string, content docop.Op, ok bool) {
	b, ok := op.(BlipContent)
	if !ok {
		return "", nil, false
	}
	return b.DocumentID, b.Content, true
}

// WithContent returns a copy of op, which must be a BlipContent, with
// its document operation replaced by content. The context and
// document id are kept.
func WithContent(op Op, content docop.Op) Op {
	b := op.(BlipContent)
	b.Content = content
	return b
}

// Delta is a sequence of operations by one author, applied at a given
// wavelet version.
type Delta struct {
	Author string
	// Version is the wavelet version the delta applies to.
	Version int64
	Ops     []Op
}

// ResultingVersion returns the wavelet version after d is applied.
func (d Delta) ResultingVersion() int64 {
	v := d.Version
	for _, op := range d.Ops {
		inc := op.Context().VersionIncrement
		if inc == 0 {
			inc = 1
		}
		v += inc
	}
	return v
}
