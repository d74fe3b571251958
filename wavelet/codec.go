// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package wavelet

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/grailbio/wavecrypt/docop"
	"github.com/grailbio/wavecrypt/errors"
)

// maxLine is the longest delta, in bytes, a Reader accepts.
const maxLine = 64 << 20

type jsonBlip struct {
	Context    Context  `json:"context"`
	DocumentID string   `json:"documentId"`
	Content    docop.Op `json:"content"`
}

type jsonParticipant struct {
	Context     Context `json:"context"`
	Participant string  `json:"participant"`
}

type jsonOp struct {
	BlipContent       *jsonBlip        `json:"blipContent,omitempty"`
	AddParticipant    *jsonParticipant `json:"addParticipant,omitempty"`
	RemoveParticipant *jsonParticipant `json:"removeParticipant,omitempty"`
	NoOp              *Context         `json:"noOp,omitempty"`
}

type jsonDelta struct {
	Author  string   `json:"author"`
	Version int64    `json:"version"`
	Ops     []jsonOp `json:"ops"`
}

// MarshalJSON implements json.Marshaler.
func (d Delta) MarshalJSON() ([]byte, error) {
	j := jsonDelta{Author: d.Author, Version: d.Version, Ops: make([]jsonOp, len(d.Ops))}
	for i, op := range d.Ops {
		switch op := op.(type) {
		case BlipContent:
			j.Ops[i].BlipContent = &jsonBlip{op.Ctx, op.DocumentID, op.Content}
		case AddParticipant:
			j.Ops[i].AddParticipant = &jsonParticipant{op.Ctx, op.Participant}
		case RemoveParticipant:
			j.Ops[i].RemoveParticipant = &jsonParticipant{op.Ctx, op.Participant}
		case NoOp:
			ctx := op.Ctx
			j.Ops[i].NoOp = &ctx
		default:
			return nil, errors.E(errors.Serialization, fmt.Sprintf("op %d: cannot encode %T", i, op))
		}
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var j jsonDelta
	if err := json.Unmarshal(data, &j); err != nil {
		return errors.E(errors.Serialization, "decoding delta", err)
	}
	ops := make([]Op, len(j.Ops))
	for i, o := range j.Ops {
		n := 0
		if o.BlipContent != nil {
			ops[i] = BlipContent{o.BlipContent.Context, o.BlipContent.DocumentID, o.BlipContent.Content}
			n++
		}
		if o.AddParticipant != nil {
			ops[i] = AddParticipant{o.AddParticipant.Context, o.AddParticipant.Participant}
			n++
		}
		if o.RemoveParticipant != nil {
			ops[i] = RemoveParticipant{o.RemoveParticipant.Context, o.RemoveParticipant.Participant}
			n++
		}
		if o.NoOp != nil {
			ops[i] = NoOp{*o.NoOp}
			n++
		}
		if n != 1 {
			return errors.E(errors.Serialization, fmt.Sprintf("op %d: expected exactly one operation, got %d", i, n))
		}
	}
	*d = Delta{Author: j.Author, Version: j.Version, Ops: ops}
	return nil
}

// Reader reads a wavelet history: a stream of deltas, one JSON object
// per line, in version order. Blank lines are skipped.
type Reader struct {
	scan *bufio.Scanner
	line int
}

// NewReader returns a Reader that reads deltas from r.
func NewReader(r io.Reader) *Reader {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64<<10), maxLine)
	return &Reader{scan: scan}
}

// Read returns the next delta, or io.EOF after the last one.
func (r *Reader) Read() (Delta, error) {
	for r.scan.Scan() {
		r.line++
		line := r.scan.Bytes()
		if len(line) == 0 {
			continue
		}
		var d Delta
		if err := json.Unmarshal(line, &d); err != nil {
			return Delta{}, errors.E(errors.Serialization, fmt.Sprintf("line %d", r.line), err)
		}
		return d, nil
	}
	if err := r.scan.Err(); err != nil {
		return Delta{}, errors.E(fmt.Sprintf("line %d", r.line+1), err)
	}
	return Delta{}, io.EOF
}

// Writer writes a wavelet history in the format read by Reader.
type Writer struct {
	enc *json.Encoder
}

// NewWriter returns a Writer that writes deltas to w.
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc}
}

// Write writes d on its own line.
func (w *Writer) Write(d Delta) error {
	return w.enc.Encode(d)
}
