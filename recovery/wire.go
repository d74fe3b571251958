// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package recovery

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/log"
	"github.com/grailbio/wavecrypt/piecetable"
)

// WaveletEncryptedData is the wire form of a Recovery. Documents are
// ordered by id, ciphertexts by index and pieces by position.
type WaveletEncryptedData struct {
	WaveletID string                  `json:"waveletId"`
	Documents []DocumentEncryptedData `json:"documents"`
}

// DocumentEncryptedData is the wire form of one document's table.
type DocumentEncryptedData struct {
	DocumentID  string           `json:"documentId"`
	Ciphertexts []CiphertextData `json:"ciphertexts"`
	Pieces      []PieceData      `json:"pieces"`
}

// CiphertextData is a registered ciphertext.
type CiphertextData struct {
	Index      uint32 `json:"index"`
	Ciphertext string `json:"ciphertext"`
}

// PieceData is a piece and its position.
type PieceData struct {
	Position int    `json:"position"`
	CipherID uint32 `json:"cipherId"`
	Length   int    `json:"length"`
	Offset   int    `json:"offset"`
}

// Serialize returns the wire form of the tables of documents that
// replayed successfully.
func (r *Recovery) Serialize() *WaveletEncryptedData {
	w := &WaveletEncryptedData{WaveletID: r.WaveletID, Documents: []DocumentEncryptedData{}}
	for _, doc := range r.Documents() {
		if r.errs[doc] != nil {
			log.Error.Printf("recovery %s: not serializing failed document %s", r.WaveletID, doc)
			continue
		}
		s := r.tables[doc].Export()
		d := DocumentEncryptedData{
			DocumentID:  doc,
			Ciphertexts: make([]CiphertextData, len(s.Ciphertexts)),
			Pieces:      make([]PieceData, len(s.Pieces)),
		}
		for i, c := range s.Ciphertexts {
			d.Ciphertexts[i] = CiphertextData{uint32(c.ID), c.Ciphertext}
		}
		for i, e := range s.Pieces {
			d.Pieces[i] = PieceData{e.Position, uint32(e.CipherID), e.Length, e.Offset}
		}
		w.Documents = append(w.Documents, d)
	}
	return w
}

// Deserialize rebuilds a Recovery from its wire form. Malformed data
// is reported as an errors.Serialization error.
func Deserialize(w *WaveletEncryptedData) (*Recovery, error) {
	r := New(w.WaveletID)
	for _, d := range w.Documents {
		if _, ok := r.tables[d.DocumentID]; ok {
			return nil, errors.E(errors.Serialization, fmt.Sprintf("duplicate document %s", d.DocumentID))
		}
		var s piecetable.Snapshot
		for _, c := range d.Ciphertexts {
			s.Ciphertexts = append(s.Ciphertexts, piecetable.Ciphertext{
				ID:         piecetable.CipherID(c.Index),
				Ciphertext: c.Ciphertext,
			})
		}
		for _, p := range d.Pieces {
			s.Pieces = append(s.Pieces, piecetable.Entry{
				Position: p.Position,
				Piece: piecetable.Piece{
					CipherID: piecetable.CipherID(p.CipherID),
					Offset:   p.Offset,
					Length:   p.Length,
				},
			})
		}
		t, err := piecetable.Import(s)
		if err != nil {
			return nil, errors.E(fmt.Sprintf("document %s", d.DocumentID), err)
		}
		r.tables[d.DocumentID] = t
	}
	return r, nil
}

// WriteJSON writes the wire form of r to w.
func (r *Recovery) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Serialize())
}

// ReadJSON reads a Recovery written by WriteJSON.
func ReadJSON(rd io.Reader) (*Recovery, error) {
	var w WaveletEncryptedData
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, errors.E(errors.Serialization, "recovery data", err)
	}
	return Deserialize(&w)
}
