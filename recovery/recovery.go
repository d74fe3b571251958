// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package recovery rebuilds the plaintext of an encrypted wavelet's
// documents from its obfuscated operation history.
//
// A Recovery replays every content operation of the wavelet into one
// piece table per document. Once the history is replayed, a key holder
// decrypts only the ciphertexts still referenced by the tables
// (DecryptAll) and reconstitutes each document's text
// (Reconstitute), or rebuilds a plaintext document initialization from
// an obfuscated snapshot (DecryptSnapshot). The tables can be persisted
// in a JSON wire form (WriteJSON, ReadJSON) so that recovery need not
// replay the history again.
package recovery

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/grailbio/wavecrypt/crypto/encryption"
	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/log"
	"github.com/grailbio/wavecrypt/piecetable"
	"github.com/grailbio/wavecrypt/sync/multierror"
	"github.com/grailbio/wavecrypt/traverse"
	"github.com/grailbio/wavecrypt/wavelet"
)

// maxErrors bounds the number of per-document errors reported by
// ReplayHistory and Reconstitute.
const maxErrors = 16

// Recovery holds the piece tables of a wavelet's documents. A
// Recovery is not safe for concurrent use.
type Recovery struct {
	// WaveletID identifies the wavelet.
	WaveletID string
	// Parallelism bounds the number of concurrent provider calls made
	// by DecryptAll. If zero, traverse.Parallel is used.
	Parallelism int

	tables map[string]*piecetable.Table
	errs   map[string]error
}

// New returns an empty Recovery for the given wavelet.
func New(waveletID string) *Recovery {
	return &Recovery{
		WaveletID: waveletID,
		tables:    make(map[string]*piecetable.Table),
		errs:      make(map[string]error),
	}
}

// Replay replays a wavelet operation. Operations that do not modify
// document content are ignored. A document whose replay has failed
// is no longer replayed: Replay returns the document's first error
// for it and every later operation on it. Other documents are not
// affected.
func (r *Recovery) Replay(op wavelet.Op) error {
	doc, content, ok := wavelet.ContentOf(op)
	if !ok {
		return nil
	}
	if err := r.errs[doc]; err != nil {
		if log.At(log.Debug) {
			log.Debug.Printf("recovery %s: skipping operation on failed document %s", r.WaveletID, doc)
		}
		return err
	}
	t := r.tables[doc]
	if t == nil {
		t = piecetable.New()
		r.tables[doc] = t
	}
	if err := t.Replay(content); err != nil {
		err = errors.E(fmt.Sprintf("document %s", doc), err)
		log.Error.Printf("recovery %s: %v", r.WaveletID, err)
		r.errs[doc] = err
		return err
	}
	return nil
}

// ReplayDelta replays every operation of d. It returns the first
// error encountered, after replaying the remaining operations.
func (r *Recovery) ReplayDelta(d wavelet.Delta) error {
	var first error
	for _, op := range d.Ops {
		if err := r.Replay(op); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ReplayHistory replays every delta read from h until io.EOF. It
// fails immediately if the history cannot be read; otherwise it
// returns the per-document replay failures, if any, as a
// multierror.MultiError.
func (r *Recovery) ReplayHistory(h *wavelet.Reader) error {
	var deltas, ops int
	for {
		d, err := h.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		r.ReplayDelta(d)
		deltas++
		ops += len(d.Ops)
	}
	log.Printf("recovery %s: replayed %d deltas (%d operations) into %d documents, %d failed",
		r.WaveletID, deltas, ops, len(r.tables), len(r.errs))
	return r.failures()
}

func (r *Recovery) failures() error {
	errs := multierror.NewMultiError(maxErrors)
	for _, doc := range r.Documents() {
		errs.Add(r.errs[doc])
	}
	return errs.ErrorOrNil()
}

// Documents returns the ids of the documents seen so far, sorted.
func (r *Recovery) Documents() []string {
	docs := make([]string, 0, len(r.tables))
	for doc := range r.tables {
		docs = append(docs, doc)
	}
	sort.Strings(docs)
	return docs
}

// Table returns the piece table of a document.
func (r *Recovery) Table(doc string) (*piecetable.Table, bool) {
	t, ok := r.tables[doc]
	return t, ok
}

// Err returns the error that stopped the replay of a document, if
// any.
func (r *Recovery) Err(doc string) error {
	return r.errs[doc]
}

// Reconstitute returns the text of every document that replayed
// successfully, given the plaintexts of their ciphertexts in use. Documents
// that cannot be reconstituted are omitted from the result and their
// errors returned as a multierror.MultiError.
func (r *Recovery) Reconstitute(plaintexts map[string]map[piecetable.CipherID]string) (map[string]string, error) {
	var (
		texts = make(map[string]string)
		errs  = multierror.NewMultiError(maxErrors)
	)
	for _, doc := range r.Documents() {
		if r.errs[doc] != nil {
			continue
		}
		text, err := r.tables[doc].Reconstitute(plaintexts[doc])
		if err != nil {
			errs.Add(errors.E(fmt.Sprintf("document %s", doc), err))
			continue
		}
		texts[doc] = text
	}
	return texts, errs.ErrorOrNil()
}

type job struct {
	doc string
	id  piecetable.CipherID
}

// DecryptAll decrypts, with p, every ciphertext in use by the tables
// of documents that replayed successfully. Each distinct ciphertext is
// decrypted once; at most Parallelism calls are made concurrently.
// A document any of whose ciphertexts fails to decrypt is omitted from
// the result, and its errors.Cipher error, naming the lowest failed
// cipher id, is returned in a multierror.MultiError alongside the
// plaintexts of the other documents.
func (r *Recovery) DecryptAll(ctx context.Context, p encryption.Provider) (map[string]map[piecetable.CipherID]string, error) {
	var (
		byCT = make(map[string][]job)
		cts  []string
	)
	for _, doc := range r.Documents() {
		if r.errs[doc] != nil {
			continue
		}
		for id, ct := range r.tables[doc].CiphertextsInUse() {
			if _, ok := byCT[ct]; !ok {
				cts = append(cts, ct)
			}
			byCT[ct] = append(byCT[ct], job{doc, id})
		}
	}
	sort.Strings(cts)
	t := traverse.Parallel
	if r.Parallelism > 0 {
		t = traverse.Limit(r.Parallelism)
	}
	var (
		mu         sync.Mutex
		plaintexts = make(map[string]map[piecetable.CipherID]string)
		failed     = make(map[string]job)
		causes     = make(map[string]error)
	)
	err := t.Each(len(cts), func(i int) error {
		pt, err := p.Decrypt(ctx, cts[i])
		mu.Lock()
		defer mu.Unlock()
		for _, j := range byCT[cts[i]] {
			if err != nil {
				if f, ok := failed[j.doc]; !ok || j.id < f.id {
					failed[j.doc] = j
					causes[j.doc] = err
				}
				continue
			}
			m := plaintexts[j.doc]
			if m == nil {
				m = make(map[piecetable.CipherID]string)
				plaintexts[j.doc] = m
			}
			m[j.id] = pt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	docs := make([]string, 0, len(failed))
	for doc := range failed {
		docs = append(docs, doc)
	}
	sort.Strings(docs)
	errs := multierror.NewMultiError(maxErrors)
	for _, doc := range docs {
		delete(plaintexts, doc)
		errs.Add(errors.E(errors.Cipher, fmt.Sprintf("document %s cipher %d", doc, failed[doc].id), causes[doc]))
	}
	if log.At(log.Debug) {
		log.Debug.Printf("recovery %s: decrypted %d ciphertexts, %d documents failed", r.WaveletID, len(cts), len(docs))
	}
	return plaintexts, errs.ErrorOrNil()
}
