// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package recovery_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/wavecrypt/crypto/encryption"
	"github.com/grailbio/wavecrypt/crypto/encryption/encryptiontest"
	"github.com/grailbio/wavecrypt/docop"
	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/opcrypt"
	"github.com/grailbio/wavecrypt/recovery"
	"github.com/grailbio/wavecrypt/sync/multierror"
	"github.com/grailbio/wavecrypt/wavelet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waveletID = "example.com/conv+root"

func build() *docop.Builder { return new(docop.Builder) }

var (
	someText   = build().Characters("some text").Build()
	insertMore = build().Retain(4).Characters(" more").Retain(5).Build()
	deleteMid  = build().Retain(2).DeleteCharacters("me more te").Retain(2).Build()
	insertA    = build().Retain(7).Characters("a").Retain(7).Build()
)

type edit struct {
	doc string
	op  docop.Op
}

// history encrypts edits into one delta per edit, preceded by a
// participant change.
func history(t *testing.T, p encryption.Provider, edits ...edit) []wavelet.Delta {
	t.Helper()
	var (
		ctx    = context.Background()
		e      = opcrypt.New(docop.Default)
		deltas = []wavelet.Delta{{
			Author: "alice@example.com",
			Ops: []wavelet.Op{wavelet.AddParticipant{
				Ctx:         wavelet.Context{Creator: "alice@example.com"},
				Participant: "alice@example.com",
			}},
		}}
	)
	for i, ed := range edits {
		op, err := e.EncryptWavelet(ctx, wavelet.BlipContent{
			Ctx:        wavelet.Context{Creator: "alice@example.com", Timestamp: int64(i)},
			DocumentID: ed.doc,
			Content:    ed.op,
		}, fmt.Sprint(i), p)
		require.NoError(t, err)
		deltas = append(deltas, wavelet.Delta{
			Author:  "alice@example.com",
			Version: deltas[len(deltas)-1].ResultingVersion(),
			Ops:     []wavelet.Op{op},
		})
	}
	return deltas
}

func replayHistory(t *testing.T, deltas []wavelet.Delta) (*recovery.Recovery, error) {
	t.Helper()
	var b bytes.Buffer
	w := wavelet.NewWriter(&b)
	for _, d := range deltas {
		require.NoError(t, w.Write(d))
	}
	r := recovery.New(waveletID)
	return r, r.ReplayHistory(wavelet.NewReader(&b))
}

func aesProvider(t *testing.T) encryption.Provider {
	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	p, err := encryption.NewAESGCM(key)
	require.NoError(t, err)
	return p
}

func TestRecover(t *testing.T) {
	ctx := context.Background()
	p := aesProvider(t)
	r, err := replayHistory(t, history(t, p,
		edit{"b+1", someText},
		edit{"b+2", someText},
		edit{"b+1", insertMore},
		edit{"b+2", insertMore},
		edit{"b+1", deleteMid},
		edit{"b+2", insertA},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"b+1", "b+2"}, r.Documents())
	r.Parallelism = 2
	plaintexts, err := r.DecryptAll(ctx, p)
	require.NoError(t, err)
	texts, err := r.Reconstitute(plaintexts)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b+1": "soxt", "b+2": "some moare text"}, texts)
}

func TestDocumentFailure(t *testing.T) {
	f := encryptiontest.NewFake()
	deltas := history(t, f,
		edit{"b+1", someText},
		edit{"b+2", someText},
	)
	// A plaintext insertion cannot be attributed to a ciphertext.
	deltas = append(deltas, wavelet.Delta{Ops: []wavelet.Op{
		wavelet.BlipContent{DocumentID: "b+2", Content: insertMore},
	}})
	deltas = append(deltas, history(t, f, edit{"b+1", insertMore}, edit{"b+2", insertA})[1:]...)

	r, err := replayHistory(t, deltas)
	require.Error(t, err)
	merr, ok := err.(*multierror.MultiError)
	require.True(t, ok, "%T", err)
	require.Len(t, merr.Errors(), 1)
	expect.HasSubstr(t, err.Error(), "document b+2")
	expect.True(t, errors.Is(errors.Provenance, r.Err("b+2")))
	assert.NoError(t, r.Err("b+1"))

	// Later operations on the failed document are skipped.
	tab, ok := r.Table("b+2")
	require.True(t, ok)
	assert.Equal(t, 9, tab.Len())
	assert.Equal(t, r.Err("b+2"), r.Replay(wavelet.BlipContent{DocumentID: "b+2", Content: insertA}))

	plaintexts, err := r.DecryptAll(context.Background(), f)
	require.NoError(t, err)
	_, ok = plaintexts["b+2"]
	assert.False(t, ok)
	texts, err := r.Reconstitute(plaintexts)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b+1": "some more text"}, texts)
}

func TestDecryptAllOncePerCiphertext(t *testing.T) {
	f := encryptiontest.NewFake()
	r, err := replayHistory(t, history(t, f,
		edit{"b+1", someText},
		edit{"b+1", insertMore},
		edit{"b+1", build().Retain(4).DeleteCharacters(" more").Retain(5).Build()},
		edit{"b+2", someText},
	))
	require.NoError(t, err)
	r.Parallelism = 1
	plaintexts, err := r.DecryptAll(context.Background(), f)
	require.NoError(t, err)
	// The reverted insertion is not decrypted.
	expect.EQ(t, f.Decrypts, 2)
	expect.EQ(t, len(plaintexts["b+1"]), 1)
	expect.EQ(t, len(plaintexts["b+2"]), 1)

	plaintexts, err = r.DecryptAll(context.Background(), encryptiontest.Failing{Err: fmt.Errorf("key revoked")})
	require.Error(t, err)
	expect.EQ(t, len(plaintexts), 0)
	merr, ok := err.(*multierror.MultiError)
	require.True(t, ok, "%T", err)
	require.Len(t, merr.Errors(), 2)
	for _, err := range merr.Errors() {
		expect.True(t, errors.Is(errors.Cipher, err))
		expect.HasSubstr(t, err.Error(), "key revoked")
	}
}

// revoked decrypts with a Fake, except for the ciphertexts of the
// given plaintexts.
type revoked struct {
	*encryptiontest.Fake
	plaintexts []string
}

func (r revoked) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	pt, err := r.Fake.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", err
	}
	for _, p := range r.plaintexts {
		if p == pt {
			return "", errors.E(errors.NotAllowed, "key revoked for "+ciphertext)
		}
	}
	return pt, nil
}

func TestDecryptAllIsolatesDocuments(t *testing.T) {
	otherText := build().Characters("other text").Build()
	lastText := build().Characters("last text").Build()
	for _, c := range []struct {
		name    string
		edits   []edit
		revoked []string
		texts   map[string]string
		failed  []string
	}{
		{
			name:    "one of three",
			edits:   []edit{{"b+1", someText}, {"b+2", otherText}, {"b+3", lastText}},
			revoked: []string{"other text"},
			texts:   map[string]string{"b+1": "some text", "b+3": "last text"},
			failed:  []string{"b+2"},
		},
		{
			name:    "later edit",
			edits:   []edit{{"b+1", someText}, {"b+2", otherText}, {"b+1", insertMore}},
			revoked: []string{" more"},
			texts:   map[string]string{"b+2": "other text"},
			failed:  []string{"b+1"},
		},
		{
			name:    "all",
			edits:   []edit{{"b+1", someText}, {"b+2", otherText}},
			revoked: []string{"some text", "other text"},
			texts:   map[string]string{},
			failed:  []string{"b+1", "b+2"},
		},
		{
			name: "not in use",
			edits: []edit{
				{"b+1", someText},
				{"b+1", insertMore},
				{"b+1", build().Retain(4).DeleteCharacters(" more").Retain(5).Build()},
				{"b+2", otherText},
			},
			revoked: []string{" more"},
			texts:   map[string]string{"b+1": "some text", "b+2": "other text"},
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			f := encryptiontest.NewFake()
			r, err := replayHistory(t, history(t, f, c.edits...))
			require.NoError(t, err)
			r.Parallelism = 2
			plaintexts, err := r.DecryptAll(context.Background(), revoked{f, c.revoked})
			for _, doc := range c.failed {
				_, ok := plaintexts[doc]
				expect.False(t, ok, "document %s", doc)
			}
			if len(c.failed) == 0 {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				merr, ok := err.(*multierror.MultiError)
				require.True(t, ok, "%T", err)
				require.Len(t, merr.Errors(), len(c.failed))
				for i, err := range merr.Errors() {
					expect.True(t, errors.Is(errors.Cipher, err))
					expect.HasSubstr(t, err.Error(), "document "+c.failed[i]+" cipher")
					expect.HasSubstr(t, err.Error(), "key revoked")
				}
			}
			texts, _ := r.Reconstitute(plaintexts)
			assert.Equal(t, c.texts, texts)
		})
	}
}

func TestReconstituteMissingPlaintext(t *testing.T) {
	f := encryptiontest.NewFake()
	r, err := replayHistory(t, history(t, f, edit{"b+1", someText}, edit{"b+2", someText}))
	require.NoError(t, err)
	plaintexts, err := r.DecryptAll(context.Background(), f)
	require.NoError(t, err)
	delete(plaintexts, "b+2")
	texts, err := r.Reconstitute(plaintexts)
	require.Error(t, err)
	expect.HasSubstr(t, err.Error(), "document b+2")
	assert.Equal(t, map[string]string{"b+1": "some text"}, texts)
}

func TestDecryptSnapshot(t *testing.T) {
	ctx := context.Background()
	p := aesProvider(t)
	e := opcrypt.New(docop.Default)
	ops := []docop.Op{
		build().Characters("some ").ElementStart("b", docop.Attributes{"w": "1"}).Characters("more ").ElementEnd().Characters("text").Build(),
		build().Retain(8).Characters("a").DeleteCharacters("re ").Retain(5).Build(),
		build().Start("style/bold", nil, docop.Value("true")).Retain(3).End("style/bold").Retain(11).Build(),
	}
	var (
		r        = recovery.New(waveletID)
		plainDoc docop.Op
		encDoc   docop.Op
	)
	for i, op := range ops {
		enc, err := e.Encrypt(ctx, op, fmt.Sprint(i), p)
		require.NoError(t, err)
		require.NoError(t, r.Replay(wavelet.BlipContent{DocumentID: "b+1", Content: enc}))
		if i == 0 {
			plainDoc, encDoc = op, enc
			continue
		}
		plainDoc, err = docop.Compose(plainDoc, op)
		require.NoError(t, err)
		encDoc, err = docop.Compose(encDoc, enc)
		require.NoError(t, err)
	}
	assert.Equal(t, "************", docop.Text(opcrypt.Unannotate(encDoc)))

	plaintexts, err := r.DecryptAll(ctx, p)
	require.NoError(t, err)
	got, err := r.DecryptSnapshot("b+1", encDoc, plaintexts["b+1"])
	require.NoError(t, err)
	assert.Equal(t, plainDoc.String(), got.String())

	_, err = r.DecryptSnapshot("b+1", someText, plaintexts["b+1"])
	expect.True(t, errors.Is(errors.Provenance, err))
	_, err = r.DecryptSnapshot("b+1", ops[1], plaintexts["b+1"])
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = r.DecryptSnapshot("b+9", encDoc, plaintexts["b+1"])
	expect.True(t, errors.Is(errors.NotExist, err))
}

func TestWire(t *testing.T) {
	f := encryptiontest.NewFake()
	r, err := replayHistory(t, history(t, f, edit{"b+1", someText}))
	require.NoError(t, err)
	b, err := json.Marshal(r.Serialize())
	require.NoError(t, err)
	assert.Equal(t,
		`{"waveletId":"example.com/conv+root","documents":[{"documentId":"b+1",`+
			`"ciphertexts":[{"index":1,"ciphertext":"ct1"}],`+
			`"pieces":[{"position":0,"cipherId":1,"length":9,"offset":0}]}]}`,
		string(b))
}

func TestWireRoundTrip(t *testing.T) {
	f := encryptiontest.NewFake()
	r, err := replayHistory(t, history(t, f,
		edit{"b+2", someText},
		edit{"b+1", build().Characters("some ").ElementStart("b", nil).Characters("more ").ElementEnd().Characters("text").Build()},
		edit{"b+2", insertMore},
		edit{"b+1", build().Retain(2).DeleteCharacters("me ").Retain(1).DeleteCharacters("mo").Retain(8).Build()},
		edit{"b+2", deleteMid},
	))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))
	got, err := recovery.ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, waveletID, got.WaveletID)
	if diff := deep.Equal(got.Serialize(), r.Serialize()); diff != nil {
		t.Error(diff)
	}
	for _, doc := range r.Documents() {
		want, _ := r.Table(doc)
		have, ok := got.Table(doc)
		require.True(t, ok)
		if diff := deep.Equal(have.Pieces(), want.Pieces()); diff != nil {
			t.Errorf("%s: %v", doc, diff)
		}
		if diff := deep.Equal(have.Registry(), want.Registry()); diff != nil {
			t.Errorf("%s: %v", doc, diff)
		}
	}
	plaintexts, err := got.DecryptAll(context.Background(), f)
	require.NoError(t, err)
	texts, err := got.Reconstitute(plaintexts)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b+1": "sore text", "b+2": "soxt"}, texts)
}

func TestReadJSONErrors(t *testing.T) {
	for _, s := range []string{
		`{`,
		`{"waveletId": "w", "extra": 1}`,
		`{"waveletId": "w", "documents": [{"documentId": "d"}, {"documentId": "d"}]}`,
		`{"waveletId": "w", "documents": [{"documentId": "d", "pieces": [{"position": 1, "cipherId": 0, "length": 1}]}]}`,
		`{"waveletId": "w", "documents": [{"documentId": "d", "ciphertexts": [{"index": 0, "ciphertext": "x"}]}]}`,
	} {
		_, err := recovery.ReadJSON(strings.NewReader(s))
		expect.True(t, errors.Is(errors.Serialization, err), "%s: %v", s, err)
	}
}

func TestIgnoresNonContentOps(t *testing.T) {
	r := recovery.New(waveletID)
	require.NoError(t, r.Replay(wavelet.NoOp{}))
	require.NoError(t, r.Replay(wavelet.RemoveParticipant{Participant: "bob@example.com"}))
	assert.Empty(t, r.Documents())
	_, ok := r.Table("b+1")
	assert.False(t, ok)
}
