// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package wavelet_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/grailbio/wavecrypt/docop"
	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/wavelet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ctx     = wavelet.Context{Creator: "alice@example.com", Timestamp: 1700000000000, VersionIncrement: 1}
	content = new(docop.Builder).
		Start("cipher/add/r1", nil, docop.Value("aXY=;Y3Q=;")).
		Characters("*********").
		End("cipher/add/r1").
		Build()
	history = []wavelet.Delta{
		{
			Author:  "alice@example.com",
			Version: 0,
			Ops: []wavelet.Op{
				wavelet.AddParticipant{Ctx: ctx, Participant: "alice@example.com"},
				wavelet.BlipContent{Ctx: ctx, DocumentID: "b+1", Content: content},
			},
		},
		{
			Author:  "bob@example.com",
			Version: 2,
			Ops: []wavelet.Op{
				wavelet.NoOp{Ctx: ctx},
				wavelet.RemoveParticipant{Ctx: ctx, Participant: "alice@example.com"},
			},
		},
	}
)

func TestContentOf(t *testing.T) {
	id, op, ok := wavelet.ContentOf(history[0].Ops[1])
	require.True(t, ok)
	assert.Equal(t, "b+1", id)
	assert.Equal(t, content, op)

	_, _, ok = wavelet.ContentOf(history[0].Ops[0])
	assert.False(t, ok)

	replaced := wavelet.WithContent(history[0].Ops[1], docop.Op{docop.Characters{Text: "some text"}})
	id, op, ok = wavelet.ContentOf(replaced)
	require.True(t, ok)
	assert.Equal(t, "b+1", id)
	assert.Equal(t, "some text", docop.Text(op))
	assert.Equal(t, ctx, replaced.Context())
}

func TestResultingVersion(t *testing.T) {
	assert.Equal(t, int64(2), history[0].ResultingVersion())
	d := wavelet.Delta{Version: 5, Ops: []wavelet.Op{wavelet.NoOp{}, wavelet.NoOp{Ctx: wavelet.Context{VersionIncrement: 3}}}}
	assert.Equal(t, int64(9), d.ResultingVersion())
}

func TestReadWrite(t *testing.T) {
	var buf bytes.Buffer
	w := wavelet.NewWriter(&buf)
	for _, d := range history {
		require.NoError(t, w.Write(d))
	}
	// Readers skip blank lines.
	buf.WriteString("\n")

	r := wavelet.NewReader(&buf)
	var got []wavelet.Delta
	for {
		d, err := r.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, d)
	}
	if diff := deep.Equal(got, history); diff != nil {
		t.Error(diff)
	}
}

func TestReadErrors(t *testing.T) {
	for _, bad := range []string{
		`{"author": "a", "version": 0, "ops": [{}]}`,
		`{"author": "a", "version": 0, "ops": [{"noOp": {}, "addParticipant": {}}]}`,
		`{"author": "a", "version": 0, "ops": [{"blipContent": {"documentId": "b+1", "content": [{"retain": 1, "characters": "x"}]}}]}`,
		`not json`,
	} {
		r := wavelet.NewReader(strings.NewReader(bad))
		_, err := r.Read()
		assert.True(t, errors.Is(errors.Serialization, err), "%s: %v", bad, err)
	}
}
