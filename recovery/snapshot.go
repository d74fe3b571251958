// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package recovery

import (
	"fmt"
	"unicode/utf8"

	"github.com/grailbio/wavecrypt/docop"
	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/opcrypt"
	"github.com/grailbio/wavecrypt/piecetable"
)

// DecryptSnapshot returns the plaintext form of snapshot, the
// obfuscated initialization of document doc in its current state. Its
// placeholder characters are replaced, in order, by the document's
// reconstituted text and its cipher annotations are removed.
//
// The snapshot must be a document initialization of the same length
// as the document's table (errors.Provenance otherwise), and carry as
// many characters as the reconstituted text (errors.Integrity
// otherwise).
func (r *Recovery) DecryptSnapshot(doc string, snapshot docop.Op, plaintexts map[piecetable.CipherID]string) (docop.Op, error) {
	if err := r.errs[doc]; err != nil {
		return nil, err
	}
	t, ok := r.tables[doc]
	if !ok {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("document %s", doc))
	}
	if !docop.IsInitialization(snapshot) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("document %s: snapshot is not a document initialization", doc))
	}
	if n := docop.OutputLen(snapshot); n != t.Len() {
		return nil, errors.E(errors.Provenance, fmt.Sprintf("document %s: snapshot has length %d, table %d", doc, n, t.Len()))
	}
	text, err := t.Reconstitute(plaintexts)
	if err != nil {
		return nil, errors.E(fmt.Sprintf("document %s", doc), err)
	}
	if got, want := utf8.RuneCountInString(docop.Text(snapshot)), utf8.RuneCountInString(text); got != want {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("document %s: snapshot has %d characters, table %d", doc, got, want))
	}
	out := make(docop.Op, len(snapshot))
	for i, c := range snapshot {
		if c, ok := c.(docop.Characters); ok {
			n := utf8.RuneCountInString(c.Text)
			j := 0
			for ; n > 0; n-- {
				_, size := utf8.DecodeRuneInString(text[j:])
				j += size
			}
			out[i] = docop.Characters{Text: text[:j]}
			text = text[j:]
			continue
		}
		out[i] = c
	}
	return opcrypt.Unannotate(out), nil
}
