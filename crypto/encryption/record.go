// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package encryption

import (
	"encoding/base64"
	"strings"

	"github.com/grailbio/wavecrypt/errors"
)

// IV represents the initialization vector used to seal a record.
type IV []byte

// String returns the standard base64 encoding of the IV.
func (iv IV) String() string {
	return base64.StdEncoding.EncodeToString(iv)
}

// Record is the decoded form of a ciphertext string.
type Record struct {
	IV     IV
	Sealed []byte
	AAD    []byte
}

// String encodes the record as base64(iv);base64(sealed);base64(aad).
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(r.IV.String())
	b.WriteByte(';')
	b.WriteString(base64.StdEncoding.EncodeToString(r.Sealed))
	b.WriteByte(';')
	b.WriteString(base64.StdEncoding.EncodeToString(r.AAD))
	return b.String()
}

// ParseRecord decodes a ciphertext string produced by Record.String.
func ParseRecord(s string) (Record, error) {
	fields := strings.Split(s, ";")
	if len(fields) != 3 {
		return Record{}, errors.E(errors.Invalid, "record must have 3 fields")
	}
	var (
		bufs [3][]byte
		err  error
	)
	for i, f := range fields {
		if bufs[i], err = base64.StdEncoding.DecodeString(f); err != nil {
			return Record{}, errors.E(errors.Invalid, "record field", err)
		}
	}
	return Record{IV: bufs[0], Sealed: bufs[1], AAD: bufs[2]}, nil
}
