// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package keycrypt

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"io"

	"github.com/grailbio/wavecrypt/crypto/encryption"
	"github.com/grailbio/wavecrypt/errors"
	"golang.org/x/crypto/hkdf"
)

type derived struct {
	master []byte
}

// Derive returns a read-only Keycrypt whose secrets are JSON web keys
// derived from master with HKDF-SHA256, using the secret name as the
// info parameter. Every name exists; Put fails.
func Derive(master []byte) Keycrypt {
	return &derived{append([]byte(nil), master...)}
}

func (d *derived) Lookup(name string) Secret {
	return &derivedSecret{d, name}
}

type derivedSecret struct {
	*derived
	name string
}

func (s *derivedSecret) Get(ctx context.Context) ([]byte, error) {
	key := make([]byte, encryption.KeySize)
	r := hkdf.New(sha256.New, s.master, nil, []byte("wavecrypt:"+s.name))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.E(errors.Integrity, "hkdf", err)
	}
	return json.Marshal(NewJWK(DefaultAlgorithm, key))
}

func (s *derivedSecret) Put(context.Context, []byte) error {
	return errors.E(errors.NotSupported, "derived secrets are read-only")
}
