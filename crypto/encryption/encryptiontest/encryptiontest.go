// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package encryptiontest provides cipher providers for tests.
package encryptiontest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/grailbio/wavecrypt/crypto/encryption"
	"github.com/grailbio/wavecrypt/errors"
)

// Fake is a deterministic provider that hands out ciphertexts "ct1",
// "ct2", ... and remembers their plaintexts. It is safe for
// concurrent use.
type Fake struct {
	mu         sync.Mutex
	plaintexts []string
	// Decrypts counts calls to Decrypt.
	Decrypts int
}

var _ encryption.Provider = (*Fake)(nil)

// NewFake returns a new Fake provider.
func NewFake() *Fake {
	return new(Fake)
}

// Encrypt implements encryption.Provider.
func (f *Fake) Encrypt(ctx context.Context, plaintext, aad string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plaintexts = append(f.plaintexts, plaintext)
	return fmt.Sprintf("ct%d", len(f.plaintexts)), nil
}

// Decrypt implements encryption.Provider.
func (f *Fake) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Decrypts++
	i, err := strconv.Atoi(strings.TrimPrefix(ciphertext, "ct"))
	if err != nil || !strings.HasPrefix(ciphertext, "ct") || i < 1 || i > len(f.plaintexts) {
		return "", errors.E(errors.Cipher, "unknown ciphertext "+ciphertext)
	}
	return f.plaintexts[i-1], nil
}

// Plaintexts returns a map of every ciphertext handed out to its
// plaintext.
func (f *Fake) Plaintexts() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := make(map[string]string, len(f.plaintexts))
	for i, p := range f.plaintexts {
		m[fmt.Sprintf("ct%d", i+1)] = p
	}
	return m
}

// Failing is a provider that fails every call with Err.
type Failing struct {
	Err error
}

// Encrypt implements encryption.Provider.
func (f Failing) Encrypt(context.Context, string, string) (string, error) { return "", f.Err }

// Decrypt implements encryption.Provider.
func (f Failing) Decrypt(context.Context, string) (string, error) { return "", f.Err }

// Static is a provider whose Decrypt returns its value for any
// ciphertext and whose Encrypt returns the plaintext unchanged.
type Static string

// Encrypt implements encryption.Provider.
func (s Static) Encrypt(_ context.Context, plaintext, _ string) (string, error) {
	return plaintext, nil
}

// Decrypt implements encryption.Provider.
func (s Static) Decrypt(context.Context, string) (string, error) { return string(s), nil }
