// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/grailbio/wavecrypt/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the size, in bytes, of the keys accepted by the providers in
// this package.
const KeySize = 32

var randomSource io.Reader = rand.Reader

// SetRandSource sets the source of random numbers used to generate IVs and
// keys and is intended primarily for testing purposes. A nil reader
// restores crypto/rand.
func SetRandSource(rd io.Reader) {
	if rd == nil {
		rd = rand.Reader
	}
	randomSource = rd
}

// Provider encrypts and decrypts strings. Implementations must be safe
// for concurrent use.
type Provider interface {
	// Encrypt seals plaintext together with the additional data aad.
	Encrypt(ctx context.Context, plaintext, aad string) (string, error)
	// Decrypt opens a ciphertext returned by Encrypt.
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

type aeadProvider struct {
	scheme string
	aead   cipher.AEAD
}

// NewAESGCM returns a provider that seals records with AES-256 in GCM mode
// using a random 12 byte IV per call.
func NewAESGCM(key []byte) (Provider, error) {
	if len(key) != KeySize {
		return nil, errors.E(errors.Invalid, "A256GCM: key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.E(errors.Invalid, "A256GCM", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.E(errors.Invalid, "A256GCM", err)
	}
	return &aeadProvider{scheme: "A256GCM", aead: aead}, nil
}

// NewXChaCha20 returns a provider that seals records with
// XChaCha20-Poly1305 using a random 24 byte nonce per call.
func NewXChaCha20(key []byte) (Provider, error) {
	if len(key) != KeySize {
		return nil, errors.E(errors.Invalid, "XC20P: key must be 32 bytes")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.E(errors.Invalid, "XC20P", err)
	}
	return &aeadProvider{scheme: "XC20P", aead: aead}, nil
}

func (p *aeadProvider) Encrypt(ctx context.Context, plaintext, aad string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.E(errors.Canceled, p.scheme, err)
	}
	iv := make(IV, p.aead.NonceSize())
	if _, err := io.ReadFull(randomSource, iv); err != nil {
		return "", errors.E(errors.Cipher, p.scheme, "failed to generate iv", err)
	}
	r := Record{
		IV:     iv,
		Sealed: p.aead.Seal(nil, iv, []byte(plaintext), []byte(aad)),
		AAD:    []byte(aad),
	}
	return r.String(), nil
}

func (p *aeadProvider) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.E(errors.Canceled, p.scheme, err)
	}
	r, err := ParseRecord(ciphertext)
	if err != nil {
		return "", errors.E(errors.Cipher, p.scheme, err)
	}
	if len(r.IV) != p.aead.NonceSize() {
		return "", errors.E(errors.Cipher, p.scheme, "wrong iv size")
	}
	plaintext, err := p.aead.Open(nil, r.IV, r.Sealed, r.AAD)
	if err != nil {
		return "", errors.E(errors.Cipher, p.scheme, "authentication failed", err)
	}
	return string(plaintext), nil
}

// GenerateKey returns a new random key suitable for any of the providers
// in this package.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(randomSource, key); err != nil {
		return nil, errors.E("failed to generate key", err)
	}
	return key, nil
}
