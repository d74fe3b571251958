// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package keycrypt

import (
	"context"
	"encoding/base64"
	"net/url"

	"github.com/grailbio/wavecrypt/crypto/encryption"
	"github.com/grailbio/wavecrypt/errors"
)

// DefaultAlgorithm is the JWK algorithm of generated keys.
const DefaultAlgorithm = "A256GCM"

// JWK is a symmetric JSON web key.
type JWK struct {
	Kty    string   `json:"kty"`
	Alg    string   `json:"alg"`
	K      string   `json:"k"`
	KeyOps []string `json:"key_ops,omitempty"`
	Ext    bool     `json:"ext,omitempty"`
}

// NewJWK returns a symmetric key for algorithm alg with key material key.
func NewJWK(alg string, key []byte) JWK {
	return JWK{
		Kty:    "oct",
		Alg:    alg,
		K:      base64.RawURLEncoding.EncodeToString(key),
		KeyOps: []string{"encrypt", "decrypt"},
		Ext:    true,
	}
}

// Key returns the raw key material of k.
func (k JWK) Key() ([]byte, error) {
	if k.Kty != "oct" {
		return nil, errors.E(errors.Invalid, "unsupported key type \""+k.Kty+"\"")
	}
	b, err := base64.RawURLEncoding.DecodeString(k.K)
	if err != nil {
		return nil, errors.E(errors.Invalid, "key is not base64url", err)
	}
	if len(b) != encryption.KeySize {
		return nil, errors.E(errors.Invalid, "key must be 32 bytes")
	}
	return b, nil
}

// Provider returns a cipher provider for the key's algorithm.
func (k JWK) Provider() (encryption.Provider, error) {
	key, err := k.Key()
	if err != nil {
		return nil, err
	}
	return encryption.New(k.Alg, key)
}

// Keystore stores one content key per wave in a Keycrypt.
type Keystore struct {
	kc Keycrypt
}

// NewKeystore returns a Keystore backed by kc.
func NewKeystore(kc Keycrypt) *Keystore {
	return &Keystore{kc}
}

func (s *Keystore) secret(waveID string) Secret {
	return s.kc.Lookup("waves/" + url.PathEscape(waveID))
}

// Key returns the key registered for the wave. It returns a NotExist
// error if there is none.
func (s *Keystore) Key(ctx context.Context, waveID string) (JWK, error) {
	var k JWK
	if err := GetJSON(ctx, s.secret(waveID), &k); err != nil {
		return JWK{}, errors.E("wave "+waveID, err)
	}
	if _, err := k.Key(); err != nil {
		return JWK{}, errors.E(errors.Integrity, "wave "+waveID, err)
	}
	return k, nil
}

// Generate creates and stores a new random key for the wave. It
// returns an Exists error if the wave already has a key.
func (s *Keystore) Generate(ctx context.Context, waveID string) (JWK, error) {
	if err := s.checkAbsent(ctx, waveID); err != nil {
		return JWK{}, err
	}
	key, err := encryption.GenerateKey()
	if err != nil {
		return JWK{}, err
	}
	k := NewJWK(DefaultAlgorithm, key)
	if err := PutJSON(ctx, s.secret(waveID), k); err != nil {
		return JWK{}, errors.E("wave "+waveID, err)
	}
	return k, nil
}

// Register stores an existing key for the wave. It returns an Exists
// error if the wave already has a key.
func (s *Keystore) Register(ctx context.Context, waveID string, k JWK) error {
	if _, err := k.Provider(); err != nil {
		return err
	}
	if err := s.checkAbsent(ctx, waveID); err != nil {
		return err
	}
	return PutJSON(ctx, s.secret(waveID), k)
}

func (s *Keystore) checkAbsent(ctx context.Context, waveID string) error {
	_, err := s.secret(waveID).Get(ctx)
	switch {
	case err == nil:
		return errors.E(errors.Exists, "wave "+waveID+" already has a key")
	case errors.Is(errors.NotExist, err):
		return nil
	default:
		return err
	}
}

// Provider returns a cipher provider keyed by the wave's key.
func (s *Keystore) Provider(ctx context.Context, waveID string) (encryption.Provider, error) {
	k, err := s.Key(ctx, waveID)
	if err != nil {
		return nil, err
	}
	return k.Provider()
}
