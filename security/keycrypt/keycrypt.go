// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package keycrypt implements an API for storing and retrieving
// opaque secrets, and on top of it a keystore of per-wave content keys.
// Secret backends register under a URL scheme and are resolved by
// URL, for example:
//
//	file:///var/wavecrypt/keys
//	kms://wavecrypt-prod
//	memory://test
package keycrypt

import (
	"context"
	"encoding/json"

	"github.com/grailbio/wavecrypt/errors"
)

// Secret represents a single object. Secrets are stored and retrieved
// as opaque byte blobs.
type Secret interface {
	// Retrieve the current value of this secret. If the secret does not
	// exist, Get returns an error of kind errors.NotExist.
	Get(ctx context.Context) ([]byte, error)
	// Write a new value for this secret.
	Put(ctx context.Context, value []byte) error
}

// Keycrypt is the interface to a secret storage backend.
type Keycrypt interface {
	// Look up the named secret. A secret is returned even if it does
	// not yet exist. In this case, Secret.Get returns a NotExist error.
	Lookup(name string) Secret
}

// Resolver resolves a host name (the host portion of a keycrypt URL)
// to a Keycrypt.
type Resolver interface {
	Resolve(host string) Keycrypt
}

type funcResolver func(string) Keycrypt

func (f funcResolver) Resolve(host string) Keycrypt { return f(host) }

// ResolverFunc returns a Resolver that calls f.
func ResolverFunc(f func(string) Keycrypt) Resolver { return funcResolver(f) }

// GetJSON retrieves the secret s and unmarshals it as JSON into v.
func GetJSON(ctx context.Context, s Secret, v interface{}) error {
	b, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.E(errors.Integrity, "secret is not valid JSON", err)
	}
	return nil
}

// PutJSON marshals v as JSON and stores it in s.
func PutJSON(ctx context.Context, s Secret, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(ctx, b)
}

type static []byte

// Static returns a read-only secret with the value b.
func Static(b []byte) Secret { return static(b) }

func (s static) Get(context.Context) ([]byte, error) { return []byte(s), nil }
func (s static) Put(context.Context, []byte) error {
	return errors.E(errors.NotSupported, "static secrets are read-only")
}

type nonexistent int

// Nonexistent returns a secret that does not exist.
func Nonexistent() Secret { return nonexistent(0) }

func (nonexistent) Get(context.Context) ([]byte, error) {
	return nil, errors.E(errors.NotExist, "no such secret")
}
func (nonexistent) Put(context.Context, []byte) error {
	return errors.E(errors.NotSupported, "illegal operation")
}

type prefixed struct {
	Keycrypt
	prefix string
}

// Prefix returns a Keycrypt that looks up every name under prefix in kc.
func Prefix(kc Keycrypt, prefix string) Keycrypt {
	if prefix == "" {
		return kc
	}
	return &prefixed{kc, prefix}
}

func (p *prefixed) Lookup(name string) Secret {
	return p.Keycrypt.Lookup(p.prefix + "/" + name)
}
