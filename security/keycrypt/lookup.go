// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package keycrypt

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/grailbio/wavecrypt/errors"
)

var (
	mu           sync.Mutex
	resolvers    = map[string]Resolver{}
	localSchemes = []string{"keychain", "localfile"}
)

func init() {
	RegisterFunc("memory", func(h string) Keycrypt { return namedMemory(h) })
}

// Register associates a Resolver with a scheme.
func Register(scheme string, resolver Resolver) {
	mu.Lock()
	resolvers[scheme] = resolver
	mu.Unlock()
}

func unregister(scheme string) {
	mu.Lock()
	delete(resolvers, scheme)
	mu.Unlock()
}

// RegisterFunc associates a Resolver function with a scheme.
func RegisterFunc(scheme string, f func(string) Keycrypt) {
	Register(scheme, ResolverFunc(f))
}

func resolve(rawurl string) (Keycrypt, string, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, "", errors.E(errors.Invalid, "keycrypt url", err)
	}
	mu.Lock()
	defer mu.Unlock()
	var r Resolver
	if u.Scheme == "local" {
		for _, s := range localSchemes {
			r = resolvers[s]
			if r != nil {
				break
			}
		}
		if r == nil {
			return nil, "", errors.E(errors.NotExist, "no local resolvers found, tried: "+strings.Join(localSchemes, ", "))
		}
	} else {
		r = resolvers[u.Scheme]
	}
	if r == nil {
		return nil, "", errors.E(errors.NotExist, "unknown scheme \""+u.Scheme+"\"")
	}
	return r.Resolve(u.Host), strings.Trim(u.Path, "/"), nil
}

// Open resolves a keycrypt URL of the form scheme://host/path to a
// Keycrypt. Names looked up in the returned Keycrypt are placed under
// path.
func Open(rawurl string) (Keycrypt, error) {
	kc, path, err := resolve(rawurl)
	if err != nil {
		return nil, err
	}
	return Prefix(kc, path), nil
}

// Lookup retrieves the secret named by a keycrypt URL of the form
// scheme://host/name.
func Lookup(rawurl string) (Secret, error) {
	kc, name, err := resolve(rawurl)
	if err != nil {
		return nil, err
	}
	return kc.Lookup(name), nil
}

// Get retrieves the value of the secret named by a keycrypt URL.
func Get(ctx context.Context, rawurl string) ([]byte, error) {
	s, err := Lookup(rawurl)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx)
}

// Put writes a value to the secret named by a keycrypt URL.
func Put(ctx context.Context, rawurl string, data []byte) error {
	s, err := Lookup(rawurl)
	if err != nil {
		return err
	}
	return s.Put(ctx, data)
}
