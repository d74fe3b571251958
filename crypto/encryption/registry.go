// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package encryption

import (
	"sort"
	"sync"

	"github.com/grailbio/wavecrypt/errors"
)

// Factory constructs a Provider from raw key material.
type Factory func(key []byte) (Provider, error)

type db struct {
	sync.Mutex
	schemes map[string]Factory
}

var schemes = &db{schemes: map[string]Factory{}}

func init() {
	must(Register("A256GCM", NewAESGCM))
	must(Register("XC20P", NewXChaCha20))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Lookup returns the factory, if any, registered under the supplied name.
func Lookup(name string) (Factory, error) {
	schemes.Lock()
	defer schemes.Unlock()
	f := schemes.schemes[name]
	if f == nil {
		return nil, errors.E(errors.NotExist, "no such scheme: "+name)
	}
	return f, nil
}

// Register registers a new Factory using the supplied name.
func Register(name string, factory Factory) error {
	schemes.Lock()
	defer schemes.Unlock()
	if _, present := schemes.schemes[name]; present {
		return errors.E(errors.Exists, "already registered: "+name)
	}
	schemes.schemes[name] = factory
	return nil
}

// New returns a provider for the named scheme keyed by key.
func New(name string, key []byte) (Provider, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return f(key)
}

// Schemes returns the names of all registered schemes in sorted order.
func Schemes() []string {
	schemes.Lock()
	defer schemes.Unlock()
	names := make([]string, 0, len(schemes.schemes))
	for name := range schemes.schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
