// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package keycrypt

import (
	"context"
	"sync"

	"github.com/grailbio/wavecrypt/errors"
)

type memory struct {
	mu      sync.Mutex
	secrets map[string][]byte
}

var (
	memoryMu sync.Mutex
	memories = map[string]*memory{}
)

// Memory returns a new, empty, in-process Keycrypt.
func Memory() Keycrypt {
	return &memory{secrets: make(map[string][]byte)}
}

// namedMemory returns the process-wide memory Keycrypt with the given
// name, so that memory://name URLs resolve to the same store.
func namedMemory(name string) Keycrypt {
	memoryMu.Lock()
	defer memoryMu.Unlock()
	m := memories[name]
	if m == nil {
		m = &memory{secrets: make(map[string][]byte)}
		memories[name] = m
	}
	return m
}

func (m *memory) Lookup(name string) Secret {
	return &memorySecret{m, name}
}

type memorySecret struct {
	*memory
	name string
}

func (s *memorySecret) Get(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.secrets[s.name]
	if !ok {
		return nil, errors.E(errors.NotExist, "no such secret: "+s.name)
	}
	return append([]byte(nil), b...), nil
}

func (s *memorySecret) Put(ctx context.Context, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[s.name] = append([]byte(nil), value...)
	return nil
}
