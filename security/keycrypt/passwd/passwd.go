// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package passwd implements a keycrypt whose wave keys are derived from
// an interactively entered passphrase. The passphrase is stretched with
// scrypt, salted by the namespace, into a master secret from which
// per-wave keys are derived (see keycrypt.Derive). Nothing is stored:
// entering the same passphrase for the same namespace yields the same
// keys.
//
// The scheme passwd://namespace is registered; the passphrase is read
// from the terminal the first time a secret is retrieved.
package passwd

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/security/keycrypt"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/crypto/ssh/terminal"
)

// Cost parameters for scrypt, as recommended for interactive logins.
const (
	N      = 1 << 15
	R      = 8
	P      = 1
	keyLen = 32
)

func init() {
	keycrypt.RegisterFunc("passwd", func(h string) keycrypt.Keycrypt {
		return New(h, ReadPassword)
	})
}

// ReadPassword reads a passphrase from the terminal without echoing it.
func ReadPassword() ([]byte, error) {
	fmt.Fprint(os.Stderr, "Enter passphrase: ")
	b, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return b, err
}

// MasterKey stretches passphrase into a master secret for namespace.
func MasterKey(passphrase []byte, namespace string) ([]byte, error) {
	key, err := scrypt.Key(passphrase, []byte("wavecrypt/passwd:"+namespace), N, R, P, keyLen)
	if err != nil {
		return nil, errors.E(errors.Invalid, "scrypt", err)
	}
	return key, nil
}

type crypt struct {
	namespace string
	read      func() ([]byte, error)

	once sync.Once
	kc   keycrypt.Keycrypt
	err  error
}

// New returns a Keycrypt that derives keys from the passphrase returned
// by read. The passphrase is read at most once.
func New(namespace string, read func() ([]byte, error)) keycrypt.Keycrypt {
	return &crypt{namespace: namespace, read: read}
}

func (c *crypt) load() {
	password, err := c.read()
	defer func() {
		// Zero out the password as soon as it's hashed.
		for i := range password {
			password[i] = 0
		}
	}()
	if err != nil {
		c.err = errors.E("read passphrase", err)
		return
	}
	if len(password) == 0 {
		c.err = errors.E(errors.Invalid, "empty passphrase")
		return
	}
	master, err := MasterKey(password, c.namespace)
	if err != nil {
		c.err = err
		return
	}
	c.kc = keycrypt.Derive(master)
}

func (c *crypt) Lookup(name string) keycrypt.Secret {
	return &secret{c, name}
}

type secret struct {
	*crypt
	name string
}

func (s *secret) Get(ctx context.Context) ([]byte, error) {
	s.once.Do(s.load)
	if s.err != nil {
		return nil, s.err
	}
	return s.kc.Lookup(s.name).Get(ctx)
}

func (s *secret) Put(context.Context, []byte) error {
	return errors.E(errors.NotSupported, "passphrase-derived secrets are read-only")
}
