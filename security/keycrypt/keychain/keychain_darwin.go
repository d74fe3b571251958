// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

//go:build darwin && cgo
// +build darwin,cgo

package keychain

import (
	"context"

	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/security/keycrypt"
	keychain "github.com/keybase/go-keychain"
)

const prefix = "com.grail.wavecrypt."

func init() {
	keycrypt.RegisterFunc("keychain", func(h string) keycrypt.Keycrypt {
		return &Keychain{Namespace: h}
	})
}

var _ keycrypt.Keycrypt = (*Keychain)(nil)

// Keychain is a Keycrypt backed by the user's login keychain.
type Keychain struct {
	Namespace string
}

// Lookup returns the keychain item for name.
func (k *Keychain) Lookup(name string) keycrypt.Secret {
	return &secret{k, name}
}

type secret struct {
	kc   *Keychain
	name string
}

func (s *secret) Get(context.Context) ([]byte, error) {
	data, err := keychain.GetGenericPassword(prefix+s.kc.Namespace, s.name, "", "")
	if err == keychain.ErrorItemNotFound || (err == nil && data == nil) {
		return nil, errors.E(errors.NotExist, "keychain item "+s.name)
	} else if err != nil {
		return nil, errors.E("keychain item "+s.name, err)
	}
	return data, nil
}

func (s *secret) Put(_ context.Context, p []byte) error {
	namespace := prefix + s.kc.Namespace

	keychain.DeleteGenericPasswordItem(namespace, s.name)

	item := keychain.NewGenericPassword(namespace, s.name, "", p, "")
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlocked)

	if err := keychain.AddItem(item); err != nil {
		return errors.E("keychain item "+s.name, err)
	}
	return nil
}
