// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package file implements a file-based keycrypt. Each secret is a file
// named by the secret's name beneath a root directory.
//
// Two schemes are registered: file://host/dir roots secrets at /dir,
// and localfile://namespace roots them at $HOME/.keycrypt/namespace.
package file

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/security/keycrypt"
)

func init() {
	keycrypt.RegisterFunc("file", func(h string) keycrypt.Keycrypt {
		return New("/")
	})
	keycrypt.RegisterFunc("localfile", func(h string) keycrypt.Keycrypt {
		// h is taken to be a namespace
		return New(filepath.Join(os.Getenv("HOME"), ".keycrypt", h))
	})
}

type crypt struct{ path string }

// New returns a Keycrypt that stores secrets beneath dir.
func New(dir string) keycrypt.Keycrypt {
	return &crypt{dir}
}

func (c *crypt) Lookup(name string) keycrypt.Secret {
	return fileSecret(filepath.Join(c.path, filepath.FromSlash(name)))
}

type fileSecret string

func (f fileSecret) Get(ctx context.Context) ([]byte, error) {
	b, err := ioutil.ReadFile(string(f))
	if err != nil {
		return nil, errors.E("keycrypt file", err)
	}
	return b, nil
}

// Put writes the secret to a temporary file that is renamed into place,
// so that concurrent readers see either the old or the new value.
func (f fileSecret) Put(ctx context.Context, b []byte) error {
	dir := filepath.Dir(string(f))
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.E("keycrypt file", err)
	}
	tmpfile, err := ioutil.TempFile(dir, ".keycrypt")
	if err != nil {
		return errors.E("keycrypt file", err)
	}
	// Best effort because it doesn't work on Windows.
	tmpfile.Chmod(0600)
	if _, err := tmpfile.Write(b); err != nil {
		tmpfile.Close()
		os.Remove(tmpfile.Name())
		return errors.E("keycrypt file", err)
	}
	if err := tmpfile.Close(); err != nil {
		os.Remove(tmpfile.Name())
		return errors.E("keycrypt file", err)
	}
	return os.Rename(tmpfile.Name(), string(f))
}
