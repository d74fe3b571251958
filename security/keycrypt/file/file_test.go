// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package file

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/security/keycrypt"
)

func TestFile(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "file")
	defer cleanup()
	c := New(dir)
	s := c.Lookup("foo")
	_, err := s.Get(ctx)
	if !errors.Is(errors.NotExist, err) {
		t.Fatalf("expected NotExist, got %v", err)
	}
	_, files := testutil.ListRecursively(t, dir)
	if got, want := len(files), 0; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	hello := []byte("hello world")
	if err := s.Put(ctx, hello); err != nil {
		t.Fatal(err)
	}
	b, err := s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := b, hello; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	_, files = testutil.ListRecursively(t, dir)
	if got, want := files, []string{filepath.Join(dir, "foo")}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	b, err = ioutil.ReadFile(filepath.Join(dir, "foo"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := b, hello; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	info, err := os.Stat(filepath.Join(dir, "foo"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := info.Mode().Perm(), os.FileMode(0600); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestKeystore(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "file")
	defer cleanup()
	kc, err := keycrypt.Open("file://" + dir + "/keys")
	if err != nil {
		t.Fatal(err)
	}
	k, err := keycrypt.NewKeystore(kc).Generate(ctx, "example.com/w+1")
	if err != nil {
		t.Fatal(err)
	}
	got, err := keycrypt.NewKeystore(New(filepath.Join(dir, "keys"))).Key(ctx, "example.com/w+1")
	if err != nil {
		t.Fatal(err)
	}
	if got.K != k.K {
		t.Fatalf("got %v, want %v", got.K, k.K)
	}
	if _, err := os.Stat(filepath.Join(dir, "keys", "waves", "example.com%2Fw+1")); err != nil {
		t.Fatal(err)
	}
}
