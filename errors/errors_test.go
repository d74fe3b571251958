// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package errors_test

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/wavecrypt/errors"
)

func TestError(t *testing.T) {
	_, err := os.Open("/dev/notexist")
	e1 := errors.E(errors.NotExist, "opening key file", err)
	if got, want := e1.Error(), "opening key file: resource does not exist: open /dev/notexist: no such file or directory"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	e2 := errors.E(err)
	if got, want := e2.Error(), "resource does not exist: open /dev/notexist: no such file or directory"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	for _, e := range []error{e1, e2} {
		if !errors.Is(errors.NotExist, e) {
			t.Errorf("error %v should be NotExist", e)
		}
	}
}

func TestErrorChaining(t *testing.T) {
	err := errors.E(errors.Provenance, "delete past end of document")
	err = errors.E(errors.Fatal, "replaying b+root", err)
	if got, want := err.Error(), "replaying b+root: provenance inconsistency (fatal):\n\tdelete past end of document"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !errors.Is(errors.Provenance, err) {
		t.Errorf("error %v should be Provenance", err)
	}
	if errors.Is(errors.Malformed, err) {
		t.Errorf("error %v should not be Malformed", err)
	}
}

func TestContextKinds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if !errors.Is(errors.Canceled, errors.E("decrypt", ctx.Err())) {
		t.Error("expected Canceled")
	}
	if !errors.Is(errors.Timeout, errors.E(context.DeadlineExceeded)) {
		t.Error("expected Timeout")
	}
	if !goerrors.Is(errors.E("wrapped", context.Canceled), context.Canceled) {
		t.Error("expected stdlib interop through Unwrap")
	}
}

type temporaryError string

func (t temporaryError) Error() string   { return string(t) }
func (t temporaryError) Temporary() bool { return true }

func TestIsTemporary(t *testing.T) {
	for _, c := range []struct {
		err       error
		temporary bool
	}{
		{goerrors.New("no idea"), false},
		{temporaryError(""), true},
		{errors.E(temporaryError(""), errors.Cipher), true},
		{errors.E(errors.Temporary, "provider unavailable"), true},
		{errors.E(errors.Fatal, "fatal error"), false},
		{errors.E(errors.Retriable, "this one you can retry"), true},
		{errors.E(fmt.Errorf("test")), false},
	} {
		if got, want := errors.IsTemporary(c.err), c.temporary; got != want {
			t.Errorf("error %v: got %v, want %v", c.err, got, want)
		}
	}
}

func TestMatchFuzz(t *testing.T) {
	fz := fuzz.New().NilChance(0).Funcs(
		func(e *errors.Error, c fuzz.Continue) {
			e.Kind = errors.Kind(c.Intn(int(errors.Serialization) + 1))
			e.Severity = errors.Severity(c.Intn(4) - 2)
			c.Fuzz(&e.Message)
			if c.Float32() < 0.5 {
				var e2 errors.Error
				c.Fuzz(&e2)
				e.Err = &e2
			}
		},
	)
	const N = 500
	for i := 0; i < N; i++ {
		var err errors.Error
		fz.Fuzz(&err)
		if !errors.Match(&err, &err) {
			t.Errorf("error %v does not match itself", &err)
		}
		wrapped := errors.E(&err)
		if !errors.Match(&err, wrapped) {
			t.Errorf("error %v does not match its copy %v", &err, wrapped)
		}
	}
}

func TestMessage(t *testing.T) {
	for _, c := range []struct {
		err     error
		message string
	}{
		{errors.E("hello"), "hello"},
		{errors.E("hello", "world"), "hello world"},
		{errors.E(errors.Serialization, "piece 3"), "piece 3: serialization error"},
	} {
		if got, want := c.err.Error(), c.message; got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestOnce(t *testing.T) {
	var e errors.Once
	if e.Err() != nil {
		t.Fatal("zero Once has an error")
	}
	e.Set(nil)
	first := errors.New("first")
	e.Set(first)
	e.Set(errors.New("second"))
	if got, want := e.Err(), first; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCleanUp(t *testing.T) {
	closeErr := errors.New("close failed")
	var err error
	errors.CleanUp(func() error { return closeErr }, &err)
	if err != closeErr {
		t.Errorf("got %v, want %v", err, closeErr)
	}
	err = errors.E(errors.Invalid, "write")
	errors.CleanUp(func() error { return closeErr }, &err)
	if got, want := err.Error(), "second error in Close: close failed: invalid argument:\n\twrite"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
