// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package must_test

import (
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/grailbio/wavecrypt/must"
)

// TestDepth verifies that the depth passed to Func correctly locates the
// caller of the must function.
func TestDepth(t *testing.T) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("could not determine current file")
	}
	old := must.Func
	defer func() { must.Func = old }()
	must.Func = func(depth int, v ...interface{}) {
		_, file, _, ok := runtime.Caller(depth)
		if !ok {
			t.Fatal("could not determine caller of Func")
		}
		if file != thisFile {
			t.Errorf("caller at depth %d is '%s'; should be '%s'", depth, file, thisFile)
		}
	}
	must.True(false)
	must.Truef(false, "")
	must.Nil(struct{}{})
	must.Neverf("")
}

func TestPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != "plaintext too short" {
			t.Errorf("got %v, want panic", r)
		}
	}()
	must.True(false, "plaintext too short")
}

func Example() {
	old := must.Func
	defer func() { must.Func = old }()
	must.Func = func(depth int, v ...interface{}) {
		fmt.Print(v...)
		fmt.Print("\n")
	}

	must.Nil(errors.New("unexpected condition"))
	must.Nil(nil)
	must.Nil(errors.New("i/o error"), "reading history")
	must.Truef(1 > 2, "piece %d overlaps", 3)

	// Output:
	// unexpected condition
	// reading history: i/o error
	// piece 3 overlaps
}
