// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package must provides a handful of functions to express fatal
// assertions. Within this module they guard internal invariants
// whose violation indicates a bug or a broken caller contract (for
// example, a decrypted plaintext shorter than the placeholders it
// must fill), never conditions caused by ordinary bad input, which
// are reported as errors.
package must

import (
	"fmt"

	"github.com/grailbio/wavecrypt/log"
)

// Func is the function called to report an error and interrupt execution.
// It is passed the call depth of the caller of the must function.
//
// The default implementation logs the message at the Error level and
// then panics.
var Func func(int, ...interface{}) = func(depth int, v ...interface{}) {
	s := fmt.Sprint(v...)
	_ = log.Output(depth+1, log.Error, s)
	panic(s)
}

// Nil asserts that v is nil; v is typically a value of type error.
// If v is not nil, Nil formats a message in the manner of fmt.Sprint
// and calls must.Func, suffixing the message with v.
func Nil(v interface{}, args ...interface{}) {
	if v == nil {
		return
	}
	if len(args) == 0 {
		Func(2, v)
		return
	}
	Func(2, fmt.Sprint(args...), ": ", v)
}

// True is a no-op if the value b is true. If it is false, True
// formats a message in the manner of fmt.Sprint and calls Func.
func True(b bool, v ...interface{}) {
	if b {
		return
	}
	if len(v) == 0 {
		Func(2, "must: assertion failed")
		return
	}
	Func(2, v...)
}

// Truef is a no-op if the value b is true. If it is false, Truef
// formats a message in the manner of fmt.Sprintf and calls Func.
func Truef(b bool, format string, v ...interface{}) {
	if b {
		return
	}
	Func(2, fmt.Sprintf(format, v...))
}

// Neverf asserts that it is never called. If it is, it formats a message
// in the manner of fmt.Sprintf and calls Func.
func Neverf(format string, v ...interface{}) {
	Func(2, fmt.Sprintf(format, v...))
}
