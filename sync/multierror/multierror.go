// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package multierror collects independent failures, such as those of
// the documents of one wavelet, into a single error value.
package multierror

import (
	"fmt"
	"strings"
	"sync"
)

// MultiError captures up to a fixed number of errors from
// independent tasks and behaves as a single error. Errors beyond
// the limit are counted but not retained. It is safe for concurrent
// use.
//
//	errs := multierror.NewMultiError(8)
//	for _, doc := range docs {
//		errs.Add(replay(doc))
//	}
//	return errs.ErrorOrNil()
type MultiError struct {
	mu      sync.Mutex
	errs    []error
	dropped int
}

// NewMultiError creates a MultiError that retains at most max errors.
func NewMultiError(max int) *MultiError {
	return &MultiError{errs: make([]error, 0, max)}
}

func (me *MultiError) add(err error) {
	if len(me.errs) == cap(me.errs) {
		me.dropped++
		return
	}
	me.errs = append(me.errs, err)
}

// Add captures err. Nil errors are ignored; a *MultiError is
// flattened into me. Add returns me so that calls can be chained.
func (me *MultiError) Add(err error) *MultiError {
	if err == nil || me == nil {
		return me
	}
	if multi, ok := err.(*MultiError); ok {
		multi.mu.Lock()
		errs, dropped := append([]error(nil), multi.errs...), multi.dropped
		multi.mu.Unlock()
		me.mu.Lock()
		for _, e := range errs {
			me.add(e)
		}
		me.dropped += dropped
		me.mu.Unlock()
		return me
	}
	me.mu.Lock()
	me.add(err)
	me.mu.Unlock()
	return me
}

// Errors returns the retained errors in the order they were added.
func (me *MultiError) Errors() []error {
	if me == nil {
		return nil
	}
	me.mu.Lock()
	defer me.mu.Unlock()
	return append([]error(nil), me.errs...)
}

// Error implements error.
func (me *MultiError) Error() string {
	if me == nil {
		return ""
	}
	me.mu.Lock()
	defer me.mu.Unlock()
	switch len(me.errs) {
	case 0:
		return ""
	case 1:
		if me.dropped == 0 {
			return me.errs[0].Error()
		}
	}
	s := make([]string, len(me.errs))
	for i, e := range me.errs {
		s[i] = e.Error()
	}
	errs := strings.Join(s, "\n")
	if me.dropped == 0 {
		return fmt.Sprintf("[%s]", errs)
	}
	return fmt.Sprintf("[%s] [plus %d other error(s)]", errs, me.dropped)
}

// ErrorOrNil returns nil if no errors were captured, itself otherwise.
func (me *MultiError) ErrorOrNil() error {
	if me == nil {
		return nil
	}
	me.mu.Lock()
	defer me.mu.Unlock()
	if len(me.errs) == 0 {
		return nil
	}
	return me
}
