// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package multierror

import (
	"errors"
	"testing"
)

func TestMultiError(t *testing.T) {
	for _, test := range []struct {
		errs     []error
		expected error
	}{
		{
			[]error{},
			nil,
		},
		{
			[]error{errors.New("FAIL")},
			errors.New("FAIL"),
		},
		{
			[]error{errors.New("1"), errors.New("2"), errors.New("3")},
			errors.New(`[1
2] [plus 1 other error(s)]`),
		},
		{
			[]error{errors.New("1"), NewMultiError(2).Add(errors.New("a"))},
			errors.New(`[1
a]`),
		},
		{
			[]error{errors.New("1"), NewMultiError(1).Add(errors.New("a")).Add(errors.New("b"))},
			errors.New(`[1
a] [plus 1 other error(s)]`),
		},
	} {
		errs := NewMultiError(2)
		for _, e := range test.errs {
			errs.Add(e)
		}
		got := errs.ErrorOrNil()
		if test.expected == nil {
			if got != nil {
				t.Errorf("got %v, want nil", got)
			}
			continue
		}
		if got == nil || got.Error() != test.expected.Error() {
			t.Errorf("got %v, want %v", got, test.expected)
		}
	}
}

func TestNilMultiError(t *testing.T) {
	var me *MultiError
	if me.ErrorOrNil() != nil || me.Error() != "" || me.Errors() != nil {
		t.Error("nil MultiError should be empty")
	}
}
