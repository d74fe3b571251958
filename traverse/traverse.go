// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package traverse runs bounded-concurrency traversals over indexed
// collections, such as the documents of a wavelet.
package traverse

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/must"
)

// A T is a traverser. Limit bounds the number of concurrent
// invocations in a single traversal; zero means no bound.
type T struct {
	Limit int
}

// Limit returns a traverser with limit n. It panics if n <= 0.
func Limit(n int) T {
	must.Truef(n > 0, "traverse.Limit: invalid limit: %d", n)
	return T{Limit: n}
}

// Parallel is the traverser for CPU-bound work: its limit is a small
// multiple of the available processors.
var Parallel = T{Limit: 2 * runtime.GOMAXPROCS(0)}

// Each invokes fn(i) for 0 <= i < n. It returns after every
// invocation has completed or, once an invocation fails, after the
// running ones complete; the first error is returned and no new
// invocations are started. A panic in fn is propagated to the caller.
func (t T) Each(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	workers := n
	if t.Limit > 0 && t.Limit < n {
		workers = t.Limit
	}
	var (
		once errors.Once
		wg   sync.WaitGroup
		next int64 = -1
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for once.Err() == nil {
				i := int(atomic.AddInt64(&next, 1))
				if i >= n {
					return
				}
				if err := apply(fn, i); err != nil {
					once.Set(err)
				}
			}
		}()
	}
	wg.Wait()
	err := once.Err()
	if p, ok := err.(panicErr); ok {
		panic(fmt.Sprintf("traverse child: %v\n%s", p.v, p.stack))
	}
	return err
}

// Range splits [0, n) into at most t.Limit contiguous ranges and
// invokes fn once per range. It amortizes per-call overhead when the
// work per element is small.
func (t T) Range(n int, fn func(start, end int) error) error {
	m := n
	if t.Limit > 0 && t.Limit < n {
		m = t.Limit
	}
	return t.Each(m, func(i int) error {
		start, end := i*n/m, (i+1)*n/m
		if start == end {
			return nil
		}
		return fn(start, end)
	})
}

// Each is shorthand for (T{}).Each.
func Each(n int, fn func(i int) error) error {
	return T{}.Each(n, fn)
}

func apply(fn func(i int) error, i int) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = panicErr{v, debug.Stack()}
		}
	}()
	return fn(i)
}

type panicErr struct {
	v     interface{}
	stack []byte
}

func (p panicErr) Error() string { return fmt.Sprint(p.v) }
