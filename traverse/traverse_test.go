// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package traverse_test

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/grailbio/wavecrypt/traverse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recovered(f func()) (v interface{}) {
	defer func() { v = recover() }()
	f()
	return v
}

func TestEach(t *testing.T) {
	list := make([]int, 5)
	require.NoError(t, traverse.Each(5, func(i int) error {
		list[i] += i
		return nil
	}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, list)

	expectedErr := errors.New("document b+3: malformed")
	err := traverse.Limit(2).Each(5, func(i int) error {
		if i == 3 {
			return expectedErr
		}
		return nil
	})
	assert.Equal(t, expectedErr, err)
}

func TestEachEmpty(t *testing.T) {
	require.NoError(t, traverse.Parallel.Each(0, func(int) error {
		t.Fatal("unexpected invocation")
		return nil
	}))
}

func TestEachLarge(t *testing.T) {
	for _, test := range []struct{ n, limit int }{
		{1, 1}, {10, 2}, {100001, 5}, {7, 100},
	} {
		data := make([]int32, test.n)
		var concurrent, peak int32
		require.NoError(t, traverse.Limit(test.limit).Each(test.n, func(i int) error {
			c := atomic.AddInt32(&concurrent, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if c <= p || atomic.CompareAndSwapInt32(&peak, p, c) {
					break
				}
			}
			atomic.AddInt32(&data[i], 1)
			atomic.AddInt32(&concurrent, -1)
			return nil
		}))
		for i, d := range data {
			if d != 1 {
				t.Fatalf("n=%d limit=%d: element %d visited %d times", test.n, test.limit, i, d)
			}
		}
		assert.True(t, int(peak) <= test.limit, "peak concurrency %d exceeds limit %d", peak, test.limit)
	}
}

func TestRange(t *testing.T) {
	const N = 500
	counts := make([]int64, N)
	for iter := 0; iter < 200; iter++ {
		tr := traverse.T{Limit: rand.Intn(N*2) + 1}
		var invocations int64
		err := tr.Range(N, func(start, end int) error {
			if start < 0 || end > N || end <= start {
				return fmt.Errorf("invalid range [%d,%d)", start, end)
			}
			atomic.AddInt64(&invocations, 1)
			for i := start; i < end; i++ {
				atomic.AddInt64(&counts[i], 1)
			}
			return nil
		})
		require.NoError(t, err, "limit %d", tr.Limit)
		expect := int64(tr.Limit)
		if expect > N {
			expect = N
		}
		assert.Equal(t, expect, invocations)
		for i := range counts {
			require.Equal(t, int64(1), counts[i], "counts[%d] limit %d", i, tr.Limit)
			counts[i] = 0
		}
	}
}

func TestPanic(t *testing.T) {
	v := recovered(func() {
		traverse.Each(5, func(i int) error {
			if i == 3 {
				panic("piece tree corrupt")
			}
			return nil
		})
	})
	s, ok := v.(string)
	require.True(t, ok, "expected string panic, got %T", v)
	assert.True(t, strings.HasPrefix(s, "traverse child: piece tree corrupt"), s)
}

func TestInvalidLimit(t *testing.T) {
	assert.NotNil(t, recovered(func() { traverse.Limit(0) }))
}
