// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/grailbio/wavecrypt/errors"
)

var expectBackoff = []time.Duration{
	time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	10 * time.Second,
	10 * time.Second,
}

func TestBackoff(t *testing.T) {
	policy := Backoff(time.Second, 10*time.Second, 2)
	for retries, wait := range expectBackoff {
		keepgoing, dur := policy.Retry(retries)
		if !keepgoing {
			t.Fatal("!keepgoing")
		}
		if got, want := dur, wait; got != want {
			t.Errorf("retry %d: got %v, want %v", retries, got, want)
		}
	}
	// Large retry counts must not overflow.
	for _, retries := range []int{100, 1000, 1 << 20} {
		if _, dur := policy.Retry(retries); dur != 10*time.Second {
			t.Errorf("retry %d: got %v", retries, dur)
		}
	}
}

func TestJitter(t *testing.T) {
	for _, frac := range []float64{1, 0.5} {
		policy := Jitter(Backoff(time.Second, 10*time.Second, 2), frac)
		for retries, wait := range expectBackoff {
			keepgoing, dur := policy.Retry(retries)
			if !keepgoing {
				t.Fatal("!keepgoing")
			}
			min := time.Duration(float64(wait) * (1 - frac))
			if dur < min || dur > wait {
				t.Errorf("frac %v retry %d: got %v, want within [%v, %v]", frac, retries, dur, min, wait)
			}
		}
	}
}

func TestMaxTries(t *testing.T) {
	policy := MaxTries(nil, 3)
	for retries, want := range []bool{true, true, false, false} {
		if got, _ := policy.Retry(retries); got != want {
			t.Errorf("retry %d: got %v, want %v", retries, got, want)
		}
	}
}

func TestWaitCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got, want := Wait(ctx, Backoff(time.Hour, time.Hour, 1), 0), context.Canceled; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWaitDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if got, want := Wait(ctx, Backoff(time.Hour, time.Hour, 1), 0), errors.E(errors.Timeout); !errors.Match(want, got) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()
	var calls int
	err := Do(ctx, MaxTries(nil, 5), func() error {
		calls++
		if calls < 3 {
			return errors.E(errors.Temporary, "kms throttled")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("got %v after %d calls", err, calls)
	}

	calls = 0
	err = Do(ctx, MaxTries(nil, 2), func() error {
		calls++
		return errors.E(errors.Temporary, "kms throttled")
	})
	if !errors.Is(errors.TooManyTries, err) || calls != 2 {
		t.Errorf("got %v after %d calls", err, calls)
	}

	calls = 0
	err = Do(ctx, MaxTries(nil, 5), func() error {
		calls++
		return errors.E(errors.Cipher, errors.Fatal, "bad tag")
	})
	if !errors.Is(errors.Cipher, err) || calls != 1 {
		t.Errorf("got %v after %d calls", err, calls)
	}
}
