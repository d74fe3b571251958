// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package retry implements retry policies for calls to remote
// services such as key management and cipher providers.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/grailbio/wavecrypt/errors"
)

// A Policy decides whether a retry should be attempted, and after
// how long. Users normally go through Wait or Do rather than calling
// Retry directly.
type Policy interface {
	// Retry is called with the number of retries attempted so far.
	Retry(retry int) (bool, time.Duration)
}

// Wait sleeps for the duration the policy prescribes for the given
// retry. It fails if the policy gives up, if ctx is done, or if the
// deadline of ctx would expire before the wait is over.
func Wait(ctx context.Context, policy Policy, retry int) error {
	keepgoing, wait := policy.Retry(retry)
	if !keepgoing {
		return errors.E(errors.TooManyTries, fmt.Sprintf("gave up after %d tries", retry))
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
		return errors.E(errors.Timeout, "ran out of time while waiting for retry")
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do calls fn until it succeeds, fails with an error that is not
// temporary (see errors.IsTemporary), or the policy gives up. In the
// last case the error from fn is returned, annotated with the
// policy's reason.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	for retries := 0; ; retries++ {
		err := fn()
		if err == nil || !errors.IsTemporary(err) {
			return err
		}
		if werr := Wait(ctx, policy, retries); werr != nil {
			return errors.E(errors.Recover(werr).Kind, errors.Fatal, fmt.Sprintf("after %d tries", retries+1), err)
		}
	}
}

type backoff struct {
	factor       float64
	initial, max time.Duration
}

// Backoff returns a policy that waits initial before the first
// retry and multiplies the wait by factor on each subsequent one, up
// to max.
func Backoff(initial, max time.Duration, factor float64) Policy {
	return &backoff{factor: factor, initial: initial, max: max}
}

func (b *backoff) Retry(retries int) (bool, time.Duration) {
	wait := float64(b.initial) * math.Pow(b.factor, float64(retries))
	if wait > float64(b.max) || math.IsInf(wait, 0) || math.IsNaN(wait) {
		return true, b.max
	}
	return true, time.Duration(wait)
}

type jitter struct {
	policy Policy
	frac   float64
}

// Jitter randomizes the waits of policy: a fraction frac of each
// wait is replaced by a uniformly random duration no longer than it.
// With frac 1 every wait is fully random ("full jitter"); with frac
// 0.5 at least half of each wait is kept.
func Jitter(policy Policy, frac float64) Policy {
	if frac < 0 || frac > 1 {
		panic("retry.Jitter: frac must be in [0, 1]")
	}
	return &jitter{policy, frac}
}

func (j *jitter) Retry(retries int) (bool, time.Duration) {
	ok, wait := j.policy.Retry(retries)
	if !ok || wait <= 0 {
		return ok, wait
	}
	fixed := time.Duration(float64(wait) * (1 - j.frac))
	random := wait - fixed
	if random > 0 {
		random = time.Duration(rand.Int63n(int64(random) + 1))
	}
	return true, fixed + random
}

type maxtries struct {
	policy Policy
	max    int
}

// MaxTries returns a policy that permits at most n tries in total.
// Within the limit it defers to policy, or retries immediately if
// policy is nil.
func MaxTries(policy Policy, n int) Policy {
	if n < 1 {
		panic("retry.MaxTries: n < 1")
	}
	return &maxtries{policy, n - 1}
}

func (m *maxtries) Retry(retries int) (bool, time.Duration) {
	if retries >= m.max {
		return false, 0
	}
	if m.policy != nil {
		return m.policy.Retry(retries)
	}
	return true, 0
}
