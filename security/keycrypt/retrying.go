// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package keycrypt

import (
	"context"

	"github.com/grailbio/wavecrypt/retry"
)

type retrying struct {
	Keycrypt
	policy retry.Policy
}

// Retrying returns a Keycrypt whose secrets retry temporary Get and
// Put failures of kc according to policy. Other errors, NotExist in
// particular, are returned immediately.
func Retrying(kc Keycrypt, policy retry.Policy) Keycrypt {
	return &retrying{kc, policy}
}

func (r *retrying) Lookup(name string) Secret {
	return &retryingSecret{r.Keycrypt.Lookup(name), r.policy}
}

type retryingSecret struct {
	Secret
	policy retry.Policy
}

func (s *retryingSecret) Get(ctx context.Context) (p []byte, err error) {
	err = retry.Do(ctx, s.policy, func() error {
		var err error
		p, err = s.Secret.Get(ctx)
		return err
	})
	return
}

func (s *retryingSecret) Put(ctx context.Context, p []byte) error {
	return retry.Do(ctx, s.policy, func() error {
		return s.Secret.Put(ctx, p)
	})
}
