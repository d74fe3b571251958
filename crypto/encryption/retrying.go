// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package encryption

import (
	"context"

	"github.com/grailbio/wavecrypt/retry"
)

type retrying struct {
	Provider
	policy retry.Policy
}

// Retrying returns a provider that retries temporary failures of p
// according to policy. Errors that are not temporary (such as an
// authentication failure) are returned immediately.
func Retrying(p Provider, policy retry.Policy) Provider {
	return &retrying{p, policy}
}

func (r *retrying) Encrypt(ctx context.Context, plaintext, aad string) (ciphertext string, err error) {
	err = retry.Do(ctx, r.policy, func() error {
		var err error
		ciphertext, err = r.Provider.Encrypt(ctx, plaintext, aad)
		return err
	})
	return
}

func (r *retrying) Decrypt(ctx context.Context, ciphertext string) (plaintext string, err error) {
	err = retry.Do(ctx, r.policy, func() error {
		var err error
		plaintext, err = r.Provider.Decrypt(ctx, ciphertext)
		return err
	})
	return
}
