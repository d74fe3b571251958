// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kms

import (
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/wavecrypt/errors"
)

func TestKMSError(t *testing.T) {
	for _, c := range []struct {
		err       error
		kind      errors.Kind
		temporary bool
	}{
		{awserr.New(s3.ErrCodeNoSuchKey, "no key", nil), errors.NotExist, false},
		{awserr.New(s3.ErrCodeNoSuchBucket, "no bucket", nil), errors.NotExist, false},
		{awserr.New("AccessDenied", "denied", nil), errors.NotAllowed, false},
		{awserr.New("SlowDown", "slow", nil), errors.Other, true},
		{fmt.Errorf("boom"), errors.Other, false},
	} {
		err := kmsError("b", "v1/k", c.err)
		expect.HasSubstr(t, err, "s3://b/v1/k")
		if c.kind != errors.Other {
			expect.True(t, errors.Is(c.kind, err), c.err)
		}
		expect.EQ(t, errors.IsTemporary(err), c.temporary, c.err)
	}
}
