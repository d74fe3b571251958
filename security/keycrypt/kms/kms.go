// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package kms implements a Keycrypt using AWS's KMS service and S3.
// Secrets are stored using the "s3crypto" package (client-side
// encryption on S3), which performs envelope encryption under a KMS
// key aliased "alias/<id>" in the bucket "wavecrypt-keys-<id>".
package kms

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3crypto"
	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/security/keycrypt"
)

const (
	// The prefix used for S3 bucket keys. This is defined so that
	// we can support future versions which may make use of
	// different representations and layouts.
	prefix = "v1/"
)

// CredentialsChainVerboseErrors is passed to the session created for
// kms:// URLs.
var CredentialsChainVerboseErrors = false

// DefaultRegion is the AWS region used for kms:// URLs.
var DefaultRegion = "us-west-2"

func init() {
	keycrypt.RegisterFunc("kms", func(h string) keycrypt.Keycrypt {
		sess := session.New(&aws.Config{
			Region:                        &DefaultRegion,
			CredentialsChainVerboseErrors: &CredentialsChainVerboseErrors,
		})
		return New(sess, h)
	})
}

var _ keycrypt.Keycrypt = (*Crypt)(nil)

// Crypt is a Keycrypt backed by KMS and S3.
type Crypt struct {
	sess    *session.Session
	handler s3crypto.CipherDataGenerator
	bucket  string
}

// New returns a Crypt for the key and bucket named by id.
func New(sess *session.Session, id string) *Crypt {
	return &Crypt{
		sess:    sess,
		handler: s3crypto.NewKMSKeyGenerator(kms.New(sess), fmt.Sprintf("alias/%s", id)),
		bucket:  fmt.Sprintf("wavecrypt-keys-%s", id),
	}
}

// Lookup returns the secret stored under name in the bucket.
func (c *Crypt) Lookup(name string) keycrypt.Secret {
	return &secret{c, name}
}

type secret struct {
	*Crypt
	name string
}

func (s *secret) Get(ctx context.Context) ([]byte, error) {
	svc := s3crypto.NewDecryptionClient(s.sess)

	key := path.Join(prefix, s.name)
	resp, err := svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, kmsError(s.bucket, key, err)
	}

	p, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, errors.E(errors.Temporary, "s3://"+s.bucket+"/"+key, err)
	}
	return p, nil
}

func (s *secret) Put(ctx context.Context, p []byte) error {
	svc := s3crypto.NewEncryptionClient(s.sess, s3crypto.AESGCMContentCipherBuilder(s.handler))

	key := path.Join(prefix, s.name)
	_, err := svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Body:   bytes.NewReader(p),
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return kmsError(s.bucket, key, err)
	}
	return nil
}

func kmsError(bucket, key string, err error) error {
	msg := "s3://" + bucket + "/" + key
	aerr, ok := err.(awserr.Error)
	if !ok {
		return errors.E(msg, err)
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey:
		return errors.E(errors.NotExist, msg, err)
	case s3.ErrCodeNoSuchBucket:
		return errors.E(errors.NotExist, errors.Fatal, msg, err)
	case "AccessDenied", kms.ErrCodeNotFoundException:
		return errors.E(errors.NotAllowed, errors.Fatal, msg, err)
	case "RequestTimeout", "SlowDown", "InternalError", kms.ErrCodeInternalException:
		return errors.E(errors.Temporary, msg, err)
	default:
		return errors.E(msg, err)
	}
}
