// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/grailbio/wavecrypt/crypto/encryption"
	"github.com/grailbio/wavecrypt/docop"
	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/log"
	"github.com/grailbio/wavecrypt/opcrypt"
	"github.com/grailbio/wavecrypt/wavelet"
)

func Encrypt(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags           flag.FlagSet
		kf              = addKeyFlags(&flags)
		placeholderFlag = flags.String("placeholder", string(opcrypt.DefaultPlaceholder), "Character that replaces encrypted text")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := nargs(&flags, 2, "encrypt -wave id history obfuscated-history"); err != nil {
		return err
	}
	if utf8.RuneCountInString(*placeholderFlag) != 1 {
		return errors.E(errors.Invalid, "-placeholder must be a single character")
	}
	e := opcrypt.New(docop.Default)
	e.Placeholder, _ = utf8.DecodeRuneInString(*placeholderFlag)
	return transformHistory(ctx, out, kf, flags.Arg(0), flags.Arg(1),
		func(op wavelet.Op, p encryption.Provider) (wavelet.Op, error) {
			return e.EncryptWavelet(ctx, op, uuid.NewString(), p)
		})
}

func Decrypt(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags flag.FlagSet
		kf    = addKeyFlags(&flags)
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := nargs(&flags, 2, "decrypt -wave id obfuscated-history history"); err != nil {
		return err
	}
	e := opcrypt.New(docop.Default)
	return transformHistory(ctx, out, kf, flags.Arg(0), flags.Arg(1),
		func(op wavelet.Op, p encryption.Provider) (wavelet.Op, error) {
			return e.DecryptWavelet(ctx, op, p)
		})
}

// transformHistory rewrites every operation of the history at src
// with fn and writes the result to dst.
func transformHistory(ctx context.Context, stdout io.Writer, kf keyFlags, src, dst string, fn func(wavelet.Op, encryption.Provider) (wavelet.Op, error)) (err error) {
	p, err := kf.provider(ctx)
	if err != nil {
		return err
	}
	in, err := openInput(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := createOutput(stdout, dst)
	if err != nil {
		return err
	}
	defer errors.CleanUp(out.Close, &err)
	var (
		r = wavelet.NewReader(in)
		w = wavelet.NewWriter(out)
		n int
	)
	for {
		d, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.E(err, src)
		}
		for i, op := range d.Ops {
			if d.Ops[i], err = fn(op, p); err != nil {
				return errors.E(err, fmt.Sprintf("delta at version %d", d.Version))
			}
		}
		if err := w.Write(d); err != nil {
			return err
		}
		n++
	}
	log.Debug.Printf("%s: %d deltas", src, n)
	return nil
}
