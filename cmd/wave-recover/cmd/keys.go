// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/security/keycrypt"
)

func Keygen(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags flag.FlagSet
		kf    = addKeyFlags(&flags)
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := nargs(&flags, 0, "keygen -wave id"); err != nil {
		return err
	}
	ks, err := kf.keystore()
	if err != nil {
		return err
	}
	k, err := ks.Generate(ctx, *kf.wave)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wave %s: generated %s key\n", *kf.wave, k.Alg)
	return nil
}

func RegisterKey(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags flag.FlagSet
		kf    = addKeyFlags(&flags)
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := nargs(&flags, 1, "register -wave id jwk.json"); err != nil {
		return err
	}
	ks, err := kf.keystore()
	if err != nil {
		return err
	}
	in, err := openInput(flags.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()
	var k keycrypt.JWK
	if err := json.NewDecoder(in).Decode(&k); err != nil {
		return errors.E(errors.Invalid, err, "read key", flags.Arg(0))
	}
	if err := ks.Register(ctx, *kf.wave, k); err != nil {
		return err
	}
	fmt.Fprintf(out, "wave %s: registered %s key\n", *kf.wave, k.Alg)
	return nil
}
