// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package cmd implements the subcommands of wave-recover.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/grailbio/wavecrypt/crypto/encryption"
	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/retry"
	"github.com/grailbio/wavecrypt/security/keycrypt"
)

var commands = []struct {
	name     string
	callback func(ctx context.Context, out io.Writer, args []string) error
	help     string
}{
	{"keygen", Keygen, `Keygen generates a key for a wave and stores it in the keystore.`},
	{"register", RegisterKey, `Register stores an existing JSON web key, read from the given file or stdin, for a wave.`},
	{"encrypt", Encrypt, `Encrypt reads a plaintext wavelet history and writes its obfuscated form.
Each content operation is encrypted under a fresh scope id.`},
	{"decrypt", Decrypt, `Decrypt reads an obfuscated wavelet history and writes its plaintext form.`},
	{"replay", Replay, `Replay reads an obfuscated wavelet history and writes the piece tables of its
documents. Documents whose replay fails are reported and omitted.`},
	{"reconstitute", Reconstitute, `Reconstitute reads piece tables written by replay, decrypts the ciphertexts
they use and prints the text of each document. Document ids may be filtered
by a glob defined in https://github.com/gobwas/glob.`},
	{"snapshot", Snapshot, `Snapshot decrypts an obfuscated document initialization, given the piece
tables written by replay.`},
}

// PrintHelp prints the subcommands to stderr.
func PrintHelp() {
	fmt.Fprintln(os.Stderr, "Subcommands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "%s: %s\n", c.name, c.help)
	}
}

// Run runs the subcommand named by args[0].
func Run(ctx context.Context, args []string) error {
	return RunTo(ctx, os.Stdout, args)
}

// RunTo is Run with output written to out.
func RunTo(ctx context.Context, out io.Writer, args []string) error {
	if len(args) == 0 {
		PrintHelp()
		return errors.E("no subcommand given")
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.callback(ctx, out, args[1:])
		}
	}
	PrintHelp()
	return errors.E("unknown command", args[0])
}

// keyFlags are the flags of subcommands that need a wave key.
type keyFlags struct {
	keys    *string
	wave    *string
	retries *int
}

// backoff is the wait policy of keystore and cipher calls that fail
// with temporary errors.
var backoff = retry.Jitter(retry.Backoff(100*time.Millisecond, 5*time.Second, 2), 0.25)

func addKeyFlags(flags *flag.FlagSet) keyFlags {
	return keyFlags{
		keys:    flags.String("keys", "localfile://wavecrypt", "Keycrypt URL of the keystore"),
		wave:    flags.String("wave", "", "Wave id whose key is used"),
		retries: flags.Int("retries", 5, "Number of tries of each keystore and cipher call"),
	}
}

func (f keyFlags) policy() (retry.Policy, error) {
	if *f.retries < 1 {
		return nil, errors.E(errors.Invalid, "-retries must be positive")
	}
	return retry.MaxTries(backoff, *f.retries), nil
}

// keystore opens the keystore named by -keys. Temporary failures of
// its secrets are retried.
func (f keyFlags) keystore() (*keycrypt.Keystore, error) {
	if *f.wave == "" {
		return nil, errors.E(errors.Invalid, "-wave is required")
	}
	policy, err := f.policy()
	if err != nil {
		return nil, err
	}
	kc, err := keycrypt.Open(*f.keys)
	if err != nil {
		return nil, err
	}
	return keycrypt.NewKeystore(keycrypt.Retrying(kc, policy)), nil
}

// provider returns the wave's cipher provider. Temporary provider
// failures are retried with jittered exponential backoff.
func (f keyFlags) provider(ctx context.Context) (encryption.Provider, error) {
	ks, err := f.keystore()
	if err != nil {
		return nil, err
	}
	p, err := ks.Provider(ctx, *f.wave)
	if err != nil {
		return nil, err
	}
	policy, err := f.policy()
	if err != nil {
		return nil, err
	}
	return encryption.Retrying(p, policy), nil
}

func nargs(flags *flag.FlagSet, n int, usage string) error {
	if flags.NArg() != n {
		return errors.E(errors.Invalid, "usage:", usage)
	}
	return nil
}
