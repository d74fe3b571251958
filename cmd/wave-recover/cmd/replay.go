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
	"io/ioutil"

	"github.com/gobwas/glob"
	"github.com/grailbio/wavecrypt/docop"
	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/log"
	"github.com/grailbio/wavecrypt/recovery"
	"github.com/grailbio/wavecrypt/sync/multierror"
	"github.com/grailbio/wavecrypt/wavelet"
)

func Replay(ctx context.Context, out io.Writer, args []string) (err error) {
	var (
		flags       flag.FlagSet
		waveletFlag = flags.String("wavelet", "", "Wavelet id recorded in the output")
		strictFlag  = flags.Bool("strict", false, "Fail if any document fails to replay")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := nargs(&flags, 2, "replay -wavelet id obfuscated-history tables.json"); err != nil {
		return err
	}
	in, err := openInput(flags.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()
	r := recovery.New(*waveletFlag)
	replayErr := r.ReplayHistory(wavelet.NewReader(in))
	if _, ok := replayErr.(*multierror.MultiError); replayErr != nil && !ok {
		return errors.E(replayErr, flags.Arg(0))
	}
	o, err := createOutput(out, flags.Arg(1))
	if err != nil {
		return err
	}
	defer errors.CleanUp(o.Close, &err)
	if err = r.WriteJSON(o); err != nil {
		return err
	}
	if replayErr != nil {
		if *strictFlag {
			return replayErr
		}
		log.Error.Printf("%s: some documents were not recovered: %v", flags.Arg(0), replayErr)
	}
	return nil
}

// load reads piece tables written by Replay, keeping only documents
// whose id matches pattern.
func load(path, pattern string) (*recovery.Recovery, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "document pattern", pattern)
	}
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	r, err := recovery.ReadJSON(in)
	if err != nil {
		return nil, errors.E(err, path)
	}
	data := r.Serialize()
	docs := data.Documents[:0]
	for _, d := range data.Documents {
		if g.Match(d.DocumentID) {
			docs = append(docs, d)
		}
	}
	data.Documents = docs
	return recovery.Deserialize(data)
}

func Reconstitute(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags           flag.FlagSet
		kf              = addKeyFlags(&flags)
		docsFlag        = flags.String("docs", "*", "Glob of the document ids to reconstitute")
		parallelismFlag = flags.Int("parallelism", 16, "Maximum number of concurrent cipher calls")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := nargs(&flags, 1, "reconstitute -wave id tables.json"); err != nil {
		return err
	}
	r, err := load(flags.Arg(0), *docsFlag)
	if err != nil {
		return err
	}
	r.Parallelism = *parallelismFlag
	p, err := kf.provider(ctx)
	if err != nil {
		return err
	}
	plaintexts, decryptErr := r.DecryptAll(ctx, p)
	if _, ok := decryptErr.(*multierror.MultiError); decryptErr != nil && !ok {
		return decryptErr
	}
	texts, err := r.Reconstitute(plaintexts)
	for _, doc := range r.Documents() {
		if text, ok := texts[doc]; ok {
			fmt.Fprintf(out, "%s\t%q\n", doc, text)
		}
	}
	// Documents that failed to decrypt fail to reconstitute too.
	if decryptErr != nil {
		return decryptErr
	}
	return err
}

func Snapshot(ctx context.Context, out io.Writer, args []string) error {
	var (
		flags   flag.FlagSet
		kf      = addKeyFlags(&flags)
		docFlag = flags.String("doc", "", "Id of the snapshot's document")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := nargs(&flags, 2, "snapshot -wave id -doc id tables.json snapshot.json"); err != nil {
		return err
	}
	if *docFlag == "" {
		return errors.E(errors.Invalid, "-doc is required")
	}
	r, err := load(flags.Arg(0), glob.QuoteMeta(*docFlag))
	if err != nil {
		return err
	}
	in, err := openInput(flags.Arg(1))
	if err != nil {
		return err
	}
	defer in.Close()
	b, err := ioutil.ReadAll(in)
	if err != nil {
		return errors.E(err, "read", flags.Arg(1))
	}
	var snapshot docop.Op
	if err := json.Unmarshal(b, &snapshot); err != nil {
		return errors.E(errors.Serialization, err, flags.Arg(1))
	}
	p, err := kf.provider(ctx)
	if err != nil {
		return err
	}
	plaintexts, err := r.DecryptAll(ctx, p)
	if err != nil {
		return err
	}
	op, err := r.DecryptSnapshot(*docFlag, snapshot, plaintexts[*docFlag])
	if err != nil {
		return err
	}
	b, err = json.Marshal(op)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", b)
	return err
}
