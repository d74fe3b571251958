// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/grailbio/wavecrypt/errors"
	"github.com/klauspost/compress/gzip"
)

// input is a file opened for reading. Paths ending in .gz are
// decompressed; "-" is stdin.
type input struct {
	io.Reader
	f  *os.File
	gz *gzip.Reader
}

func openInput(path string) (*input, error) {
	in := &input{f: os.Stdin}
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.E(err, "open", path)
		}
		in.f = f
	}
	in.Reader = bufio.NewReader(in.f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(in.Reader)
		if err != nil {
			in.Close()
			return nil, errors.E(errors.Serialization, err, "gunzip", path)
		}
		in.gz, in.Reader = gz, gz
	}
	return in, nil
}

func (in *input) Close() error {
	if in.gz != nil {
		in.gz.Close()
	}
	if in.f == os.Stdin {
		return nil
	}
	return in.f.Close()
}

// output is a file opened for writing. Paths ending in .gz are
// compressed; "-" is the command's output.
type output struct {
	io.Writer
	path string
	f    *os.File
	buf  *bufio.Writer
	gz   *gzip.Writer
}

func createOutput(stdout io.Writer, path string) (*output, error) {
	o := &output{path: path}
	if path == "-" {
		o.buf = bufio.NewWriter(stdout)
	} else {
		f, err := os.Create(path)
		if err != nil {
			return nil, errors.E(err, "create", path)
		}
		o.f, o.buf = f, bufio.NewWriter(f)
	}
	o.Writer = o.buf
	if strings.HasSuffix(path, ".gz") {
		o.gz = gzip.NewWriter(o.buf)
		o.Writer = o.gz
	}
	return o, nil
}

// Close flushes and closes the output, returning the first error.
func (o *output) Close() error {
	var err error
	if o.gz != nil {
		err = o.gz.Close()
	}
	if e := o.buf.Flush(); err == nil {
		err = e
	}
	if o.f != nil {
		if e := o.f.Close(); err == nil {
			err = e
		}
	}
	if err != nil {
		return errors.E(err, "write", o.path)
	}
	return nil
}
