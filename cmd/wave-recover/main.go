// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Command wave-recover encrypts wavelet histories and recovers the
// plaintext of encrypted ones.
//
//	wave-recover keygen -keys file:///keys -wave example.com/w+1
//	wave-recover encrypt -wave example.com/w+1 history.json obfuscated.json.gz
//	wave-recover replay -wavelet example.com/w+1/conv+root obfuscated.json.gz tables.json
//	wave-recover reconstitute -wave example.com/w+1 -docs 'b+*' tables.json
//
// Keys are looked up in a keycrypt URL: file://, localfile://, kms://,
// passwd://, keychain:// (macOS) or memory://.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/wavecrypt/cmd/wave-recover/cmd"
	"github.com/grailbio/wavecrypt/log"
	_ "github.com/grailbio/wavecrypt/security/keycrypt/file"
	_ "github.com/grailbio/wavecrypt/security/keycrypt/keychain"
	_ "github.com/grailbio/wavecrypt/security/keycrypt/kms"
	_ "github.com/grailbio/wavecrypt/security/keycrypt/passwd"
)

func main() {
	log.AddFlags()
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-log level] subcommand [flags] args...\n", os.Args[0])
		flag.PrintDefaults()
		cmd.PrintHelp()
	}
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	if err := cmd.Run(context.Background(), flag.Args()); err != nil {
		log.Fatal(err)
	}
}
