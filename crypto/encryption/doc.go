// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package encryption provides the cipher providers used to seal the
// content of collaborative document operations.
//
// A Provider turns a plaintext string and its additional authenticated
// data into an opaque ciphertext string, and back. The ciphertext
// produced by the providers in this package is a record of three
// standard base64 fields separated by semicolons:
//
//	base64(iv) ";" base64(sealed) ";" base64(aad)
//
// where sealed is the AEAD output (ciphertext followed by its tag).
// Providers are looked up by scheme name ("A256GCM", "XC20P") through a
// process-wide registry so that keys stored as JSON web keys can name the
// algorithm they are used with.
package encryption
