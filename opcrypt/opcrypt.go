// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package opcrypt encrypts and decrypts the text carried by document
// operations while leaving their structure intact.
//
// An encrypted op has the same shape as its plaintext: every inserted
// or deleted character is replaced by a placeholder rune, and the text
// itself travels in ciphertexts attached as annotations. Inserted text
// is sealed in the value of the key AddKey(scope), which covers the
// op's whole output; deleted text is sealed in the old value of the
// key DelKey(scope), which covers the op's whole input. Servers that
// store and transform encrypted ops never see plaintext, and a
// piecetable.Table replaying the history can attribute every character
// of the document to a position within one ciphertext.
package opcrypt

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/grailbio/wavecrypt/crypto/encryption"
	"github.com/grailbio/wavecrypt/docop"
	"github.com/grailbio/wavecrypt/errors"
	"github.com/grailbio/wavecrypt/log"
	"github.com/grailbio/wavecrypt/must"
	"github.com/grailbio/wavecrypt/wavelet"
	"golang.org/x/sync/errgroup"
)

const (
	// Prefix is the common prefix of all cipher annotation keys.
	Prefix    = "cipher/"
	addPrefix = Prefix + "add/"
	delPrefix = Prefix + "del/"
)

// DefaultPlaceholder replaces every encrypted character.
const DefaultPlaceholder = '*'

// AddKey returns the annotation key carrying the ciphertext of text
// inserted under scope.
func AddKey(scope string) string { return addPrefix + scope }

// DelKey returns the annotation key carrying the ciphertext of text
// deleted under scope.
func DelKey(scope string) string { return delPrefix + scope }

// IsCipherKey tells whether key is a cipher annotation key.
func IsCipherKey(key string) bool { return strings.HasPrefix(key, Prefix) }

// Encryptor encrypts and decrypts ops.
type Encryptor struct {
	// Algebra composes and inverts ops.
	Algebra docop.Algebra
	// Placeholder replaces encrypted characters.
	Placeholder rune
}

// New returns an Encryptor using alg and the default placeholder.
func New(alg docop.Algebra) *Encryptor {
	return &Encryptor{Algebra: alg, Placeholder: DefaultPlaceholder}
}

// obfuscate replaces the text of op with placeholders, returning the
// inserted and deleted text in document order.
func (e *Encryptor) obfuscate(op docop.Op) (obf docop.Op, ins, del string) {
	var insb, delb strings.Builder
	obf = make(docop.Op, len(op))
	for i, c := range op {
		switch c := c.(type) {
		case docop.Characters:
			insb.WriteString(c.Text)
			obf[i] = docop.Characters{Text: e.placeholders(c.Text)}
		case docop.DeleteCharacters:
			delb.WriteString(c.Text)
			obf[i] = docop.DeleteCharacters{Text: e.placeholders(c.Text)}
		default:
			obf[i] = c
		}
	}
	return obf, insb.String(), delb.String()
}

func (e *Encryptor) placeholders(s string) string {
	return strings.Repeat(string(e.Placeholder), utf8.RuneCountInString(s))
}

// annotate marks the whole output of op with key changing from nil to
// ciphertext.
func (e *Encryptor) annotate(op docop.Op, key, ciphertext string) (docop.Op, error) {
	skeleton := new(docop.Builder).
		Start(key, nil, docop.Value(ciphertext)).
		Retain(docop.OutputLen(op)).
		End(key).
		Build()
	return e.Algebra.Compose(op, skeleton)
}

// Encrypt returns op with its text replaced by placeholders and sealed
// by p in cipher annotations for scope. The two provider calls, for the
// inserted and the deleted text, are made concurrently; if either
// fails, Encrypt returns an error of kind errors.Cipher and no op.
func (e *Encryptor) Encrypt(ctx context.Context, op docop.Op, scope string, p encryption.Provider) (docop.Op, error) {
	if err := docop.Validate(op); err != nil {
		return nil, err
	}
	obf, ins, del := e.obfuscate(op)
	var insCT, delCT string
	g, gctx := errgroup.WithContext(ctx)
	if ins != "" {
		g.Go(func() (err error) {
			insCT, err = p.Encrypt(gctx, ins, "")
			return
		})
	}
	if del != "" {
		g.Go(func() (err error) {
			delCT, err = p.Encrypt(gctx, del, "")
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.E(errors.Cipher, "encrypt", err)
	}
	out := obf
	if del != "" {
		inv, err := e.annotate(e.Algebra.Invert(out), DelKey(scope), delCT)
		if err != nil {
			return nil, err
		}
		out = e.Algebra.Invert(inv)
	}
	if ins != "" {
		var err error
		if out, err = e.annotate(out, AddKey(scope), insCT); err != nil {
			return nil, err
		}
	}
	if log.At(log.Debug) {
		log.Debug.Printf("opcrypt: scope %s: sealed %v inserted, %v deleted", scope, log.Redacted(ins), log.Redacted(del))
	}
	return out, nil
}

// ciphertexts returns the inserted text's ciphertext (the first
// non-nil new value of a cipher key) and the deleted text's (the first
// non-nil old value), if op is encrypted.
func ciphertexts(op docop.Op) (ins, del *string, ok bool) {
	if len(op) == 0 {
		return nil, nil, false
	}
	first, isBoundary := op[0].(docop.AnnotationBoundary)
	if !isBoundary {
		return nil, nil, false
	}
	for _, ch := range first.Changes {
		if IsCipherKey(ch.Key) {
			ok = true
			break
		}
	}
	if !ok {
		return nil, nil, false
	}
	for _, c := range op {
		b, isBoundary := c.(docop.AnnotationBoundary)
		if !isBoundary {
			continue
		}
		for _, ch := range b.Changes {
			if !IsCipherKey(ch.Key) {
				continue
			}
			if ins == nil && ch.New != nil {
				ins = ch.New
			}
			if del == nil && ch.Old != nil {
				del = ch.Old
			}
		}
	}
	return ins, del, true
}

// Decrypt returns the plaintext form of an op produced by Encrypt,
// with its cipher annotations removed. Ops that do not begin with a
// cipher annotation are returned unchanged. Decrypt panics if a
// plaintext is shorter than the placeholders it should fill.
func (e *Encryptor) Decrypt(ctx context.Context, op docop.Op, p encryption.Provider) (docop.Op, error) {
	insCT, delCT, ok := ciphertexts(op)
	if !ok {
		return op, nil
	}
	var ins, del string
	g, gctx := errgroup.WithContext(ctx)
	if insCT != nil {
		g.Go(func() (err error) {
			ins, err = p.Decrypt(gctx, *insCT)
			return
		})
	}
	if delCT != nil {
		g.Go(func() (err error) {
			del, err = p.Decrypt(gctx, *delCT)
			return
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.E(errors.Cipher, "decrypt", err)
	}
	filled := make(docop.Op, len(op))
	for i, c := range op {
		switch c := c.(type) {
		case docop.Characters:
			var text string
			text, ins = take(ins, c.Text)
			filled[i] = docop.Characters{Text: text}
		case docop.DeleteCharacters:
			var text string
			text, del = take(del, c.Text)
			filled[i] = docop.DeleteCharacters{Text: text}
		default:
			filled[i] = c
		}
	}
	return Unannotate(filled), nil
}

// take splits off the prefix of plaintext with as many runes as
// placeholders.
func take(plaintext, placeholders string) (prefix, rest string) {
	n := utf8.RuneCountInString(placeholders)
	i := 0
	for ; n > 0 && i < len(plaintext); n-- {
		_, size := utf8.DecodeRuneInString(plaintext[i:])
		i += size
	}
	must.Truef(n == 0, "plaintext is %d runes short of its placeholders", n)
	return plaintext[:i], plaintext[i:]
}

// Unannotate removes all cipher annotations from op.
func Unannotate(op docop.Op) docop.Op {
	var b docop.Builder
	for _, c := range op {
		ab, ok := c.(docop.AnnotationBoundary)
		if !ok {
			b.Add(c)
			continue
		}
		var stripped docop.AnnotationBoundary
		for _, k := range ab.Ends {
			if !IsCipherKey(k) {
				stripped.Ends = append(stripped.Ends, k)
			}
		}
		for _, ch := range ab.Changes {
			if !IsCipherKey(ch.Key) {
				stripped.Changes = append(stripped.Changes, ch)
			}
		}
		b.AnnotationBoundary(stripped)
	}
	return b.Build()
}

// EncryptWavelet encrypts the content of a blip content op. Other
// wavelet ops are returned unchanged.
func (e *Encryptor) EncryptWavelet(ctx context.Context, op wavelet.Op, scope string, p encryption.Provider) (wavelet.Op, error) {
	_, content, ok := wavelet.ContentOf(op)
	if !ok {
		return op, nil
	}
	enc, err := e.Encrypt(ctx, content, scope, p)
	if err != nil {
		return nil, err
	}
	return wavelet.WithContent(op, enc), nil
}

// DecryptWavelet decrypts the content of a blip content op. Other
// wavelet ops are returned unchanged.
func (e *Encryptor) DecryptWavelet(ctx context.Context, op wavelet.Op, p encryption.Provider) (wavelet.Op, error) {
	_, content, ok := wavelet.ContentOf(op)
	if !ok {
		return op, nil
	}
	dec, err := e.Decrypt(ctx, content, p)
	if err != nil {
		return nil, err
	}
	return wavelet.WithContent(op, dec), nil
}
