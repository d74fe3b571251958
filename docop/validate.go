// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package docop

import (
	"fmt"
	"sort"

	"github.com/grailbio/wavecrypt/errors"
)

// Validate checks that op is well-formed: components are non-empty,
// inserted and deleted elements are balanced and properly nested,
// the content of an inserted element is inserted and the content of
// a deleted element is deleted, and annotation boundaries only close
// open keys and leave no key open at the end of the op. Validate
// cannot check deletions against a document; Compose does that.
//
// Errors are of kind errors.Malformed.
func Validate(op Op) error {
	var (
		insDepth, delDepth int
		open               = make(map[string]bool)
		prevBoundary       bool
	)
	malformed := func(i int, format string, args ...interface{}) error {
		return errors.E(errors.Malformed, fmt.Sprintf("component %d: ", i)+fmt.Sprintf(format, args...))
	}
	for i, c := range op {
		switch c.(type) {
		case Retain, ReplaceAttributes, UpdateAttributes:
			if insDepth > 0 || delDepth > 0 {
				return malformed(i, "%s inside inserted or deleted element", name(c))
			}
		case Characters, ElementStart, ElementEnd:
			if delDepth > 0 {
				return malformed(i, "%s inside deleted element", name(c))
			}
		case DeleteCharacters, DeleteElementStart, DeleteElementEnd:
			if insDepth > 0 {
				return malformed(i, "%s inside inserted element", name(c))
			}
		}
		if _, ok := c.(AnnotationBoundary); !ok {
			prevBoundary = false
		}
		switch c := c.(type) {
		case Retain:
			if c.N <= 0 {
				return malformed(i, "non-positive retain %d", c.N)
			}
		case Characters:
			if c.Text == "" {
				return malformed(i, "empty characters")
			}
		case DeleteCharacters:
			if c.Text == "" {
				return malformed(i, "empty delete characters")
			}
		case ElementStart:
			if err := validTag(c.Tag); err != nil {
				return malformed(i, "%v", err)
			}
			insDepth++
		case ElementEnd:
			if insDepth == 0 {
				return malformed(i, "element end without start")
			}
			insDepth--
		case DeleteElementStart:
			if err := validTag(c.Tag); err != nil {
				return malformed(i, "%v", err)
			}
			delDepth++
		case DeleteElementEnd:
			if delDepth == 0 {
				return malformed(i, "delete element end without start")
			}
			delDepth--
		case UpdateAttributes:
			seen := make(map[string]bool, len(c.Update))
			for _, u := range c.Update {
				if u.Name == "" || seen[u.Name] {
					return malformed(i, "bad or duplicate attribute name %q", u.Name)
				}
				seen[u.Name] = true
			}
		case AnnotationBoundary:
			if prevBoundary {
				return malformed(i, "adjacent annotation boundaries")
			}
			prevBoundary = true
			if c.Empty() {
				return malformed(i, "empty annotation boundary")
			}
			seen := make(map[string]bool, len(c.Ends)+len(c.Changes))
			for _, k := range c.Ends {
				if seen[k] {
					return malformed(i, "duplicate annotation key %q", k)
				}
				seen[k] = true
				if !open[k] {
					return malformed(i, "annotation key %q ended but not open", k)
				}
				delete(open, k)
			}
			for _, ch := range c.Changes {
				if ch.Key == "" {
					return malformed(i, "empty annotation key")
				}
				if seen[ch.Key] {
					return malformed(i, "duplicate annotation key %q", ch.Key)
				}
				seen[ch.Key] = true
				open[ch.Key] = true
			}
		case nil:
			return malformed(i, "nil component")
		}
	}
	switch {
	case insDepth > 0:
		return errors.E(errors.Malformed, fmt.Sprintf("%d inserted elements left open", insDepth))
	case delDepth > 0:
		return errors.E(errors.Malformed, fmt.Sprintf("%d deleted elements left open", delDepth))
	case len(open) > 0:
		return errors.E(errors.Malformed, fmt.Sprintf("annotation keys left open: %v", sortedKeys(open)))
	}
	return nil
}

func validTag(tag string) error {
	if tag == "" {
		return errors.New("empty element tag")
	}
	return nil
}

func name(c Component) string {
	switch c.(type) {
	case Retain:
		return "retain"
	case Characters:
		return "characters"
	case DeleteCharacters:
		return "delete characters"
	case ElementStart:
		return "element start"
	case ElementEnd:
		return "element end"
	case DeleteElementStart:
		return "delete element start"
	case DeleteElementEnd:
		return "delete element end"
	case ReplaceAttributes:
		return "replace attributes"
	case UpdateAttributes:
		return "update attributes"
	case AnnotationBoundary:
		return "annotation boundary"
	}
	return fmt.Sprintf("%T", c)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
