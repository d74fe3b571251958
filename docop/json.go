// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package docop

import (
	"encoding/json"
	"fmt"

	"github.com/grailbio/wavecrypt/errors"
)

// Ops are encoded in JSON as arrays of single-field objects:
//
//	[{"annotationBoundary": {"change": [{"key": "cipher/add/1", "newValue": "…"}]}},
//	 {"retain": 4}, {"characters": "****"},
//	 {"annotationBoundary": {"end": ["cipher/add/1"]}}]
type jsonComponent struct {
	Retain             *int          `json:"retain,omitempty"`
	Characters         *string       `json:"characters,omitempty"`
	DeleteCharacters   *string       `json:"deleteCharacters,omitempty"`
	ElementStart       *jsonElement  `json:"elementStart,omitempty"`
	ElementEnd         bool          `json:"elementEnd,omitempty"`
	DeleteElementStart *jsonElement  `json:"deleteElementStart,omitempty"`
	DeleteElementEnd   bool          `json:"deleteElementEnd,omitempty"`
	ReplaceAttributes  *jsonReplace  `json:"replaceAttributes,omitempty"`
	UpdateAttributes   []jsonChange  `json:"updateAttributes,omitempty"`
	AnnotationBoundary *jsonBoundary `json:"annotationBoundary,omitempty"`
}

type jsonElement struct {
	Type       string     `json:"type"`
	Attributes Attributes `json:"attributes,omitempty"`
}

type jsonReplace struct {
	Old Attributes `json:"oldAttributes,omitempty"`
	New Attributes `json:"newAttributes,omitempty"`
}

type jsonChange struct {
	Key      string  `json:"key"`
	OldValue *string `json:"oldValue,omitempty"`
	NewValue *string `json:"newValue,omitempty"`
}

type jsonBoundary struct {
	End    []string     `json:"end,omitempty"`
	Change []jsonChange `json:"change,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (op Op) MarshalJSON() ([]byte, error) {
	out := make([]jsonComponent, len(op))
	for i, c := range op {
		var j jsonComponent
		switch c := c.(type) {
		case Retain:
			n := c.N
			j.Retain = &n
		case Characters:
			j.Characters = Value(c.Text)
		case DeleteCharacters:
			j.DeleteCharacters = Value(c.Text)
		case ElementStart:
			j.ElementStart = &jsonElement{c.Tag, c.Attrs}
		case ElementEnd:
			j.ElementEnd = true
		case DeleteElementStart:
			j.DeleteElementStart = &jsonElement{c.Tag, c.Attrs}
		case DeleteElementEnd:
			j.DeleteElementEnd = true
		case ReplaceAttributes:
			j.ReplaceAttributes = &jsonReplace{c.Old, c.New}
		case UpdateAttributes:
			j.UpdateAttributes = make([]jsonChange, len(c.Update))
			for k, u := range c.Update {
				j.UpdateAttributes[k] = jsonChange{u.Name, u.Old, u.New}
			}
		case AnnotationBoundary:
			b := &jsonBoundary{End: c.Ends}
			for _, ch := range c.Changes {
				b.Change = append(b.Change, jsonChange{ch.Key, ch.Old, ch.New})
			}
			j.AnnotationBoundary = b
		default:
			return nil, errors.E(errors.Serialization, fmt.Sprintf("component %d: cannot encode %T", i, c))
		}
		out[i] = j
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Each object must set
// exactly one component field.
func (op *Op) UnmarshalJSON(data []byte) error {
	var in []jsonComponent
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.E(errors.Serialization, "decoding op", err)
	}
	out := make(Op, 0, len(in))
	for i, j := range in {
		var (
			c Component
			n int
		)
		set := func(v Component) {
			c = v
			n++
		}
		if j.Retain != nil {
			set(Retain{*j.Retain})
		}
		if j.Characters != nil {
			set(Characters{*j.Characters})
		}
		if j.DeleteCharacters != nil {
			set(DeleteCharacters{*j.DeleteCharacters})
		}
		if j.ElementStart != nil {
			set(ElementStart{j.ElementStart.Type, j.ElementStart.Attributes})
		}
		if j.ElementEnd {
			set(ElementEnd{})
		}
		if j.DeleteElementStart != nil {
			set(DeleteElementStart{j.DeleteElementStart.Type, j.DeleteElementStart.Attributes})
		}
		if j.DeleteElementEnd {
			set(DeleteElementEnd{})
		}
		if j.ReplaceAttributes != nil {
			set(ReplaceAttributes{j.ReplaceAttributes.Old, j.ReplaceAttributes.New})
		}
		if j.UpdateAttributes != nil {
			u := make(AttributesUpdate, len(j.UpdateAttributes))
			for k, ch := range j.UpdateAttributes {
				u[k] = AttributeChange{ch.Key, ch.OldValue, ch.NewValue}
			}
			set(UpdateAttributes{u})
		}
		if j.AnnotationBoundary != nil {
			b := AnnotationBoundary{Ends: j.AnnotationBoundary.End}
			for _, ch := range j.AnnotationBoundary.Change {
				b.Changes = append(b.Changes, AnnotationChange{ch.Key, ch.OldValue, ch.NewValue})
			}
			set(b)
		}
		if n != 1 {
			return errors.E(errors.Serialization, fmt.Sprintf("component %d: expected exactly one component, got %d", i, n))
		}
		out = append(out, c)
	}
	*op = out
	return nil
}
