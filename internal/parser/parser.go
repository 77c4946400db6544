// Package parser reads graph import documents.
//
// An import file holds one or more YAML documents of the form
//
//	chapter: kitchen
//	context: [home, cooking]
//	nodes:
//	  - kettle
//	edges:
//	  - {from: kettle, arrow: contains, to: water, context: [morning], weight: 0.5}
//
// Nodes named only in edges are created as well. Edge weight defaults to 1.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// DefaultWeight is the weight of an edge that does not set one.
const DefaultWeight float32 = 1

// Document is one YAML document of an import file.
type Document struct {
	Chapter string   `yaml:"chapter"`
	Context []string `yaml:"context"`
	Nodes   []string `yaml:"nodes"`
	Edges   []Edge   `yaml:"edges"`
}

// Validate validates the document.
func (d Document) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Nodes, validation.Each(validation.Required)),
		validation.Field(&d.Edges),
	)
}

// Texts returns every distinct node text of the document in first-seen order.
func (d Document) Texts() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, n := range d.Nodes {
		add(n)
	}
	for _, e := range d.Edges {
		add(e.From)
		add(e.To)
	}
	return out
}

// Edge is one relation in a document.
type Edge struct {
	From    string   `yaml:"from"`
	Arrow   string   `yaml:"arrow"`
	To      string   `yaml:"to"`
	Context []string `yaml:"context"`
	Weight  *float32 `yaml:"weight"`
}

// Validate validates the edge.
func (e Edge) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.From, validation.Required),
		validation.Field(&e.Arrow, validation.Required),
		validation.Field(&e.To, validation.Required, validation.NotIn(e.From).Error("must differ from 'from'")),
		validation.Field(&e.Weight, validation.By(nonZero)),
	)
}

// EffectiveWeight returns the edge weight or DefaultWeight.
func (e Edge) EffectiveWeight() float32 {
	if e.Weight == nil {
		return DefaultWeight
	}
	return *e.Weight
}

func nonZero(v any) error {
	w, ok := v.(*float32)
	if ok && w != nil && *w == 0 {
		return errors.New("must not be zero")
	}
	return nil
}

// Parse decodes and validates every document in data. Empty documents are skipped.
func Parse(data []byte) ([]Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var docs []Document
	for i := 1; ; i++ {
		var d Document
		err := dec.Decode(&d)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parser: document %d: %w", i, err)
		}
		if len(d.Nodes) == 0 && len(d.Edges) == 0 {
			continue
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("parser: document %d: %w", i, err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}
