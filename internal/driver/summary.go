package driver

import (
	"bytes"
	"fmt"
	"slices"

	"monogen/internal/diag"
	"monogen/internal/ir"
	"monogen/internal/observ"
)

// InstanceSummary names one materialized instance.
type InstanceSummary struct {
	Name   string `msgpack:"name" json:"name"`
	Symbol string `msgpack:"symbol" json:"symbol"`
	Kind   string `msgpack:"kind" json:"kind"`
}

// Summary is the serializable outcome of a resolution: what the command line
// prints and what the disk cache stores.
type Summary struct {
	Schema      uint16            `msgpack:"schema"`
	Name        string            `msgpack:"name"`
	Instances   []InstanceSummary `msgpack:"instances"`
	Diagnostics []diag.Diagnostic `msgpack:"diagnostics"`
	IRText      string            `msgpack:"ir_text"`
	IRBinary    []byte            `msgpack:"ir_binary"`
	Timing      *observ.Report    `msgpack:"timing"`
	Cached      bool              `msgpack:"-"`
}

// HasErrors reports whether any stored diagnostic is an error.
func (s *Summary) HasErrors() bool {
	for _, d := range s.Diagnostics {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}

// Bag rebuilds a diagnostic bag from the stored diagnostics.
func (s *Summary) Bag() *diag.Bag {
	bag := diag.NewBag(0)
	for _, d := range s.Diagnostics {
		bag.Add(d)
	}
	return bag
}

// Summarize flattens res. The IR is rendered both as text and as the binary
// envelope when lowering succeeded.
func Summarize(res *Result) (*Summary, error) {
	s := &Summary{
		Schema:      cacheSchemaVersion,
		Name:        res.Name,
		Diagnostics: slices.Clone(res.Diagnostics.Items()),
		Timing:      res.Timing,
	}
	for _, inst := range res.Instances {
		s.Instances = append(s.Instances, InstanceSummary{Name: inst.Name, Symbol: inst.Symbol, Kind: inst.Kind.String()})
	}
	if res.IR == nil {
		return s, nil
	}
	var text bytes.Buffer
	if err := ir.DumpProgram(&text, res.IR, res.Types); err != nil {
		return nil, fmt.Errorf("dump ir: %w", err)
	}
	var bin bytes.Buffer
	if err := ir.Encode(&bin, res.IR, res.Types); err != nil {
		return nil, fmt.Errorf("encode ir: %w", err)
	}
	s.IRText, s.IRBinary = text.String(), bin.Bytes()
	return s, nil
}
