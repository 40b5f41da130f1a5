// Package transformer defines the table-to-table step contract used by the
// pipeline. Steps are pure: each returns a new table and never mutates its
// input, so every stage can be tested in isolation.
package transformer

import (
	"fmt"

	"salesreport/internal/table"
)

// Transformer turns one table into another.
type Transformer interface {
	Apply(*table.Table) (*table.Table, error)
}

// Func adapts a plain function to Transformer.
type Func func(*table.Table) (*table.Table, error)

func (f Func) Apply(t *table.Table) (*table.Table, error) { return f(t) }

// Named attaches a label used in error messages and step metrics.
type Named struct {
	Name string
	Transformer
}

// Chain is an ordered list of transformers. The first error stops the chain.
type Chain []Transformer

func (c Chain) Apply(in *table.Table) (*table.Table, error) {
	out := in
	for i, t := range c {
		next, err := t.Apply(out)
		if err != nil {
			if n, ok := t.(Named); ok {
				return nil, fmt.Errorf("%s: %w", n.Name, err)
			}
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		out = next
	}
	return out, nil
}
