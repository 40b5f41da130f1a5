package table

import (
	"math"
	"strconv"
)

// Kind identifies what a Value holds.
type Kind uint8

const (
	// KindMissing marks an absent cell: a failed coercion, an unmatched join,
	// an empty source field. It is the zero Kind.
	KindMissing Kind = iota
	KindText
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return "missing"
	}
}

// Value is a single table cell. The zero Value is missing.
type Value struct {
	kind Kind
	s    string
	f    float64
}

// Missing returns the explicit missing marker.
func Missing() Value { return Value{} }

// Text wraps a string cell as read from a source file.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Number wraps a numeric cell. NaN and ±Inf are not numbers a report can
// show, so they become Missing.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, f: f}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == KindMissing }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }

// Float returns the numeric value. Text and missing cells report false;
// coercion is an explicit pipeline step, never implicit here.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.f, true
}

// String renders the cell for keys, filters and output. Missing renders as
// the empty string; use IsMissing to tell the two apart.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.s == o.s
	case KindNumber:
		return v.f == o.f
	default:
		return true
	}
}

// Any converts the cell to a database-ready value: nil, string or float64.
func (v Value) Any() any {
	switch v.kind {
	case KindText:
		return v.s
	case KindNumber:
		return v.f
	default:
		return nil
	}
}
