// Package aggregate computes null-skipping scalar and grouped aggregates over
// a table. Missing and non-numeric cells are skipped; an aggregate with no
// usable input reports NoValue instead of 0 or NaN.
package aggregate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"salesreport/internal/table"
)

// Op names an aggregate operation.
type Op string

const (
	Mean  Op = "mean"
	Sum   Op = "sum"
	Count Op = "count"
	Min   Op = "min"
	Max   Op = "max"
)

// ParseOp accepts an operation name; "avg" is an alias of mean.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mean", "avg":
		return Mean, nil
	case "sum":
		return Sum, nil
	case "count":
		return Count, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	}
	return "", fmt.Errorf("aggregate: unknown operation %q", s)
}

// Result is an aggregate value. OK is false when there was nothing to
// aggregate.
type Result struct {
	Value float64
	OK    bool
}

// NoValue is the explicit "no value" result.
var NoValue = Result{}

func (r Result) String() string {
	if !r.OK {
		return "no value"
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// MarshalJSON encodes NoValue as null.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.OK {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// ScalarSpec is Op over Column for the whole table.
type ScalarSpec struct {
	Op     Op
	Column string
}

// GroupedSpec is Op over Column per distinct GroupBy combination.
type GroupedSpec struct {
	GroupBy []string
	Op      Op
	Column  string
}

// GroupRow is one group of a grouped aggregate. Key holds the group-by
// values in GroupBy order.
type GroupRow struct {
	Key    []string `json:"key"`
	Result Result   `json:"value"`
}

// accumulator folds numeric values. Sums are kept as decimals so currency
// totals do not drift before the final conversion.
type accumulator struct {
	n        int64
	sum      decimal.Decimal
	min, max float64
}

func (a *accumulator) add(v table.Value) {
	f, ok := v.Float()
	if !ok {
		return
	}
	if a.n == 0 || f < a.min {
		a.min = f
	}
	if a.n == 0 || f > a.max {
		a.max = f
	}
	a.sum = a.sum.Add(decimal.NewFromFloat(f))
	a.n++
}

func (a *accumulator) result(op Op) Result {
	if op == Count {
		return Result{Value: float64(a.n), OK: true}
	}
	if a.n == 0 {
		return NoValue
	}
	switch op {
	case Sum:
		return Result{Value: a.sum.InexactFloat64(), OK: true}
	case Mean:
		return Result{Value: a.sum.Div(decimal.NewFromInt(a.n)).InexactFloat64(), OK: true}
	case Min:
		return Result{Value: a.min, OK: true}
	case Max:
		return Result{Value: a.max, OK: true}
	}
	return NoValue
}

func checkOp(op Op) error {
	switch op {
	case Mean, Sum, Count, Min, Max:
		return nil
	}
	return fmt.Errorf("aggregate: unknown operation %q", op)
}

// Scalar aggregates spec.Column over every row of t.
func Scalar(t *table.Table, spec ScalarSpec) (Result, error) {
	if err := checkOp(spec.Op); err != nil {
		return NoValue, err
	}
	j, ok := t.ColumnIndex(spec.Column)
	if !ok {
		return NoValue, &table.SchemaError{Table: t.Name(), Column: spec.Column, Reason: "aggregate column not found"}
	}
	var acc accumulator
	for i := 0; i < t.Len(); i++ {
		acc.add(t.At(i, j))
	}
	return acc.result(spec.Op), nil
}

// Grouped aggregates spec.Column per distinct combination of the GroupBy
// columns. Groups appear in first-seen order. Rows with a missing group-by
// value belong to no group. A group whose values are all missing is still
// listed, with NoValue.
func Grouped(t *table.Table, spec GroupedSpec) ([]GroupRow, error) {
	if err := checkOp(spec.Op); err != nil {
		return nil, err
	}
	if len(spec.GroupBy) == 0 {
		return nil, fmt.Errorf("aggregate: grouped %s of %q has no group-by columns", spec.Op, spec.Column)
	}
	if err := t.Require(append([]string{spec.Column}, spec.GroupBy...)...); err != nil {
		return nil, err
	}
	j, _ := t.ColumnIndex(spec.Column)
	keyIdx := make([]int, len(spec.GroupBy))
	for n, c := range spec.GroupBy {
		keyIdx[n], _ = t.ColumnIndex(c)
	}

	var (
		order  [][]string
		accs   []*accumulator
		lookup = map[string]int{}
	)
rows:
	for i := 0; i < t.Len(); i++ {
		key := make([]string, len(keyIdx))
		for n, k := range keyIdx {
			v := t.At(i, k)
			if v.IsMissing() {
				continue rows
			}
			key[n] = v.String()
		}
		id := strings.Join(key, "\x1f")
		g, ok := lookup[id]
		if !ok {
			g = len(order)
			lookup[id] = g
			order = append(order, key)
			accs = append(accs, &accumulator{})
		}
		accs[g].add(t.At(i, j))
	}

	out := make([]GroupRow, len(order))
	for g, key := range order {
		out[g] = GroupRow{Key: key, Result: accs[g].result(spec.Op)}
	}
	return out, nil
}
