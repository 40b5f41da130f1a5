package builtin

import (
	"fmt"
	"strings"

	"salesreport/internal/table"
)

// Op is a row-wise arithmetic operator for derived columns.
type Op string

const (
	OpMul Op = "mul"
	OpAdd Op = "add"
	OpSub Op = "sub"
	OpDiv Op = "div"
)

// ParseOp accepts the operator names and their symbols.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mul", "*":
		return OpMul, nil
	case "add", "+":
		return OpAdd, nil
	case "sub", "-":
		return OpSub, nil
	case "div", "/":
		return OpDiv, nil
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// Derive returns t with column name set to left op right for every row. A
// missing or non-numeric operand, or a zero divisor, gives Missing.
func Derive(t *table.Table, name string, op Op, left, right string) (*table.Table, error) {
	if err := t.Require(left, right); err != nil {
		return nil, err
	}
	if _, err := ParseOp(string(op)); err != nil {
		return nil, fmt.Errorf("derive %s: %w", name, err)
	}
	vals := make([]table.Value, t.Len())
	for i := range vals {
		a, okA := t.Value(i, left).Float()
		b, okB := t.Value(i, right).Float()
		if !okA || !okB {
			continue
		}
		switch op {
		case OpMul:
			vals[i] = table.Number(a * b)
		case OpAdd:
			vals[i] = table.Number(a + b)
		case OpSub:
			vals[i] = table.Number(a - b)
		case OpDiv:
			if b != 0 {
				vals[i] = table.Number(a / b)
			}
		}
	}
	return t.WithColumn(name, vals)
}

// Derived is the Transformer form of Derive.
type Derived struct {
	Name        string
	Op          Op
	Left, Right string
}

func (d Derived) Apply(in *table.Table) (*table.Table, error) {
	return Derive(in, d.Name, d.Op, d.Left, d.Right)
}
