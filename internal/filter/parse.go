package filter

import (
	"sort"
	"strings"
)

// MissingToken stands for the missing value in textual selections.
const MissingToken = "(missing)"

// ParseSelection builds a Selection from textual values keyed by dimension,
// as found in URL query parameters or repeated --select flags. Each value may
// hold several comma-separated entries. A key whose entries are all blank
// selects the empty set.
func ParseSelection(raw map[string][]string) Selection {
	sel := make(Selection, len(raw))
	for name, vals := range raw {
		var set Set
		for _, v := range vals {
			for _, part := range strings.Split(v, ",") {
				part = strings.TrimSpace(part)
				switch part {
				case "":
				case MissingToken:
					set.IncludeMissing = true
				default:
					set.Values = append(set.Values, part)
				}
			}
		}
		sel[name] = set
	}
	return sel
}

// String renders sel in a stable "dim=v1,v2;dim2=..." form for logs.
func (s Selection) String() string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, n := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		set := s[n]
		vals := set.Values
		if set.IncludeMissing {
			vals = append(append([]string(nil), vals...), MissingToken)
		}
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(strings.Join(vals, ","))
	}
	return b.String()
}
