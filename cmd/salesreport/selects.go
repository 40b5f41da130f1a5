package main

import (
	"fmt"
	"strings"

	"salesreport/internal/filter"
)

// parseSelects turns repeated dim=v1,v2 arguments into a Selection. No
// arguments means no filtering.
func parseSelects(args []string) (filter.Selection, error) {
	if len(args) == 0 {
		return nil, nil
	}
	raw := make(map[string][]string, len(args))
	for _, a := range args {
		dim, vals, ok := strings.Cut(a, "=")
		dim = strings.TrimSpace(dim)
		if !ok || dim == "" {
			return nil, fmt.Errorf("--select %q: want dim=v1,v2", a)
		}
		raw[dim] = append(raw[dim], vals)
	}
	return filter.ParseSelection(raw), nil
}
