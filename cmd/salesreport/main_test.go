package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"salesreport/internal/filter"
	"salesreport/internal/logger"
)

const miniConfig = "../../testdata/mini/dashboard.json"

func TestParseSelects(t *testing.T) {
	sel, err := parseSelects(nil)
	require.NoError(t, err)
	require.Nil(t, sel)

	sel, err = parseSelects([]string{"city=Sekiu,Kerby", "city=(missing)", "province="})
	require.NoError(t, err)
	require.Equal(t, filter.Set{Values: []string{"Sekiu", "Kerby"}, IncludeMissing: true}, sel["city"])
	require.True(t, sel["province"].Empty())

	_, err = parseSelects([]string{"Sekiu"})
	require.Error(t, err)
	_, err = parseSelects([]string{"=Sekiu"})
	require.Error(t, err)
}

type kpiOut struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

type resultOut struct {
	Job    string   `json:"job"`
	Rows   int      `json:"rows"`
	Empty  bool     `json:"empty"`
	KPIs   []kpiOut `json:"kpis"`
	Charts []struct {
		Name   string `json:"name"`
		Series []struct {
			Key   []string `json:"key"`
			Value *float64 `json:"value"`
		} `json:"series"`
	} `json:"charts"`
}

func runCLI(t *testing.T, f cliFlags) (resultOut, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), f, &stdout, &stderr, logger.Discard()))
	var out resultOut
	if !f.options && !f.validate {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out), stdout.String())
	}
	return out, stdout.String() + stderr.String()
}

func TestRun(t *testing.T) {
	tests := []struct {
		name      string
		selects   []string
		rows      int
		avgQty    *float64
		empty     bool
		chartKeys []string
	}{
		{name: "all_rows", rows: 4, avgQty: ptr(4), chartKeys: []string{"Sekiu", "Kerby"}},
		{name: "one_city", selects: []string{"city=Sekiu"}, rows: 2, avgQty: ptr(2.5), chartKeys: []string{"Sekiu"}},
		{name: "unmatched_city_only", selects: []string{"city=(missing)"}, rows: 1, avgQty: ptr(1), chartKeys: []string{}},
		{name: "empty_set", selects: []string{"province="}, rows: 0, empty: true, chartKeys: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, _ := runCLI(t, cliFlags{cfgPath: miniConfig, selects: tc.selects, metricsBackend: "none"})
			require.Equal(t, "mini", out.Job)
			require.Equal(t, tc.rows, out.Rows)
			require.Equal(t, tc.empty, out.Empty)
			require.Equal(t, "avg_quantity", out.KPIs[0].Name)
			require.Equal(t, tc.avgQty, out.KPIs[0].Value)

			keys := []string{}
			for _, g := range out.Charts[0].Series {
				keys = append(keys, g.Key[0])
			}
			require.Equal(t, tc.chartKeys, keys)
		})
	}
}

func TestRun_OptionsAndValidate(t *testing.T) {
	_, text := runCLI(t, cliFlags{cfgPath: miniConfig, options: true, metricsBackend: "none"})
	require.Contains(t, text, `"has_missing": true`)
	require.Contains(t, text, `"Kerby"`)

	_, text = runCLI(t, cliFlags{cfgPath: miniConfig, validate: true})
	require.NotContains(t, text, "error:")
}

func TestRun_Errors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), cliFlags{cfgPath: filepath.Join(t.TempDir(), "nope.json")}, &stdout, &stderr, logger.Discard())
	require.Error(t, err)

	err = run(context.Background(), cliFlags{cfgPath: miniConfig, selects: []string{"region=West"}, metricsBackend: "none"}, &stdout, &stderr, logger.Discard())
	require.ErrorIs(t, err, filter.ErrUnknownDimension)

	err = run(context.Background(), cliFlags{cfgPath: miniConfig, export: true, metricsBackend: "none"}, &stdout, &stderr, logger.Discard())
	require.ErrorContains(t, err, "no storage configured")
}

func ptr(f float64) *float64 { return &f }

func TestRun_MapFromCoordinateCache(t *testing.T) {
	var stdout bytes.Buffer
	err := run(context.Background(), cliFlags{cfgPath: miniConfig, metricsBackend: "none"}, &stdout, &bytes.Buffer{}, logger.Discard())
	require.NoError(t, err)

	var out struct {
		Map []struct {
			City  string  `json:"city"`
			Lat   float64 `json:"lat"`
			Value float64 `json:"value"`
		} `json:"map"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Len(t, out.Map, 1)
	require.Equal(t, "Sekiu", out.Map[0].City)
	require.Equal(t, 48.2626, out.Map[0].Lat)
	require.Equal(t, 80.0, out.Map[0].Value)
}
