package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"salesreport/internal/config"
	"salesreport/internal/datasource/file"
	"salesreport/internal/filter"
	"salesreport/internal/report"
	"salesreport/internal/table"
)

func webDashboard() config.Dashboard {
	return config.Dashboard{
		Job: "web",
		Sources: []config.Source{
			{Name: "fact", Role: config.RoleFact},
			{Name: "dim_city", Role: config.RoleDimension},
		},
		Joins:   []config.Join{{Dimension: "dim_city", FactKeys: []string{"city_key"}, DimKeys: []string{"city_key"}}},
		Numeric: []config.Numeric{{Column: "quantity"}},
		Filters: []config.Filter{
			{Name: "province", Column: "state_province"},
			{Name: "city", Column: "city"},
		},
		KPIs:   []config.Aggregate{{Name: "total_quantity", Op: "sum", Column: "quantity"}},
		Charts: []config.Chart{{Name: "quantity_by_city", GroupBy: []string{"city"}, Op: "sum", Column: "quantity"}},
	}
}

func dataset(t *testing.T) *report.Dataset {
	t.Helper()
	fact, err := table.FromStrings("fact", []string{"City Key", "Quantity"}, [][]string{
		{"1", "2"}, {"2", "1"}, {"1", "3"}, {"3", "10"},
	})
	require.NoError(t, err)
	dim, err := table.FromStrings("dim_city", []string{"City Key", "City", "State Province"}, [][]string{
		{"1", "Sekiu", "Washington"}, {"3", "Kerby", "Oregon"},
	})
	require.NoError(t, err)

	cfg := webDashboard()
	ds, err := report.Prepare(context.Background(), cfg, report.Inputs{"fact": fact, "dim_city": dim}, report.Options{})
	require.NoError(t, err)
	return ds
}

type reportBody struct {
	Rows  int  `json:"rows"`
	Empty bool `json:"empty"`
	KPIs  []struct {
		Name  string   `json:"name"`
		Value *float64 `json:"value"`
	} `json:"kpis"`
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestReport(t *testing.T) {
	h := NewServer(Config{}, dataset(t)).Handler()

	tests := []struct {
		name  string
		url   string
		rows  int
		total *float64
	}{
		{name: "no_filter", url: "/api/report", rows: 4, total: ptr(16)},
		{name: "province", url: "/api/report?province=Oregon", rows: 1, total: ptr(10)},
		{name: "comma_list", url: "/api/report?city=Sekiu,Kerby", rows: 3, total: ptr(15)},
		{name: "repeated_params_and_missing", url: "/api/report?city=Kerby&city=(missing)", rows: 2, total: ptr(11)},
		{name: "and_across_dimensions", url: "/api/report?city=Sekiu&province=Oregon", rows: 0},
		{name: "empty_set", url: "/api/report?city=", rows: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, h, tc.url)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body reportBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.rows, body.Rows)
			require.Equal(t, tc.rows == 0, body.Empty)
			require.Equal(t, tc.total, body.KPIs[0].Value)
		})
	}
}

func TestReport_UnknownDimension(t *testing.T) {
	h := NewServer(Config{}, dataset(t)).Handler()
	rec := get(t, h, "/api/report?region=West")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "unknown filter dimension")
}

func TestOptionsHealthAndIndex(t *testing.T) {
	h := NewServer(Config{}, dataset(t)).Handler()

	rec := get(t, h, "/api/options")
	require.Equal(t, http.StatusOK, rec.Code)
	var opts []filter.Option
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	require.Equal(t, []filter.Option{
		{Name: "province", Column: "state_province", Values: []string{"Washington", "Oregon"}, HasMissing: true},
		{Name: "city", Column: "city", Values: []string{"Sekiu", "Kerby"}, HasMissing: true},
	}, opts)

	rec = get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","rows":4}`, rec.Body.String())

	rec = get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "/api/report"))

	rec = get(t, h, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	h := NewServer(Config{AllowedOrigins: []string{"https://dash.example.com"}}, dataset(t)).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/options", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/options", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

/*
TestConcurrentReports runs different selections in parallel against one
Dataset; each must see only its own filter.
*/
func TestConcurrentReports(t *testing.T) {
	h := NewServer(Config{}, dataset(t)).Handler()
	urls := map[string]int{
		"/api/report?city=Sekiu":     2,
		"/api/report?city=Kerby":     1,
		"/api/report?province=":      0,
		"/api/report?city=(missing)": 1,
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for u, want := range urls {
			wg.Add(1)
			go func(u string, want int) {
				defer wg.Done()
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u, nil))
				var body reportBody
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Rows != want {
					t.Errorf("%s: rows=%d err=%v, want %d", u, body.Rows, err, want)
				}
			}(u, want)
		}
	}
	wg.Wait()
}

// fileBacked writes the web dashboard's sources to disk and returns a
// Reloader over them plus the path of the city dimension.
func fileBacked(t *testing.T) (*report.Reloader, string) {
	t.Helper()
	dir := t.TempDir()
	fact := filepath.Join(dir, "fact.csv")
	dim := filepath.Join(dir, "dim_city.csv")
	require.NoError(t, os.WriteFile(fact, []byte("City Key,Quantity\n1,2\n3,10\n"), 0o644))
	require.NoError(t, os.WriteFile(dim, []byte("City Key,City,State Province\n1,Sekiu,Washington\n3,Kerby,Oregon\n"), 0o644))

	cfg := webDashboard()
	cfg.Sources[0].Path, cfg.Sources[1].Path = fact, dim
	r, err := report.NewReloader(context.Background(), cfg, file.NewCache(), report.Options{})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, dim
}

func cityOptions(t *testing.T, h http.Handler) []string {
	t.Helper()
	rec := get(t, h, "/api/options")
	require.Equal(t, http.StatusOK, rec.Code)
	var opts []filter.Option
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	return opts[1].Values
}

func post(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))
	return rec
}

/*
TestReload_PicksUpChangedFile rewrites the city dimension on disk. A reload
before the change hits the file cache and keeps the Dataset; after it the
new city shows up in the options.
*/
func TestReload_PicksUpChangedFile(t *testing.T) {
	r, dim := fileBacked(t)
	h := NewServer(Config{Reload: r.Reload}, r.Dataset()).Handler()
	require.Equal(t, []string{"Sekiu", "Kerby"}, cityOptions(t, h))

	rec := post(t, h, "/api/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"changed":false,"rows":2}`, rec.Body.String())

	require.NoError(t, os.WriteFile(dim, []byte("City Key,City,State Province\n1,Sekiu,Washington\n3,Elma,Washington\n"), 0o644))
	rec = post(t, h, "/api/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"changed":true,"rows":2}`, rec.Body.String())
	require.Equal(t, []string{"Sekiu", "Elma"}, cityOptions(t, h))
}

func TestReload_FailureKeepsDataset(t *testing.T) {
	r, dim := fileBacked(t)
	h := NewServer(Config{Reload: r.Reload}, r.Dataset()).Handler()

	require.NoError(t, os.Remove(dim))
	rec := post(t, h, "/api/reload")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, []string{"Sekiu", "Kerby"}, cityOptions(t, h))
}

func TestReload_DisabledWithoutReloadFunc(t *testing.T) {
	h := NewServer(Config{}, dataset(t)).Handler()
	rec := post(t, h, "/api/reload")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestWatch_ReloadsOnTick advances a fake clock past the reload interval
// after the dimension file changed.
func TestWatch_ReloadsOnTick(t *testing.T) {
	r, dim := fileBacked(t)
	clock := clockwork.NewFakeClock()
	s := NewServer(Config{Reload: r.Reload, ReloadInterval: time.Minute, Clock: clock}, r.Dataset())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.NoError(t, os.WriteFile(dim, []byte("City Key,City,State Province\n1,Sekiu,Washington\n3,Elma,Washington\n"), 0o644))
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		opts := s.ds.Load().Options()
		return len(opts[1].Values) == 2 && opts[1].Values[1] == "Elma"
	}, 2*time.Second, 10*time.Millisecond)
}

func ptr(f float64) *float64 { return &f }
