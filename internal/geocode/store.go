package geocode

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"salesreport/internal/ddl"
	"salesreport/internal/storage"
)

// Store persists resolved coordinates between runs.
type Store interface {
	// Load returns every stored coordinate. An empty store is not an error.
	Load(ctx context.Context) (map[Key]Coord, error)
	// Save persists added coordinates alongside what is already stored.
	Save(ctx context.Context, added map[Key]Coord) error
}

var storeColumns = []string{"city", "state_province", "latitude", "longitude"}

// FileStore keeps coordinates in a CSV file with the header
// city,state_province,latitude,longitude.
type FileStore struct {
	Path string
}

func (s FileStore) Load(ctx context.Context) (map[Key]Coord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[Key]Coord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("geocode cache: %w", err)
	}
	defer f.Close()

	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("geocode cache %s: %w", s.Path, err)
	}
	out := make(map[Key]Coord, len(recs))
	for i, r := range recs {
		if i == 0 && len(r) > 0 && r[0] == storeColumns[0] {
			continue
		}
		if len(r) != len(storeColumns) {
			return nil, fmt.Errorf("geocode cache %s: line %d has %d fields, want %d", s.Path, i+1, len(r), len(storeColumns))
		}
		lat, err1 := strconv.ParseFloat(r[2], 64)
		lon, err2 := strconv.ParseFloat(r[3], 64)
		if err := errors.Join(err1, err2); err != nil {
			return nil, fmt.Errorf("geocode cache %s: line %d: %w", s.Path, i+1, err)
		}
		out[Key{City: r[0], Region: r[1]}] = Coord{Lat: lat, Lon: lon}
	}
	return out, nil
}

// Save rewrites the file with the union of stored and added entries, sorted
// by place. The file is replaced atomically.
func (s FileStore) Save(ctx context.Context, added map[Key]Coord) error {
	if len(added) == 0 {
		return nil
	}
	all, err := s.Load(ctx)
	if err != nil {
		return err
	}
	for k, v := range added {
		all[k] = v
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".geocode-*.csv")
	if err != nil {
		return fmt.Errorf("geocode cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	_ = w.Write(storeColumns)
	for _, k := range sortedKeys(all) {
		c := all[k]
		_ = w.Write([]string{
			k.City, k.Region,
			strconv.FormatFloat(c.Lat, 'f', -1, 64),
			strconv.FormatFloat(c.Lon, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := errors.Join(w.Error(), tmp.Close()); err != nil {
		return fmt.Errorf("geocode cache: write %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("geocode cache: %w", err)
	}
	return nil
}

func sortedKeys(m map[Key]Coord) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].City != keys[j].City {
			return keys[i].City < keys[j].City
		}
		return keys[i].Region < keys[j].Region
	})
	return keys
}

// TableDef is the coordinate cache table for database-backed stores.
func TableDef(fqn string) ddl.TableDef {
	return ddl.TableDef{
		FQN: fqn,
		Columns: []ddl.ColumnDef{
			{Name: "city", Type: ddl.Text, PrimaryKey: true},
			{Name: "state_province", Type: ddl.Text, PrimaryKey: true},
			{Name: "latitude", Type: ddl.Float},
			{Name: "longitude", Type: ddl.Float},
		},
	}
}

// RepoStore keeps coordinates in a database table reached through a
// storage.Repository bound to TableDef. Save appends only places not already
// stored.
type RepoStore struct {
	Repo storage.Repository
}

func (s RepoStore) Load(ctx context.Context) (map[Key]Coord, error) {
	rows, err := s.Repo.Select(ctx, storeColumns)
	if err != nil {
		return nil, fmt.Errorf("geocode cache: %w", err)
	}
	out := make(map[Key]Coord, len(rows))
	for i, r := range rows {
		lat, ok1 := asFloat(r[2])
		lon, ok2 := asFloat(r[3])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("geocode cache: row %d: non-numeric coordinates %v, %v", i, r[2], r[3])
		}
		out[Key{City: asString(r[0]), Region: asString(r[1])}] = Coord{Lat: lat, Lon: lon}
	}
	return out, nil
}

func (s RepoStore) Save(ctx context.Context, added map[Key]Coord) error {
	if len(added) == 0 {
		return nil
	}
	have, err := s.Load(ctx)
	if err != nil {
		return err
	}
	var rows [][]any
	for _, k := range sortedKeys(added) {
		if _, ok := have[k]; ok {
			continue
		}
		c := added[k]
		rows = append(rows, []any{k.City, k.Region, c.Lat, c.Lon})
	}
	if _, err := s.Repo.CopyFrom(ctx, storeColumns, rows); err != nil {
		return fmt.Errorf("geocode cache: %w", err)
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case []byte:
		f, err := strconv.ParseFloat(string(t), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}
