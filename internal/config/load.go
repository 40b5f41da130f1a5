package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvDataDir overrides the directory relative source paths resolve against.
const EnvDataDir = "SALESREPORT_DATA_DIR"

// Load reads a dashboard file. Variables from a .env file in the working
// directory are loaded first (a missing .env is fine), so EnvDataDir can be
// set there. Relative source and cache paths are resolved against EnvDataDir
// when set, otherwise against the dashboard file's directory.
func Load(path string) (Dashboard, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Dashboard{}, fmt.Errorf("config: load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Dashboard{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	d, err := Decode(b)
	if err != nil {
		return Dashboard{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	base := os.Getenv(EnvDataDir)
	if base == "" {
		base = filepath.Dir(path)
	}
	d.Resolve(base)
	return d, nil
}

// Decode parses a dashboard from JSON. Unknown fields are rejected so typos
// surface instead of silently disabling a feature.
func Decode(b []byte) (Dashboard, error) {
	var d Dashboard
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Resolve makes relative source and cache paths absolute against base.
func (d *Dashboard) Resolve(base string) {
	d.BaseDir = base
	for i := range d.Sources {
		d.Sources[i].Path = resolve(base, d.Sources[i].Path)
	}
	if d.Geocode.CacheFile != "" {
		d.Geocode.CacheFile = resolve(base, d.Geocode.CacheFile)
	}
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
