package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"salesreport/internal/ddl"
)

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

// backend is what one kind contributes: how to open it and how its DDL
// is spelled.
type backend struct {
	open    Factory
	dialect *ddl.Dialect
}

var (
	mu       sync.RWMutex
	backends = map[string]backend{}
)

// Register installs the factory for kind, replacing any earlier one.
// Backends call it from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	b := backends[kind]
	b.open = f
	backends[kind] = b
}

// RegisterDialect installs the DDL dialect for kind.
func RegisterDialect(kind string, d ddl.Dialect) {
	mu.Lock()
	defer mu.Unlock()
	b := backends[kind]
	b.dialect = &d
	backends[kind] = b
}

func lookup(kind string) (backend, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[kind]
	return b, ok
}

// New opens a repository of cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	b, ok := lookup(cfg.Kind)
	if !ok || b.open == nil {
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return b.open(ctx, cfg)
}

// ListKinds returns a sorted copy of the kinds that can be opened.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	var out []string
	for k, b := range backends {
		if b.open != nil {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// CreateTableSQL renders def in kind's dialect.
func CreateTableSQL(kind string, def ddl.TableDef) (string, error) {
	b, _ := lookup(kind)
	if b.dialect == nil {
		return "", fmt.Errorf("storage: no DDL dialect for kind %q", kind)
	}
	return b.dialect.CreateTable(def)
}

// EnsureTable creates def through repo if it does not exist yet.
func EnsureTable(ctx context.Context, kind string, repo Repository, def ddl.TableDef) error {
	stmt, err := CreateTableSQL(kind, def)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("storage: create %s: %w", def.FQN, err)
	}
	return nil
}
