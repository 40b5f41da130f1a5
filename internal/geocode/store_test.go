package geocode

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"salesreport/internal/storage"
	_ "salesreport/internal/storage/sqlite"
)

var (
	keySekiu  = Key{City: "Sekiu", Region: "Washington"}
	keyKerby  = Key{City: "Kerby", Region: "Oregon"}
	kerbyCoor = Coord{Lat: 42.1943, Lon: -123.6509}
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s := FileStore{Path: filepath.Join(t.TempDir(), "coordinates.csv")}

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, s.Save(ctx, map[Key]Coord{keySekiu: sekiu}))
	require.NoError(t, s.Save(ctx, map[Key]Coord{keyKerby: kerbyCoor}))
	require.NoError(t, s.Save(ctx, nil))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, map[Key]Coord{keySekiu: sekiu, keyKerby: kerbyCoor}, got)

	b, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	require.Equal(t, "city,state_province,latitude,longitude\n"+
		"Kerby,Oregon,42.1943,-123.6509\n"+
		"Sekiu,Washington,48.2626,-124.2996\n", string(b))
}

func TestFileStore_Corrupt(t *testing.T) {
	p := filepath.Join(t.TempDir(), "coordinates.csv")
	require.NoError(t, os.WriteFile(p, []byte("city,state_province,latitude,longitude\nSekiu,Washington,north,west\n"), 0o644))
	_, err := FileStore{Path: p}.Load(context.Background())
	require.ErrorContains(t, err, "line 2")
}

/*
TestRepoStore round-trips coordinates through a SQLite table and checks that
saving an already stored place does not violate the primary key.
*/
func TestRepoStore(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:", Table: "geocode_cache"})
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	require.NoError(t, storage.EnsureTable(ctx, "sqlite", repo, TableDef("geocode_cache")))

	s := RepoStore{Repo: repo}
	require.NoError(t, s.Save(ctx, map[Key]Coord{keySekiu: sekiu}))
	require.NoError(t, s.Save(ctx, map[Key]Coord{keySekiu: sekiu, keyKerby: kerbyCoor}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, map[Key]Coord{keySekiu: sekiu, keyKerby: kerbyCoor}, got)
}
