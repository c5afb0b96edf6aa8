package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/querysql"
	"github.com/roach88/catalog/internal/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(context.Background(), DriverSQLite, path,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
	assert.Equal(t, DriverSQLite, s.Driver())
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, s1.EnsureCatalogTable(ctx, schema.CMIP5()))
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, DriverSQLite, path)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.EnsureCatalogTable(ctx, schema.CMIP5()))
}

func TestOpen_Pragmas(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestEnsureCatalogTable_FieldMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureCatalogTable(ctx, schema.MustNew("cmip5", []string{"activity", "product"})))

	err := s.EnsureCatalogTable(ctx, schema.MustNew("cmip5", []string{"product", "activity"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exists with fields")
}

func TestInsert_Duplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	b := schema.MustNew("items", []string{"a", "b"})
	require.NoError(t, s.EnsureCatalogTable(ctx, b))

	e := Entry{Name: "/x/1/2", Values: []string{"1", "2"}}
	ok, err := s.Insert(ctx, b, e)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Insert(ctx, b, e)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Insert(ctx, b, Entry{Name: "/bad", Values: []string{"1"}})
	assert.Error(t, err)

	n, err := s.Count(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExecute_TranslatedQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	b := schema.CMIP5()
	require.NoError(t, s.EnsureCatalogTable(ctx, b))

	prefix := name.MustParse("/cmip5")
	var entries []Entry
	for _, uri := range []string{
		"/cmip5/CMIP5/output1/NOAA/GFDL/historical/mon/atmos/tas/r1i1p1/1850",
		"/cmip5/CMIP5/output1/NOAA/GFDL/historical/mon/atmos/pr/r1i1p1/1850",
		"/cmip5/CMIP5/output2/NCAR/CCSM4/rcp45/day/ocean/tos/r2i1p1/2006",
	} {
		e, err := ParseEntry(prefix, b, uri)
		require.NoError(t, err)
		entries = append(entries, e)
	}

	inserted, err := s.InsertBatch(ctx, b, entries)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	tr := querysql.NewTranslator(b)

	t.Run("exact", func(t *testing.T) {
		got, err := tr.TranslatePayload([]byte(`{"variable_name":"tas"}`))
		require.NoError(t, err)
		rows, err := s.Execute(ctx, got.SQL)
		require.NoError(t, err)
		assert.Equal(t, []Row{{entries[0].Name}}, rows)
	})

	t.Run("autocomplete", func(t *testing.T) {
		got, err := tr.TranslatePayload([]byte(`{"?":"/CMIP5/"}`))
		require.NoError(t, err)
		rows, err := s.Execute(ctx, got.SQL)
		require.NoError(t, err)
		assert.ElementsMatch(t, []Row{{"output1"}, {"output2"}}, rows)
	})

	t.Run("prefix", func(t *testing.T) {
		got, err := tr.TranslatePayload([]byte(`{"??":"/CMIP5/output1"}`))
		require.NoError(t, err)
		rows, err := s.Execute(ctx, got.SQL)
		require.NoError(t, err)
		assert.ElementsMatch(t, []Row{{entries[0].Name}, {entries[1].Name}}, rows)
	})

	t.Run("no rows", func(t *testing.T) {
		rows, err := s.Execute(ctx, "SELECT name FROM cmip5 WHERE model='none';")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("backend rejects", func(t *testing.T) {
		_, err := s.Execute(ctx, "SELECT name FROM missing_table;")
		assert.Error(t, err)
	})
}

func TestParseEntry(t *testing.T) {
	b := schema.MustNew("t", []string{"a", "b"})
	prefix := name.MustParse("/data")

	e, err := ParseEntry(prefix, b, "/data/x/y/chunk0")
	require.NoError(t, err)
	assert.Equal(t, "/data/x/y/chunk0", e.Name)
	assert.Equal(t, []string{"x", "y"}, e.Values)

	_, err = ParseEntry(prefix, b, "/other/x/y")
	assert.Error(t, err)

	_, err = ParseEntry(prefix, b, "/data/x")
	assert.Error(t, err)

	_, err = ParseEntry(prefix, b, "relative")
	assert.Error(t, err)
}
