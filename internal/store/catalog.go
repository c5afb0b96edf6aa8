package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/schema"
)

// Row is one result row, one string per selected column. NULL columns are
// returned as empty strings.
type Row []string

// Entry is one catalog entry: its content name and its field values in
// schema order.
type Entry struct {
	Name   string
	Values []string
}

// ParseEntry derives an entry from a content name. The components that
// follow prefix are assigned positionally to the binding's fields; extra
// trailing components are kept in the name but not indexed.
func ParseEntry(prefix name.Name, b schema.Binding, uri string) (Entry, error) {
	n, err := name.Parse(uri)
	if err != nil {
		return Entry{}, err
	}
	if !prefix.IsPrefixOf(n) {
		return Entry{}, fmt.Errorf("name %s is not under %s", n, prefix)
	}

	rest := n[prefix.Len():]
	if len(rest) < b.Len() {
		return Entry{}, fmt.Errorf("name %s has %d components after %s, need %d", n, len(rest), prefix, b.Len())
	}

	values := make([]string, b.Len())
	for i := range values {
		values[i] = rest[i].Text()
	}
	return Entry{Name: n.String(), Values: values}, nil
}

// EnsureCatalogTable creates the catalog table for b if needed and records
// its field list. It fails if the table was created with different fields.
func (s *Store) EnsureCatalogTable(ctx context.Context, b schema.Binding) error {
	fields := strings.Join(b.Fields(), ",")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx,
		"SELECT fields FROM catalog_tables WHERE table_name = "+s.placeholder(1),
		b.Table(),
	).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read catalog_tables: %w", err)
	case existing != fields:
		return fmt.Errorf("table %s exists with fields [%s], configured [%s]", b.Table(), existing, fields)
	default:
		return tx.Commit()
	}

	cols := make([]string, 0, b.Len()+1)
	cols = append(cols, schema.NameColumn+" TEXT PRIMARY KEY")
	for _, f := range b.Fields() {
		cols = append(cols, f+" TEXT NOT NULL DEFAULT ''")
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", b.Table(), strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", b.Table(), err)
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO catalog_tables (table_name, fields) VALUES (%s, %s)", s.placeholder(1), s.placeholder(2)),
		b.Table(), fields,
	); err != nil {
		return fmt.Errorf("record table %s: %w", b.Table(), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("catalog table ready", "table", b.Table(), "fields", b.Len())
	return nil
}

// Insert adds e to the catalog table. Returns false if an entry with the
// same name already exists.
func (s *Store) Insert(ctx context.Context, b schema.Binding, e Entry) (bool, error) {
	if len(e.Values) != b.Len() {
		return false, fmt.Errorf("entry %s has %d values, schema has %d fields", e.Name, len(e.Values), b.Len())
	}

	res, err := s.db.ExecContext(ctx, s.insertSQL(b), entryArgs(e)...)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", e.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", e.Name, err)
	}
	return n > 0, nil
}

// InsertBatch inserts entries in one transaction and returns how many were
// new. Entries already present are skipped.
func (s *Store) InsertBatch(ctx context.Context, b schema.Binding, entries []Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.insertSQL(b))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range entries {
		if len(e.Values) != b.Len() {
			return 0, fmt.Errorf("entry %s has %d values, schema has %d fields", e.Name, len(e.Values), b.Len())
		}
		res, err := stmt.ExecContext(ctx, entryArgs(e)...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", e.Name, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Count returns the number of entries in the binding's table.
func (s *Store) Count(ctx context.Context, b schema.Binding) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+b.Table()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", b.Table(), err)
	}
	return n, nil
}

// Execute runs a translated query and returns its rows in backend order.
func (s *Store) Execute(ctx context.Context, query string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("execute: columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("execute: scan: %w", err)
		}
		row := make(Row, len(cols))
		for i, v := range vals {
			row[i] = v.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return out, nil
}

func (s *Store) insertSQL(b schema.Binding) string {
	cols := append([]string{schema.NameColumn}, b.Fields()...)
	phs := make([]string, len(cols))
	for i := range phs {
		phs[i] = s.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		b.Table(), strings.Join(cols, ", "), strings.Join(phs, ", "), schema.NameColumn)
}

func entryArgs(e Entry) []any {
	args := make([]any, 0, len(e.Values)+1)
	args = append(args, e.Name)
	for _, v := range e.Values {
		args = append(args, v)
	}
	return args
}
