// Package schema holds the Schema Binding: the ordered list of categorical
// fields and the backing table every query is translated against.
//
// Field order is significant. The hierarchical dialects (autocomplete and
// prefix search) assign path segment i to Fields[i], so reordering fields
// changes the meaning of every path.
//
// A Binding is immutable after New returns and is shared read-only by all
// concurrent query executions.
package schema

import (
	"fmt"
	"regexp"
	"slices"
)

// NameColumn is the column holding the content name of a catalog entry.
// Exact-match and prefix-search queries select it.
const NameColumn = "name"

// validIdentifier matches identifiers that are safe to interpolate as SQL
// table and column names.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Binding is the ordered categorical schema plus the table name.
type Binding struct {
	table  string
	fields []string
}

// CMIP5Fields is the ordered field list of the CMIP5 climate catalog.
var CMIP5Fields = []string{
	"activity",
	"product",
	"organization",
	"model",
	"experiment",
	"frequency",
	"modeling_realm",
	"variable_name",
	"ensemble",
	"time",
}

// New creates a Binding after validating it.
//
// Validation rules:
//   - table must be a valid SQL identifier
//   - at least one field is required
//   - every field must be a valid SQL identifier and unique
//   - no field may be named "name" (that column is reserved for content names)
//
// The fields slice is copied so later mutation by the caller has no effect.
func New(table string, fields []string) (Binding, error) {
	if !validIdentifier.MatchString(table) {
		return Binding{}, fmt.Errorf("invalid table name %q", table)
	}
	if len(fields) == 0 {
		return Binding{}, fmt.Errorf("schema for table %q has no fields", table)
	}

	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if !validIdentifier.MatchString(f) {
			return Binding{}, fmt.Errorf("field %d: invalid field name %q", i, f)
		}
		if f == NameColumn {
			return Binding{}, fmt.Errorf("field %d: %q is reserved for content names", i, f)
		}
		if _, dup := seen[f]; dup {
			return Binding{}, fmt.Errorf("field %d: duplicate field %q", i, f)
		}
		seen[f] = struct{}{}
	}

	return Binding{table: table, fields: slices.Clone(fields)}, nil
}

// MustNew is like New but panics on error.
// Use only in tests or with constant input.
func MustNew(table string, fields []string) Binding {
	b, err := New(table, fields)
	if err != nil {
		panic(err)
	}
	return b
}

// CMIP5Table is the table of the CMIP5 climate catalog.
const CMIP5Table = "cmip5"

// CMIP5 returns the default CMIP5 binding over table "cmip5".
func CMIP5() Binding {
	return MustNew(CMIP5Table, CMIP5Fields)
}

// Table returns the backing table name.
func (b Binding) Table() string {
	return b.table
}

// Fields returns a copy of the ordered field list.
func (b Binding) Fields() []string {
	return slices.Clone(b.fields)
}

// Len returns the number of categorical fields.
func (b Binding) Len() int {
	return len(b.fields)
}

// Field returns the field at position i in schema order.
func (b Binding) Field(i int) string {
	return b.fields[i]
}

// IsZero reports whether b is the zero Binding (not configured).
func (b Binding) IsZero() bool {
	return b.table == "" && len(b.fields) == 0
}
