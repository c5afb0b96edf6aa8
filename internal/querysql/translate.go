// Package querysql translates parsed catalog queries into SQL statements
// against a Schema Binding.
//
// Translation is pure and deterministic: the same query and binding always
// produce byte-identical SQL. Exact-match and autocomplete sort their WHERE
// assignments by field name; prefix search keeps positional (schema) order.
//
// Values are single-quoted verbatim by default. WithEscaping doubles embedded
// single quotes and restricts exact-match keys to plain identifiers.
package querysql

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/catalog/internal/query"
	"github.com/roach88/catalog/internal/schema"
)

// Translation is the result of translating one query.
type Translation struct {
	// SQL is the complete statement, terminated with ';'.
	SQL string

	// Dialect is the dialect of the translated query.
	Dialect query.Dialect

	// NextField is the schema index of the field an autocomplete query
	// selects. It is -1 for the other dialects.
	NextField int

	// Terminal is true when an autocomplete query selects the last schema
	// field, so no further path levels exist.
	Terminal bool
}

// Translator translates queries against one Schema Binding.
// A Translator is immutable and safe for concurrent use.
type Translator struct {
	binding schema.Binding
	escape  bool
}

// Option configures a Translator.
type Option func(*Translator)

// WithEscaping enables value escaping (quote doubling) and identifier checks
// on exact-match keys.
func WithEscaping(enabled bool) Option {
	return func(t *Translator) {
		t.escape = enabled
	}
}

// NewTranslator creates a Translator for binding.
func NewTranslator(binding schema.Binding, opts ...Option) *Translator {
	t := &Translator{binding: binding}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Binding returns the Schema Binding queries are translated against.
func (t *Translator) Binding() schema.Binding {
	return t.binding
}

// Translate dispatches q to the translator for its dialect.
func (t *Translator) Translate(q query.Query) (Translation, error) {
	if q == nil {
		return Translation{}, fmt.Errorf("cannot translate nil query")
	}

	switch q := q.(type) {
	case query.Exact:
		sql, err := t.TranslateExact(q)
		if err != nil {
			return Translation{}, err
		}
		return Translation{SQL: sql, Dialect: query.DialectExact, NextField: -1}, nil
	case query.Autocomplete:
		sql, next, terminal, err := t.TranslateAutocomplete(q)
		if err != nil {
			return Translation{}, err
		}
		return Translation{SQL: sql, Dialect: query.DialectAutocomplete, NextField: next, Terminal: terminal}, nil
	case query.PrefixSearch:
		sql, err := t.TranslatePrefix(q)
		if err != nil {
			return Translation{}, err
		}
		return Translation{SQL: sql, Dialect: query.DialectPrefixSearch, NextField: -1}, nil
	default:
		return Translation{}, fmt.Errorf("unsupported query type: %T", q)
	}
}

// TranslatePayload parses a raw JSON payload and translates it.
func (t *Translator) TranslatePayload(payload []byte) (Translation, error) {
	q, err := query.ParsePayload(payload)
	if err != nil {
		return Translation{}, err
	}
	return t.Translate(q)
}

// TranslateExact builds
//
//	SELECT name FROM <table> WHERE <k1>='<v1>' AND <k2>='<v2>' ...;
//
// with assignments sorted lexicographically by key.
func (t *Translator) TranslateExact(q query.Exact) (string, error) {
	if len(q.Fields) == 0 {
		return "", query.NewInvalidQueryShape("exact-match payload has no fields")
	}

	keys := make([]string, 0, len(q.Fields))
	for k := range q.Fields {
		if t.escape && !validIdentifier.MatchString(k) {
			return "", query.NewInvalidQueryShape("field %q is not a valid column name", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	assignments := make([]string, len(keys))
	for i, k := range keys {
		assignments[i] = t.assign(k, q.Fields[k])
	}

	return t.selectStatement(schema.NameColumn, false, assignments), nil
}

// TranslateAutocomplete builds
//
//	SELECT DISTINCT <fields[k]> FROM <table> [WHERE ...];
//
// where k is the number of resolved path segments. Assignments are sorted by
// field name. It returns the selected field index and whether that field is
// the last in schema order.
func (t *Translator) TranslateAutocomplete(q query.Autocomplete) (sql string, next int, terminal bool, err error) {
	k := len(q.Values)
	limit := t.binding.Len() - 1
	if k > limit {
		return "", 0, false, query.NewPathTooDeep(q.Path, k, limit)
	}

	type pair struct{ field, value string }
	pairs := make([]pair, k)
	for i, v := range q.Values {
		pairs[i] = pair{t.binding.Field(i), v}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].field < pairs[j].field })

	assignments := make([]string, k)
	for i, p := range pairs {
		assignments[i] = t.assign(p.field, p.value)
	}

	sql = t.selectStatement(t.binding.Field(k), true, assignments)
	return sql, k, k == limit, nil
}

// TranslatePrefix builds
//
//	SELECT name FROM <table> [WHERE <fields[0]>='<v0>' AND ...];
//
// keeping assignments in schema order.
func (t *Translator) TranslatePrefix(q query.PrefixSearch) (string, error) {
	k := len(q.Values)
	if k > t.binding.Len() {
		return "", query.NewPathTooDeep(q.Path, k, t.binding.Len())
	}

	assignments := make([]string, k)
	for i, v := range q.Values {
		assignments[i] = t.assign(t.binding.Field(i), v)
	}

	return t.selectStatement(schema.NameColumn, false, assignments), nil
}

var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (t *Translator) assign(field, value string) string {
	if t.escape {
		value = strings.ReplaceAll(value, "'", "''")
	}
	return field + "='" + value + "'"
}

func (t *Translator) selectStatement(column string, distinct bool, assignments []string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(column)
	b.WriteString(" FROM ")
	b.WriteString(t.binding.Table())
	if len(assignments) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(assignments, " AND "))
	}
	b.WriteByte(';')
	return b.String()
}
