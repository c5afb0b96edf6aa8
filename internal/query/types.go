package query

import "strings"

// Sentinel keys selecting the hierarchical dialects.
const (
	AutocompleteKey = "?"
	PrefixSearchKey = "??"
)

// Dialect identifies which query language a request uses.
type Dialect int

const (
	DialectExact Dialect = iota + 1
	DialectAutocomplete
	DialectPrefixSearch
)

// String returns the dialect's short name.
func (d Dialect) String() string {
	switch d {
	case DialectExact:
		return "exact"
	case DialectAutocomplete:
		return "autocomplete"
	case DialectPrefixSearch:
		return "prefix"
	default:
		return "unknown"
	}
}

// Query is a parsed catalog query.
//
// This is a sealed interface - only Exact, Autocomplete, and PrefixSearch
// implement it.
type Query interface {
	Dialect() Dialect
	queryNode() // Marker method - seals interface to this package
}

// Exact is an exact-match query: every field must equal its value.
//
// Fields never contains the sentinel keys and is never empty.
type Exact struct {
	Fields map[string]string
}

func (Exact) queryNode() {}

// Dialect returns DialectExact.
func (Exact) Dialect() Dialect { return DialectExact }

// Autocomplete asks for the distinct values of the next unresolved field
// below a path such as "/CMIP5/output/".
//
// Values holds the resolved path segments in order; segment i constrains
// schema field i.
type Autocomplete struct {
	Path   string
	Values []string
}

func (Autocomplete) queryNode() {}

// Dialect returns DialectAutocomplete.
func (Autocomplete) Dialect() Dialect { return DialectAutocomplete }

// PrefixSearch asks for the names of all entries under a path such as
// "/CMIP5/output". Values holds the path segments in order.
type PrefixSearch struct {
	Path   string
	Values []string
}

func (PrefixSearch) queryNode() {}

// Dialect returns DialectPrefixSearch.
func (PrefixSearch) Dialect() Dialect { return DialectPrefixSearch }

// splitPath returns the non-empty slash-delimited tokens of path.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			values = append(values, p)
		}
	}
	return values
}
