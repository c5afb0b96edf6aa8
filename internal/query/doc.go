// Package query classifies catalog query requests into one of three dialects
// and extracts the dialect payload.
//
// A query request name ends in a component holding a JSON object. The object
// determines the dialect:
//
//	{"activity":"CMIP5","model":"x"}   exact match on field values
//	{"?":"/CMIP5/output/"}             hierarchical autocomplete
//	{"??":"/CMIP5/output"}             prefix search
//
// The dialect is decided once, here, and carried as a sealed Query variant
// (Exact, Autocomplete, PrefixSearch). Translators in querysql switch on the
// concrete type and never re-inspect the raw payload.
//
// SEALED INTERFACE:
//
// Query uses the marker method pattern. Only types in this package
// implement it, so type switches over Query are exhaustive:
//
//	switch q := q.(type) {
//	case Exact:
//	case Autocomplete:
//	case PrefixSearch:
//	}
//
// ERRORS:
//
// All failures are *Error values carrying an ErrorCode. Decoding failures are
// MALFORMED_QUERY; shape violations are INVALID_QUERY_SHAPE; slash rule
// violations are INVALID_PATH_FORMAT. Depth checks need the Schema Binding
// and happen in querysql (PATH_TOO_DEEP).
package query
