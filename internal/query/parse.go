package query

import (
	"strings"

	"github.com/roach88/catalog/internal/ir"
	"github.com/roach88/catalog/internal/name"
)

// Parse classifies a query request by its terminal name component.
//
// The component must hold a JSON object. Returns MALFORMED_QUERY when the
// name is empty or the component does not decode.
func Parse(request name.Name) (Query, error) {
	if request.Len() == 0 {
		return nil, NewMalformedQuery(nil)
	}
	return ParsePayload([]byte(request.At(-1).Text()))
}

// ParsePayload classifies a raw JSON query payload.
func ParsePayload(data []byte) (Query, error) {
	v, err := ir.Decode(data)
	if err != nil {
		return nil, NewMalformedQuery(err)
	}
	return FromValue(v)
}

// FromValue classifies a decoded payload.
//
// An object carrying the autocomplete sentinel is an Autocomplete query; one
// carrying the prefix sentinel is a PrefixSearch; any other object is Exact.
// When both sentinels are present, autocomplete wins.
func FromValue(v ir.Value) (Query, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, NewInvalidQueryShape("query payload must be an object, got %s", ir.Kind(v))
	}
	if _, ok := obj[AutocompleteKey]; ok {
		return DecodeAutocomplete(obj)
	}
	if _, ok := obj[PrefixSearchKey]; ok {
		return DecodePrefixSearch(obj)
	}
	return DecodeExact(obj)
}

// DecodeExact validates v as an exact-match payload.
//
// The payload must be a non-empty object whose values are all strings and
// whose keys are not purely numeric. Sentinel keys are skipped, so
// {"name":"x","?":"y"} yields Fields {"name":"x"}.
func DecodeExact(v ir.Value) (Exact, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return Exact{}, NewInvalidQueryShape("exact-match payload must be an object, got %s", ir.Kind(v))
	}

	fields := make(map[string]string, len(obj))
	for _, key := range obj.SortedKeys() {
		if key == AutocompleteKey || key == PrefixSearchKey {
			continue
		}
		if isNumericKey(key) {
			return Exact{}, NewInvalidQueryShape("key %q is numeric", key)
		}
		s, ok := obj[key].(ir.String)
		if !ok {
			return Exact{}, NewInvalidQueryShape("field %q must be a string, got %s", key, ir.Kind(obj[key]))
		}
		fields[key] = string(s)
	}

	if len(fields) == 0 {
		return Exact{}, NewInvalidQueryShape("exact-match payload has no fields")
	}
	return Exact{Fields: fields}, nil
}

// DecodeAutocomplete validates v as an autocomplete payload. Keys other than
// the sentinel are ignored.
func DecodeAutocomplete(v ir.Value) (Autocomplete, error) {
	path, err := sentinelPath(v, AutocompleteKey)
	if err != nil {
		return Autocomplete{}, err
	}
	return NewAutocomplete(path)
}

// NewAutocomplete builds an Autocomplete query from a path of the form
// "/v1/v2/.../vk/". Both the leading and the trailing slash are required;
// "/" alone resolves zero fields.
func NewAutocomplete(path string) (Autocomplete, error) {
	if !strings.HasPrefix(path, "/") {
		return Autocomplete{}, NewInvalidPathFormat(path, "autocomplete path must start with '/'")
	}
	if !strings.HasSuffix(path, "/") {
		return Autocomplete{}, NewInvalidPathFormat(path, "autocomplete path must end with '/'")
	}
	return Autocomplete{Path: path, Values: splitPath(path)}, nil
}

// DecodePrefixSearch validates v as a prefix-search payload. Other keys may be
// present but must not hold composite values.
func DecodePrefixSearch(v ir.Value) (PrefixSearch, error) {
	path, err := sentinelPath(v, PrefixSearchKey)
	if err != nil {
		return PrefixSearch{}, err
	}
	obj := v.(ir.Object)
	for _, key := range obj.SortedKeys() {
		if isNumericKey(key) {
			return PrefixSearch{}, NewInvalidQueryShape("key %q is numeric", key)
		}
		if ir.IsComposite(obj[key]) {
			return PrefixSearch{}, NewInvalidQueryShape("field %q must not be %s", key, ir.Kind(obj[key]))
		}
	}
	return NewPrefixSearch(path)
}

// NewPrefixSearch builds a PrefixSearch query from a path of the form
// "/v1/.../vk". The leading slash is required and a trailing slash is
// allowed; "/" alone matches every entry.
func NewPrefixSearch(path string) (PrefixSearch, error) {
	if path == "" {
		return PrefixSearch{}, NewInvalidPathFormat(path, "prefix path is empty")
	}
	if !strings.HasPrefix(path, "/") {
		return PrefixSearch{}, NewInvalidPathFormat(path, "prefix path must start with '/'")
	}
	return PrefixSearch{Path: path, Values: splitPath(path)}, nil
}

// sentinelPath extracts the string held under key.
func sentinelPath(v ir.Value, key string) (string, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return "", NewInvalidQueryShape("query payload must be an object, got %s", ir.Kind(v))
	}
	raw, ok := obj[key]
	if !ok {
		return "", NewInvalidQueryShape("payload has no %q key", key)
	}
	s, ok := raw.(ir.String)
	if !ok {
		return "", NewInvalidQueryShape("%q must hold a string path, got %s", key, ir.Kind(raw))
	}
	return string(s), nil
}

func isNumericKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return false
		}
	}
	return true
}
