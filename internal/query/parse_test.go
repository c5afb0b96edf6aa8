package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/ir"
	"github.com/roach88/catalog/internal/name"
)

func TestParse_Dialects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Query
	}{
		{
			name:    "exact",
			payload: `{"name":"test"}`,
			want:    Exact{Fields: map[string]string{"name": "test"}},
		},
		{
			name:    "autocomplete root",
			payload: `{"?":"/"}`,
			want:    Autocomplete{Path: "/", Values: []string{}},
		},
		{
			name:    "autocomplete ignores other keys",
			payload: `{"?":"/Activity/","name":["x"]}`,
			want:    Autocomplete{Path: "/Activity/", Values: []string{"Activity"}},
		},
		{
			name:    "prefix",
			payload: `{"??":"/Activity/Product"}`,
			want:    PrefixSearch{Path: "/Activity/Product", Values: []string{"Activity", "Product"}},
		},
		{
			name:    "autocomplete wins over prefix",
			payload: `{"??":"/a","?":"/b/"}`,
			want:    Autocomplete{Path: "/b/", Values: []string{"b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePayload([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_FromRequestName(t *testing.T) {
	req := name.MustParse("/catalog/query").AppendString(`{"??":"/Activity"}`)

	q, err := Parse(req)
	require.NoError(t, err)
	assert.Equal(t, DialectPrefixSearch, q.Dialect())
	assert.Equal(t, []string{"Activity"}, q.(PrefixSearch).Values)
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		``,
		`{"name":`,
		`name=test`,
		`{"a":"b"}garbage`,
	}

	for _, payload := range tests {
		t.Run(payload, func(t *testing.T) {
			_, err := ParsePayload([]byte(payload))
			require.Error(t, err)
			assert.True(t, IsMalformedQuery(err), "got %v", err)
			assert.True(t, IsRejected(err))
		})
	}

	_, err := Parse(name.Name{})
	assert.True(t, IsMalformedQuery(err))
}

func TestDecodeExact_SkipsSentinels(t *testing.T) {
	q, err := DecodeExact(ir.Object{"name": ir.String("test"), "?": ir.String("serchTest")})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "test"}, q.Fields)
}

func TestDecodeExact_ShapeRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload ir.Value
	}{
		{"empty object", ir.Object{}},
		{"only sentinel", ir.Object{"?": ir.String("x")}},
		{"array root", ir.Array{}},
		{"array of strings", ir.Strings("test")},
		{"null value", ir.Object{"name": ir.Null{}}},
		{"array value", ir.Object{"name": ir.Strings("test")}},
		{"object value", ir.Object{"name": ir.Object{"a": ir.String("b")}}},
		{"number value", ir.Object{"name": ir.Int(1)}},
		{"bool value", ir.Object{"name": ir.Bool(true)}},
		{"numeric key", ir.Object{"0": ir.String("test")}},
		{"scalar root", ir.String("test")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeExact(tt.payload)
			require.Error(t, err)
			assert.True(t, IsInvalidQueryShape(err), "got %v", err)
		})
	}
}

func TestNewAutocomplete(t *testing.T) {
	q, err := NewAutocomplete("/Activity/Product/")
	require.NoError(t, err)
	assert.Equal(t, []string{"Activity", "Product"}, q.Values)

	q, err = NewAutocomplete("/")
	require.NoError(t, err)
	assert.Empty(t, q.Values)

	for _, bad := range []string{"serchTest", "/cmip5", "Activity/", ""} {
		t.Run(bad, func(t *testing.T) {
			_, err := NewAutocomplete(bad)
			require.Error(t, err)
			assert.True(t, IsInvalidPathFormat(err), "got %v", err)
		})
	}
}

func TestDecodeAutocomplete_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		payload ir.Value
		check   func(error) bool
	}{
		{"array root", ir.Array{}, IsInvalidQueryShape},
		{"no sentinel", ir.Object{"name": ir.Strings("test")}, IsInvalidQueryShape},
		{"non-string path", ir.Object{"?": ir.Int(3)}, IsInvalidQueryShape},
		{"unterminated", ir.Object{"?": ir.String("/cmip5")}, IsInvalidPathFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAutocomplete(tt.payload)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestNewPrefixSearch(t *testing.T) {
	tests := []struct {
		path   string
		values []string
	}{
		{"/", []string{}},
		{"/Activity/Product", []string{"Activity", "Product"}},
		{"/Activity/Product/", []string{"Activity", "Product"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			q, err := NewPrefixSearch(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.values, q.Values)
		})
	}

	_, err := NewPrefixSearch("")
	assert.True(t, IsInvalidPathFormat(err))

	_, err = NewPrefixSearch("Activity")
	assert.True(t, IsInvalidPathFormat(err))
}

func TestDecodePrefixSearch_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		payload ir.Value
		check   func(error) bool
	}{
		{"empty path", ir.Object{"??": ir.String("")}, IsInvalidPathFormat},
		{"array root", ir.Array{}, IsInvalidQueryShape},
		{"array of strings", ir.Strings("test"), IsInvalidQueryShape},
		{"composite value", ir.Object{"name": ir.Strings("test")}, IsInvalidQueryShape},
		{"composite beside sentinel", ir.Object{"??": ir.String("/"), "name": ir.Strings("test")}, IsInvalidQueryShape},
		{"empty object", ir.Object{}, IsInvalidQueryShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePrefixSearch(tt.payload)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestDialectString(t *testing.T) {
	assert.Equal(t, "exact", DialectExact.String())
	assert.Equal(t, "autocomplete", DialectAutocomplete.String())
	assert.Equal(t, "prefix", DialectPrefixSearch.String())
	assert.Equal(t, "unknown", Dialect(0).String())
}
