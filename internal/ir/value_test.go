package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
}

func TestObjectSortedKeys(t *testing.T) {
	obj := Object{
		"zebra":  String("z"),
		"apple":  String("a"),
		"banana": String("b"),
	}

	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestObjectSortedKeysPrefixFirst(t *testing.T) {
	obj := Object{
		"ensemble member": String("m"),
		"ensemble":        String("e"),
		"A":               String("upper"),
	}

	assert.Equal(t, []string{"A", "ensemble", "ensemble member"}, obj.SortedKeys())
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Value
	}{
		{"string", `"hello"`, String("hello")},
		{"integer keeps literal", `42`, Number("42")},
		{"float keeps literal", `1.5`, Number("1.5")},
		{"bool", `true`, Bool(true)},
		{"null", `null`, Null{}},
		{"empty object", `{}`, Object{}},
		{"empty array", `[]`, Array{}},
		{"flat object", `{"name":"test","activity":"a"}`, Object{"name": String("test"), "activity": String("a")}},
		{"nested", `{"name":["x"]}`, Object{"name": Array{String("x")}}},
		{"whitespace", "  {\"a\" : \"b\"}\n", Object{"a": String("b")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ``},
		{"truncated object", `{"name":`},
		{"bare word", `test`},
		{"trailing data", `{"a":"b"} {"c":"d"}`},
		{"single quotes", `{'a':'b'}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestNumberInt64(t *testing.T) {
	n, err := Int(-7).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(-7), n)

	_, err = Number("1.5").Int64()
	assert.Error(t, err)

	_, err = Number("1e3").Int64()
	assert.Error(t, err)
}

func TestKindAndComposite(t *testing.T) {
	assert.Equal(t, "null", Kind(Null{}))
	assert.Equal(t, "null", Kind(nil))
	assert.Equal(t, "string", Kind(String("x")))
	assert.Equal(t, "number", Kind(Int(1)))
	assert.Equal(t, "bool", Kind(Bool(false)))
	assert.Equal(t, "array", Kind(Array{}))
	assert.Equal(t, "object", Kind(Object{}))

	assert.True(t, IsComposite(Array{}))
	assert.True(t, IsComposite(Object{}))
	assert.False(t, IsComposite(String("x")))
	assert.False(t, IsComposite(Null{}))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, Array{String("a"), String("b")}, Strings("a", "b"))
	assert.Equal(t, Array{}, Strings())
}
