package querysql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/ir"
)

func mustObject(t *testing.T, s string) ir.Object {
	t.Helper()
	v, err := ir.Decode([]byte(s))
	require.NoError(t, err)
	obj, ok := v.(ir.Object)
	require.True(t, ok, "not an object: %s", s)
	return obj
}
