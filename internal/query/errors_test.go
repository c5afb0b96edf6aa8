package query

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := NewPathTooDeep("/a/b/c/", 3, 2)
	assert.Equal(t, "PATH_TOO_DEEP: path resolves 3 fields, at most 2 allowed", err.Error())
	assert.Equal(t, "3", err.Details["depth"])

	cause := errors.New("no such table: cmip5")
	be := NewBackendError("SELECT name FROM cmip5;", cause)
	assert.Equal(t, "BACKEND_ERROR: backend execution failed: no such table: cmip5", be.Error())
	assert.ErrorIs(t, be, cause)
}

func TestError_HelpersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handle request: %w", NewInvalidPathFormat("/x", "bad"))

	assert.True(t, IsInvalidPathFormat(wrapped))
	assert.False(t, IsPathTooDeep(wrapped))
	assert.True(t, IsRejected(wrapped))

	code, ok := CodeOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeInvalidPathFormat, code)
}

func TestIsRejected(t *testing.T) {
	assert.True(t, IsRejected(NewMalformedQuery(nil)))
	assert.True(t, IsRejected(NewInvalidQueryShape("x")))
	assert.True(t, IsRejected(NewPathTooDeep("/", 1, 0)))
	assert.False(t, IsRejected(NewBackendError("", errors.New("down"))))
	assert.False(t, IsRejected(errors.New("plain")))
	assert.False(t, IsBackendError(nil))
}
