package engineerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCategory(t *testing.T) {
	err := New(CodeCommitError, "commit failed", nil)
	assert.Equal(t, CategoryWrite, err.Category)
	assert.Equal(t, "[COMMIT_ERROR] commit failed", err.Error())
}

func TestErrorWrapsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := New(CodeStorageIO, "flush failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestIsMatchesByCodeAcrossChain(t *testing.T) {
	inner := New(CodeWriterLockHeld, "locked", nil)
	wrapped := fmt.Errorf("open failed: %w", inner)

	require.True(t, IsCode(wrapped, CodeWriterLockHeld))
	assert.False(t, IsCode(wrapped, CodeCommitError))
}

func TestWithDetailAndAtPosition(t *testing.T) {
	err := New(CodeParseError, "unexpected token", nil).
		AtPosition(12).
		WithDetail("token", "TO")

	assert.Equal(t, 12, err.Position)
	assert.Equal(t, "TO", err.Details["token"])
}

func TestErrorsIsIgnoresMessage(t *testing.T) {
	a := New(CodeSchemaMismatch, "field foo", nil)
	b := New(CodeSchemaMismatch, "field bar", nil)
	assert.True(t, errors.Is(a, b))
}
