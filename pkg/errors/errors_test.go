package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormatting(t *testing.T) {
	err := NewValidationError("weight below minimum", nil)
	assert.Equal(t, "validation: weight below minimum", err.Error())

	cause := fmt.Errorf("underlying")
	wrapped := NewIOError("read failed", cause)
	assert.Equal(t, "io: read failed: underlying", wrapped.Error())
	assert.Equal(t, cause, wrapped.Unwrap())
}

func TestWithContext(t *testing.T) {
	err := NewNotFoundError("page not mapped", nil).
		WithContext("addr", uint64(0x1000)).
		WithContext("pid", 3)
	assert.Equal(t, uint64(0x1000), err.Context["addr"])
	assert.Equal(t, 3, err.Context["pid"])
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("v", nil)))
	assert.True(t, IsNotFoundError(NewNotFoundError("n", nil)))
	assert.True(t, IsNoSuchChildError(NewNoSuchChildError("c", nil)))
	assert.True(t, IsNotYetExitedError(NewNotYetExitedError("r", nil)))
	assert.True(t, IsConflictError(NewConflictError("d", nil)))
	assert.True(t, IsProcessError(NewProcessError("p", nil)))
	assert.True(t, IsIOError(NewIOError("i", nil)))
	assert.True(t, IsInternalError(NewInternalError("x", nil)))

	assert.False(t, IsValidationError(NewIOError("i", nil)))
	assert.False(t, IsValidationError(fmt.Errorf("plain")))
	assert.False(t, IsValidationError(nil))
}

func TestPredicatesSeeWrappedErrors(t *testing.T) {
	inner := NewNotFoundError("missing", nil)
	outer := fmt.Errorf("loading image: %w", inner)
	assert.True(t, IsNotFoundError(outer))
}

func TestSyscallResult(t *testing.T) {
	assert.Equal(t, ResultOK, SyscallResult(nil))
	assert.Equal(t, ResultRetry, SyscallResult(NewNotYetExitedError("still running", nil)))
	assert.Equal(t, ResultError, SyscallResult(NewValidationError("bad port", nil)))
	assert.Equal(t, ResultError, SyscallResult(NewNoSuchChildError("no child", nil)))
	assert.Equal(t, ResultError, SyscallResult(NewNotFoundError("no page", nil)))
	assert.Equal(t, ResultError, SyscallResult(fmt.Errorf("plain")))

	require.Panics(t, func() {
		SyscallResult(NewInternalError("broken invariant", nil))
	})
}
