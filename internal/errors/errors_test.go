package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidSparseVectorCarriesReason(t *testing.T) {
	err := InvalidSparseVector("not_sorted")
	assert.Equal(t, ErrCodeInvalidSparseVector, err.Code)
	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, "not_sorted", err.Details["reason"])
}

func TestIndexCorruptIsFatal(t *testing.T) {
	err := IndexCorrupt("magic_mismatch")
	assert.True(t, IsFatal(err))
	assert.False(t, IsRetryable(err))
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	a := MissingVector(7)
	b := MissingVector(9)
	assert.True(t, errors.Is(a, b), "MissingVector errors should match by code regardless of id")
}

func TestCancelledSentinel(t *testing.T) {
	err := Cancelled()
	assert.True(t, IsCancelled(err))
	assert.False(t, IsCancelled(InternalError("boom", nil)))
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := IndexIOError("failed to write postings", cause)
	assert.Same(t, cause, errors.Unwrap(err))
}
