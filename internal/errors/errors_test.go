package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodecError_Formatting(t *testing.T) {
	err := NewTableNotFound("TRN")
	assert.Equal(t, `[CATALOG:TABLE_NOT_FOUND] table "TRN" not found`, err.Error())

	cause := stderrors.New("short read")
	wrapped := Wrap(ErrCategoryFormat, CodeInvalidFormat, "truncated page", cause)
	assert.Contains(t, wrapped.Error(), "truncated page: short read")
	assert.ErrorIs(t, wrapped, cause)
}

func TestCodecError_IsMatchesCategoryAndCode(t *testing.T) {
	err := fmt.Errorf("open: %w", NewUnsupportedFormat("page count 10 <= 14"))
	assert.True(t, stderrors.Is(err, NewUnsupportedFormat("")))
	assert.False(t, stderrors.Is(err, NewBadPassword("")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewBadPassword("all candidates exhausted")))
	assert.False(t, IsRetryable(NewUnsupportedFormat("not a container")))
	assert.False(t, IsRetryable(NewOutOfSpace("TRN", 64)))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOutOfSpace, GetCode(NewOutOfSpace("TRN", 12)))
	assert.Equal(t, CodeUnexpected, GetCode(NewInternalError("boom", nil)))
	assert.Equal(t, "", GetCode(stderrors.New("plain")))
}
