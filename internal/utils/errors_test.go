package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("validation failed")

	assert.Equal(t, "validation failed", err.Error())

	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "validation failed", validationErr.Message)
}

func TestNewValidationErrorf(t *testing.T) {
	err := NewValidationErrorf("unknown day %q", "Funday")

	assert.Equal(t, `unknown day "Funday"`, err.Error())
}

func TestNewFieldError(t *testing.T) {
	err := NewFieldError("datetime_range.start", "cannot parse %q", "yesterday")

	assert.Equal(t, `datetime_range.start: cannot parse "yesterday"`, err.Error())
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("bad")))
	assert.True(t, IsValidationError(fmt.Errorf("parse request: %w", NewValidationError("bad"))))
	assert.False(t, IsValidationError(errors.New("connection refused")))
	assert.False(t, IsValidationError(nil))
}
