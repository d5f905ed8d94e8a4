package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: "test error message",
	}

	assert.Equal(t, "test error message", err.Error())
}

func TestNewFieldValidationError(t *testing.T) {
	var fields FieldErrors
	fields.Add("hour", "Hour is required")
	fields.Add("load", "Load is required")

	err := NewFieldValidationError(fields)
	assert.Equal(t, "Validation failed: hour: Hour is required; load: Load is required", err.Error())

	ve, ok := AsValidationError(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Len(t, ve.Fields, 2)
	assert.Equal(t, FieldError{Field: "hour", Message: "Hour is required"}, ve.Fields[0])
}

func TestAsValidationError_NotValidation(t *testing.T) {
	ve, ok := AsValidationError(errors.New("boom"))
	assert.False(t, ok)
	assert.Nil(t, ve)
}

func TestErrorKinds_AreDistinct(t *testing.T) {
	kinds := []error{ErrPredictorUnavailable, ErrPredictorStatus, ErrPredictorMalformed, ErrStorage}
	for i, a := range kinds {
		for j, b := range kinds {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}

	wrapped := fmt.Errorf("%w: connection refused", ErrPredictorUnavailable)
	assert.ErrorIs(t, wrapped, ErrPredictorUnavailable)
	assert.NotErrorIs(t, wrapped, ErrStorage)
}
