package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	require.NotNil(t, err)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, ErrInternal.Status, err.Status)
}

func TestCloneKeepsCodeAndMatches(t *testing.T) {
	err := Clone(ErrNotEditable, "pending review")
	assert.Equal(t, "pending review", err.Message)
	assert.True(t, stdErrors.Is(err, ErrNotEditable))
	assert.False(t, stdErrors.Is(err, ErrNotFound))
	assert.True(t, HasCode(fmt.Errorf("wrapped: %w", err), ErrNotEditable.Code))
}

func TestValidationCollectsFields(t *testing.T) {
	type payload struct {
		Name     string `validate:"required"`
		Capacity int    `validate:"min=1"`
	}
	verr := validator.New().Struct(payload{})
	require.Error(t, verr)

	err := Validation(verr, "invalid payload")
	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, "is required", err.Fields["name"])
	assert.Equal(t, "must be at least 1", err.Fields["capacity"])
}
