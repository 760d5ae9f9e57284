package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	URL  string `validate:"required,url"`
	Name string `validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(sample{URL: "http://localhost:8080", Name: "x"}))

	err := ValidateStruct(sample{URL: "nope"})
	require.Error(t, err)

	fields := TranslateError(err)
	assert.Contains(t, fields, "URL")
	assert.Contains(t, fields, "Name")
}

func TestTranslateError_NonValidation(t *testing.T) {
	assert.Empty(t, TranslateError(nil))
	assert.Equal(t, map[string]string{"": "boom"}, TranslateError(errors.New("boom")))
}
