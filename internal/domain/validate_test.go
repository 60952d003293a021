package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValidationErrors(t *testing.T) {
	type request struct {
		Indices []int  `json:"indices" validate:"required,min=1"`
		Caption string `json:"caption" validate:"max=5"`
		Labels  string `json:"labels" validate:"required"`
	}

	err := Validate(request{Indices: []int{}, Caption: "too long", Labels: ""})
	require.Error(t, err)

	assert.Equal(t, map[string]string{
		"indices": "Must contain at least 1",
		"caption": "Maximum length is 5",
		"labels":  "This field is required",
	}, FormatValidationErrors(err))
}

func TestFormatValidationErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Empty(t, FormatValidationErrors(assert.AnError))
}

func TestDescribeOrdersFields(t *testing.T) {
	type pair struct {
		Zeta  string `json:"zeta" validate:"required"`
		Alpha string `json:"alpha" validate:"required"`
		Mid   string `json:"mid" validate:"required"`
	}
	err := Validate(pair{})
	require.Error(t, err)

	want := "alpha: This field is required; mid: This field is required; zeta: This field is required"
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, describe(err))
	}
}

func TestValidateItemNegativePrice(t *testing.T) {
	err := ValidateItem(LineItem{Name: "lamp", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidItem)
	assert.Contains(t, err.Error(), "price: Must be greater than or equal to 0")
}
