package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	ID       string `json:"id" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

type form struct {
	Name   string `json:"name" validate:"required"`
	Method string `json:"payment_method" validate:"required,oneof=pay-online pay-on-pickup"`
	Lines  []line `json:"items" validate:"required,min=1,dive"`
	Notes  string `json:"notes"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(New(), form{Name: "Ani", Method: "pay-online", Lines: []line{{ID: "p1", Quantity: 1}}})

	assert.NoError(t, err)
}

func TestStruct_FieldsKeyedByJSONName(t *testing.T) {
	err := Struct(New(), form{Method: "cash", Lines: []line{{Quantity: 0}}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	var ve *Error
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "is required", ve.Fields["name"])
	assert.Equal(t, "must be one of: pay-online pay-on-pickup", ve.Fields["payment_method"])
	assert.Equal(t, "is required", ve.Fields["items[0].id"])
	assert.Equal(t, "must be at least 1", ve.Fields["items[0].quantity"])
	assert.NotContains(t, ve.Fields, "notes")
}

func TestField(t *testing.T) {
	err := Field("coupon_code", "unknown coupon")

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: coupon_code: unknown coupon", err.Error())
}
