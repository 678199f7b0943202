package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email    string `json:"email" validate:"required,email"`
	Quantity int    `json:"quantity" validate:"gte=1"`
	Address  string `json:"address" validate:"required,min=10"`
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(sample{
		Email:    "alice@example.com",
		Quantity: 2,
		Address:  "1 Main St, Springfield",
	})
	assert.NoError(t, err)
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	err := Validate(sample{Email: "not-an-email", Quantity: 0, Address: "short"})

	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	fields := valErr.Fields()
	assert.Contains(t, fields, "Email")
	assert.Contains(t, fields, "Quantity")
	assert.Contains(t, fields, "Address")
	assert.Equal(t, "must be a valid email address", fields["Email"])
	assert.Equal(t, "must be at least 10 characters", fields["Address"])
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(sample{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email")
	assert.Contains(t, err.Error(), "is required")
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(
		`{"email":"alice@example.com","quantity":1,"address":"1 Main St, Springfield"}`))

	var dst sample
	require.NoError(t, DecodeAndValidate(r, &dst))
	assert.Equal(t, "alice@example.com", dst.Email)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{not json`))

	var dst sample
	err := DecodeAndValidate(r, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_InvalidPayload(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"nope"}`))

	var dst sample
	err := DecodeAndValidate(r, &dst)

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
