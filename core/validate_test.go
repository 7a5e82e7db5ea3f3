package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePhoneNumber(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{"egyptian mobile", "+201234567890", true},
		{"missing plus", "201234567890", false},
		{"wrong country code", "+15551234567", false},
		{"too short", "+20123456789", false},
		{"too long", "+2012345678901", false},
		{"letters", "+20123456789a", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhoneNumber(tt.phone)
			if tt.valid {
				require.NoError(t, err)
			} else {
				var validationErr *ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Equal(t, "phone_number", validationErr.Field)
			}
		})
	}
}

func TestValidateNationalID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"fourteen digits", "29801011234567", true},
		{"thirteen digits", "2980101123456", false},
		{"fifteen digits", "298010112345678", false},
		{"letters", "2980101123456a", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNationalID(tt.id)
			if tt.valid {
				require.NoError(t, err)
			} else {
				var validationErr *ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Equal(t, "national_id", validationErr.Field)
			}
		})
	}
}

func TestValidateOTPCode(t *testing.T) {
	require.NoError(t, ValidateOTPCode("123456"))
	require.Error(t, ValidateOTPCode("12345"))
	require.Error(t, ValidateOTPCode("1234567"))
	require.Error(t, ValidateOTPCode("12345a"))
	require.Error(t, ValidateOTPCode(""))
}
