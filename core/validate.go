package core

import "regexp"

var (
	// Egyptian mobile numbers in E.164: +20 followed by exactly ten digits.
	phonePattern = regexp.MustCompile(`^\+20[0-9]{10}$`)

	// Egyptian national IDs are exactly fourteen digits.
	nationalIDPattern = regexp.MustCompile(`^[0-9]{14}$`)

	otpCodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// ValidatePhoneNumber checks the E.164 Egyptian phone format.
func ValidatePhoneNumber(phone string) error {
	if !phonePattern.MatchString(phone) {
		return &ValidationError{Field: "phone_number", Detail: "must be +20 followed by 10 digits"}
	}
	return nil
}

// ValidateNationalID checks the 14-digit national ID format.
func ValidateNationalID(id string) error {
	if !nationalIDPattern.MatchString(id) {
		return &ValidationError{Field: "national_id", Detail: "must be exactly 14 digits"}
	}
	return nil
}

// ValidateOTPCode checks the 6-digit verification code format.
func ValidateOTPCode(code string) error {
	if !otpCodePattern.MatchString(code) {
		return &ValidationError{Field: "otp_code", Detail: "must be exactly 6 digits"}
	}
	return nil
}
