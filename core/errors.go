package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned when the token store holds no credential pair
	ErrNoSession = errors.New("no session")

	// ErrSessionExpired is returned when a refresh attempt fails and the session is torn down
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidCredentials is returned when the backend rejects an email/password pair
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOTP is returned when the backend rejects a verification code
	ErrInvalidOTP = errors.New("invalid verification code")

	// ErrWalletAlreadyLinked is returned when the wallet is already linked to another account
	ErrWalletAlreadyLinked = errors.New("wallet already linked to another account")

	// ErrNoPendingWalletLink is returned when a link decision arrives without a pending wallet login
	ErrNoPendingWalletLink = errors.New("no pending wallet link")

	// ErrNoOTPChallenge is returned when a code is submitted without an in-flight challenge
	ErrNoOTPChallenge = errors.New("no verification code has been sent")

	// ErrNoWalletSigner is returned when wallet login is attempted without a configured signer
	ErrNoWalletSigner = errors.New("no wallet signer configured")

	// ErrNetwork is returned when a backend call fails before producing a response
	ErrNetwork = errors.New("network error")
)

// ValidationError reports a client-side fast-fail on a signup or OTP field.
// The server remains the authority; this only short-circuits obviously
// malformed input before it leaves the process.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// RateLimitError carries the server's rate-limit detail verbatim. It is
// surfaced to the user unchanged and never retried automatically.
type RateLimitError struct {
	Detail string
}

func (e *RateLimitError) Error() string {
	return e.Detail
}

// APIError is a backend rejection that maps to no more specific sentinel.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}
