package core

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DisplayClaims are the claims of an access token decoded for display.
// The signature is never checked client-side: these values must not be
// used for access-control decisions, only the backend's responses are
// authoritative.
type DisplayClaims struct {
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DecodeClaims decodes a JWT access token without verifying it.
func DecodeClaims(accessToken string) (*DisplayClaims, error) {
	parser := jwt.NewParser()

	var claims jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	display := &DisplayClaims{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		display.ExpiresAt = claims.ExpiresAt.Time
	}

	return display, nil
}
