package core

import "time"

// TokenPair is the session credential pair issued by the backend.
// The pair is atomic: a refresh token is never retained without the
// access token it was minted with.
type TokenPair struct {
	AccessToken  string // short-lived bearer credential, attached to every authenticated request
	RefreshToken string // longer-lived credential, spent once per refresh cycle; may be empty when the backend does not rotate it
}

// PendingWalletLink holds the signed wallet-login payload while the user
// decides between linking the wallet to an existing account and creating
// a fresh one. It is a signed credential awaiting a one-time decision:
// it lives in memory only, is never written to a store, and is consumed
// exactly once.
type PendingWalletLink struct {
	Address   string
	Message   string
	Signature string
}

// OTPChallenge tracks a single in-flight phone verification.
// A code is only accepted while Sent is true; UserID is only trusted
// after the verify endpoint returns 200.
type OTPChallenge struct {
	PhoneNumber string
	Sent        bool
	UserID      int64
}

// SessionEventKind labels a session lifecycle transition.
type SessionEventKind string

const (
	SessionLoggedIn  SessionEventKind = "logged_in"
	SessionLoggedOut SessionEventKind = "logged_out"
	SessionExpired   SessionEventKind = "session_expired"
)

// SessionEvent notifies interested parties of a session transition.
type SessionEvent struct {
	Kind    SessionEventKind `json:"kind"`
	UserID  int64            `json:"user_id,omitempty"`
	Address string           `json:"address,omitempty"`
	At      time.Time        `json:"at"`
}
