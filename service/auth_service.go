package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/osool-hq/bawaba/client"
	"github.com/osool-hq/bawaba/core"
	"github.com/osool-hq/bawaba/ports"
)

// challengeFormat embeds the current unix timestamp so a captured
// signature does not stay replayable indefinitely.
const challengeFormat = "Login to Osool: %d"

// AuthService runs the credential exchanges against the backend and
// owns the in-memory flow state: the OTP challenge and the pending
// wallet link. Every method resolves to stored tokens or a typed
// error; nothing panics past this boundary.
type AuthService struct {
	api    *client.Client
	store  ports.TokenStore
	signer ports.WalletSigner
	events ports.EventPublisher
	log    zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	pendingLink *core.PendingWalletLink
	otp         *core.OTPChallenge
}

// NewAuthService creates a new authentication service. signer may be
// nil when no wallet is configured; events may be nil.
func NewAuthService(api *client.Client, store ports.TokenStore, signer ports.WalletSigner, events ports.EventPublisher, log zerolog.Logger) *AuthService {
	return &AuthService{
		api:    api,
		store:  store,
		signer: signer,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// LoginPassword authenticates with an email/password pair and persists
// the granted credential pair.
func (s *AuthService) LoginPassword(ctx context.Context, email, password string) error {
	grant, err := s.api.LoginPassword(ctx, email, password)
	if err != nil {
		s.log.Debug().Err(err).Str("email", email).Msg("password login rejected")
		return err
	}

	if err := s.store.Set(ctx, grant.Pair()); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	s.publish(ctx, core.SessionEvent{Kind: core.SessionLoggedIn, UserID: grant.UserID, At: s.now()})
	return nil
}

// SignupInput is the KYC payload collected at registration
type SignupInput struct {
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
	NationalID  string
}

// SignupResult reports where the OTP gate picks up
type SignupResult struct {
	UserID int64
	// DevOTP is only populated by development backends.
	DevOTP string
}

// Signup registers a new account. The backend never grants tokens here:
// it texts a verification code and the flow continues with VerifyOTP.
// Phone and national ID formats are checked before submission as a
// fast-fail; the server remains the authority.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (SignupResult, error) {
	if err := core.ValidatePhoneNumber(in.PhoneNumber); err != nil {
		return SignupResult{}, err
	}
	if err := core.ValidateNationalID(in.NationalID); err != nil {
		return SignupResult{}, err
	}

	resp, err := s.api.Signup(ctx, client.SignupRequest{
		Email:       in.Email,
		Password:    in.Password,
		FullName:    in.FullName,
		PhoneNumber: in.PhoneNumber,
		NationalID:  in.NationalID,
	})
	if err != nil {
		return SignupResult{}, err
	}

	s.mu.Lock()
	s.otp = &core.OTPChallenge{PhoneNumber: in.PhoneNumber, Sent: true, UserID: resp.UserID}
	s.mu.Unlock()

	s.log.Info().Int64("user_id", resp.UserID).Msg("signup accepted, awaiting phone verification")
	return SignupResult{UserID: resp.UserID, DevOTP: resp.DevOTP}, nil
}

// SendOTP starts a phone login by requesting a verification code. The
// backend's rate-limit detail passes through verbatim; nothing is
// retried automatically.
func (s *AuthService) SendOTP(ctx context.Context, phoneNumber string) error {
	if err := core.ValidatePhoneNumber(phoneNumber); err != nil {
		return err
	}

	if _, err := s.api.SendOTP(ctx, phoneNumber); err != nil {
		return err
	}

	s.mu.Lock()
	s.otp = &core.OTPChallenge{PhoneNumber: phoneNumber, Sent: true}
	s.mu.Unlock()

	return nil
}

// VerifyOTP submits the texted code. An invalid code keeps the
// challenge alive so the user can retry without a resend; success
// replaces the challenge with a stored credential pair.
func (s *AuthService) VerifyOTP(ctx context.Context, code string) error {
	s.mu.Lock()
	otp := s.otp
	s.mu.Unlock()

	if otp == nil || !otp.Sent {
		return core.ErrNoOTPChallenge
	}
	if err := core.ValidateOTPCode(code); err != nil {
		return err
	}

	grant, err := s.api.VerifyOTP(ctx, otp.PhoneNumber, code)
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, grant.Pair()); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	s.mu.Lock()
	s.otp = nil
	s.mu.Unlock()

	s.publish(ctx, core.SessionEvent{Kind: core.SessionLoggedIn, UserID: grant.UserID, At: s.now()})
	return nil
}

// CancelOTP discards the in-flight challenge, e.g. when the user wants
// to change the phone number.
func (s *AuthService) CancelOTP() {
	s.mu.Lock()
	s.otp = nil
	s.mu.Unlock()
}

// OTPChallenge returns a copy of the in-flight challenge, if any.
func (s *AuthService) OTPChallenge() (core.OTPChallenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.otp == nil {
		return core.OTPChallenge{}, false
	}
	return *s.otp, true
}

// WalletLoginResult reports how a wallet login ended
type WalletLoginResult struct {
	// Authenticated is true when tokens were granted and stored.
	Authenticated bool

	// NeedsDecision is true when the backend reported a new user: the
	// signed payload is held pending and the caller must choose between
	// LinkWalletToAccount and CreateWalletAccount.
	NeedsDecision bool

	Address string
	UserID  int64
}

// LoginWallet signs a timestamped challenge with the configured wallet
// and submits it for verification. For a known wallet the granted pair
// is stored immediately. For a new wallet nothing is stored: the signed
// payload is parked in memory until the user decides whether to link it
// to an existing account or create a fresh one.
func (s *AuthService) LoginWallet(ctx context.Context) (WalletLoginResult, error) {
	if s.signer == nil {
		return WalletLoginResult{}, core.ErrNoWalletSigner
	}

	message := fmt.Sprintf(challengeFormat, s.now().Unix())
	signature, err := s.signer.SignMessage(ctx, message)
	if err != nil {
		return WalletLoginResult{}, fmt.Errorf("failed to sign challenge: %w", err)
	}

	payload := client.WalletPayload{
		Address:   s.signer.Address(),
		Message:   message,
		Signature: signature,
	}

	resp, err := s.api.VerifyWallet(ctx, payload)
	if err != nil {
		return WalletLoginResult{}, err
	}

	if resp.IsNewUser {
		s.mu.Lock()
		s.pendingLink = &core.PendingWalletLink{
			Address:   payload.Address,
			Message:   payload.Message,
			Signature: payload.Signature,
		}
		s.mu.Unlock()

		s.log.Info().Str("address", payload.Address).Msg("wallet unknown to backend, awaiting link decision")
		return WalletLoginResult{NeedsDecision: true, Address: payload.Address}, nil
	}

	if err := s.store.Set(ctx, resp.Pair()); err != nil {
		return WalletLoginResult{}, fmt.Errorf("failed to persist tokens: %w", err)
	}

	s.publish(ctx, core.SessionEvent{Kind: core.SessionLoggedIn, UserID: resp.UserID, Address: payload.Address, At: s.now()})
	return WalletLoginResult{Authenticated: true, Address: payload.Address, UserID: resp.UserID}, nil
}

// LinkWalletToAccount consumes the pending wallet login by signing in
// with an existing email account and attaching the wallet to it. A
// wallet that is already linked elsewhere surfaces as
// ErrWalletAlreadyLinked and leaves the just-established email session
// untouched.
func (s *AuthService) LinkWalletToAccount(ctx context.Context, email, password string) error {
	s.mu.Lock()
	pending := s.pendingLink
	s.mu.Unlock()

	if pending == nil {
		return core.ErrNoPendingWalletLink
	}

	if err := s.LoginPassword(ctx, email, password); err != nil {
		return err
	}

	_, err := s.api.LinkWallet(ctx, client.WalletPayload{
		Address:   pending.Address,
		Message:   pending.Message,
		Signature: pending.Signature,
	})
	if err != nil {
		// The decision is spent on a definitive answer; a transient
		// failure keeps the payload for a retry.
		if errors.Is(err, core.ErrWalletAlreadyLinked) {
			s.discardPendingLink()
		}
		return err
	}

	s.discardPendingLink()
	s.log.Info().Str("address", pending.Address).Msg("wallet linked to existing account")
	return nil
}

// CreateWalletAccount consumes the pending wallet login by resubmitting
// the identical signed payload; the backend treats the second
// submission as confirmation and grants tokens.
func (s *AuthService) CreateWalletAccount(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pendingLink
	s.mu.Unlock()

	if pending == nil {
		return core.ErrNoPendingWalletLink
	}

	resp, err := s.api.VerifyWallet(ctx, client.WalletPayload{
		Address:   pending.Address,
		Message:   pending.Message,
		Signature: pending.Signature,
	})
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, resp.Pair()); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	s.discardPendingLink()
	s.publish(ctx, core.SessionEvent{Kind: core.SessionLoggedIn, UserID: resp.UserID, Address: pending.Address, At: s.now()})
	return nil
}

// DismissWalletLink discards the pending wallet login without consuming
// it, the equivalent of closing the decision prompt.
func (s *AuthService) DismissWalletLink() {
	s.discardPendingLink()
}

// PendingWalletAddress reports whether a wallet login awaits a decision.
func (s *AuthService) PendingWalletAddress() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingLink == nil {
		return "", false
	}
	return s.pendingLink.Address, true
}

// LoginGoogle exchanges a provider-issued ID token for a stored
// credential pair. No intermediate state.
func (s *AuthService) LoginGoogle(ctx context.Context, idToken string) error {
	grant, err := s.api.GoogleLogin(ctx, idToken)
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, grant.Pair()); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	s.publish(ctx, core.SessionEvent{Kind: core.SessionLoggedIn, UserID: grant.UserID, At: s.now()})
	return nil
}

// Logout clears the stored credential pair. The backend surface has no
// logout endpoint, so this is purely local.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}

	s.publish(ctx, core.SessionEvent{Kind: core.SessionLoggedOut, At: s.now()})
	return nil
}

// IsAuthenticated reports whether a credential pair is stored.
func (s *AuthService) IsAuthenticated(ctx context.Context) bool {
	return ports.IsAuthenticated(ctx, s.store)
}

func (s *AuthService) discardPendingLink() {
	s.mu.Lock()
	s.pendingLink = nil
	s.mu.Unlock()
}

func (s *AuthService) publish(ctx context.Context, event core.SessionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSession(ctx, event); err != nil {
		// The session transition already happened; a lost notification
		// must not fail the flow.
		s.log.Warn().Err(err).Str("kind", string(event.Kind)).Msg("failed to publish session event")
	}
}
