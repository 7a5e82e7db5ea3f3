// Package client talks to the Osool backend's auth surface. It holds
// two HTTP clients: a plain one for credential exchanges, where a 401
// means "wrong credentials" and must not trigger a refresh, and an
// intercepted one whose Transport attaches the stored bearer token and
// silently refreshes expired sessions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/osool-hq/bawaba/core"
	"github.com/osool-hq/bawaba/ports"
)

const defaultTimeout = 30 * time.Second

// Client is the REST client for the Osool backend
type Client struct {
	baseURL   *url.URL
	authed    *http.Client
	plain     *http.Client
	transport *Transport
	log       zerolog.Logger
}

// New creates a client for the backend at baseURL. onExpired, which may
// be nil, fires once whenever a failed refresh tears the session down.
func New(baseURL string, store ports.TokenStore, onExpired func(ctx context.Context, cause error), log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	refreshURL := base.JoinPath("/auth/refresh").String()
	transport := NewTransport(nil, store, refreshURL, onExpired, log)

	return &Client{
		baseURL:   base,
		authed:    &http.Client{Transport: transport, Timeout: defaultTimeout},
		plain:     &http.Client{Timeout: defaultTimeout},
		transport: transport,
		log:       log,
	}, nil
}

// Transport returns the refreshing transport, for callers that proxy
// raw requests to the backend.
func (c *Client) Transport() *Transport {
	return c.transport
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() *url.URL {
	return c.baseURL
}

// TokenResponse is the backend's token grant
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       int64  `json:"user_id"`
}

// Pair converts the grant into a credential pair.
func (r TokenResponse) Pair() core.TokenPair {
	return core.TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// SignupRequest is the KYC payload required at signup
type SignupRequest struct {
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
	NationalID  string
}

// SignupResponse reports that a verification code was sent. Signup is
// never directly terminal: the caller continues with OTP verification
// for the returned user.
type SignupResponse struct {
	Status string `json:"status"`
	UserID int64  `json:"user_id"`
	DevOTP string `json:"dev_otp"`
}

// WalletPayload is a signed wallet-login challenge
type WalletPayload struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// WalletVerifyResponse is the backend's answer to a wallet verification
type WalletVerifyResponse struct {
	TokenResponse
	IsNewUser bool `json:"is_new_user"`
}

// OTPSendResponse acknowledges a sent verification code
type OTPSendResponse struct {
	DevCode string `json:"dev_code"`
}

// LoginPassword exchanges an email/password pair for tokens. The
// backend expects OAuth2-style form encoding.
func (c *Client) LoginPassword(ctx context.Context, email, password string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/auth/login"), strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResponse{}, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out TokenResponse
	if err := c.send(c.plain, req, &out); err != nil {
		if apiErr := asAPIError(err); apiErr != nil &&
			(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
			return TokenResponse{}, core.ErrInvalidCredentials
		}
		return TokenResponse{}, err
	}
	return out, nil
}

// Signup submits the KYC payload. The backend carries signup fields as
// query parameters and always answers with "otp_sent" rather than
// tokens.
func (c *Client) Signup(ctx context.Context, in SignupRequest) (SignupResponse, error) {
	endpoint, _ := url.Parse(c.endpoint("/auth/signup"))
	q := endpoint.Query()
	q.Set("email", in.Email)
	q.Set("password", in.Password)
	q.Set("full_name", in.FullName)
	q.Set("phone_number", in.PhoneNumber)
	q.Set("national_id", in.NationalID)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), nil)
	if err != nil {
		return SignupResponse{}, fmt.Errorf("failed to build signup request: %w", err)
	}

	var out SignupResponse
	if err := c.send(c.plain, req, &out); err != nil {
		return SignupResponse{}, err
	}
	return out, nil
}

// VerifyWallet submits a signed challenge for verification.
func (c *Client) VerifyWallet(ctx context.Context, payload WalletPayload) (WalletVerifyResponse, error) {
	req, err := c.jsonRequest(ctx, "/auth/verify-wallet", payload)
	if err != nil {
		return WalletVerifyResponse{}, err
	}

	var out WalletVerifyResponse
	if err := c.send(c.plain, req, &out); err != nil {
		return WalletVerifyResponse{}, err
	}
	return out, nil
}

// LinkWallet attaches the signed challenge to the authenticated account.
// It runs over the intercepted client so the bearer token is attached.
func (c *Client) LinkWallet(ctx context.Context, payload WalletPayload) (TokenResponse, error) {
	req, err := c.jsonRequest(ctx, "/auth/link-wallet", payload)
	if err != nil {
		return TokenResponse{}, err
	}

	var out TokenResponse
	if err := c.send(c.authed, req, &out); err != nil {
		if apiErr := asAPIError(err); apiErr != nil && apiErr.StatusCode == http.StatusConflict {
			return TokenResponse{}, core.ErrWalletAlreadyLinked
		}
		return TokenResponse{}, err
	}
	return out, nil
}

// SendOTP asks the backend to text a verification code. The backend
// rate-limits sends; its detail is surfaced verbatim and never retried
// here.
func (c *Client) SendOTP(ctx context.Context, phoneNumber string) (OTPSendResponse, error) {
	req, err := c.jsonRequest(ctx, "/auth/otp/send", map[string]string{"phone_number": phoneNumber})
	if err != nil {
		return OTPSendResponse{}, err
	}

	var out OTPSendResponse
	if err := c.send(c.plain, req, &out); err != nil {
		if apiErr := asAPIError(err); apiErr != nil && apiErr.StatusCode == http.StatusTooManyRequests {
			return OTPSendResponse{}, &core.RateLimitError{Detail: apiErr.Detail}
		}
		return OTPSendResponse{}, err
	}
	return out, nil
}

// VerifyOTP exchanges a verification code for tokens.
func (c *Client) VerifyOTP(ctx context.Context, phoneNumber, code string) (TokenResponse, error) {
	req, err := c.jsonRequest(ctx, "/auth/otp/verify", map[string]string{
		"phone_number": phoneNumber,
		"otp_code":     code,
	})
	if err != nil {
		return TokenResponse{}, err
	}

	var out TokenResponse
	if err := c.send(c.plain, req, &out); err != nil {
		if apiErr := asAPIError(err); apiErr != nil &&
			(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
			return TokenResponse{}, core.ErrInvalidOTP
		}
		return TokenResponse{}, err
	}
	return out, nil
}

// GoogleLogin exchanges a provider-issued ID token for tokens.
func (c *Client) GoogleLogin(ctx context.Context, idToken string) (TokenResponse, error) {
	req, err := c.jsonRequest(ctx, "/auth/google", map[string]string{"id_token": idToken})
	if err != nil {
		return TokenResponse{}, err
	}

	var out TokenResponse
	if err := c.send(c.plain, req, &out); err != nil {
		return TokenResponse{}, err
	}
	return out, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

func (c *Client) jsonRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// send performs the request and decodes a 2xx JSON body into out.
// Non-2xx responses become APIErrors carrying the backend detail;
// transport failures become ErrNetwork unless the session was torn down.
func (c *Client) send(httpc *http.Client, req *http.Request, out any) error {
	resp, err := httpc.Do(req)
	if err != nil {
		// The refreshing transport reports a dead session as
		// ErrSessionExpired; url.Error unwraps to it.
		if errors.Is(err, core.ErrSessionExpired) {
			return err
		}
		return fmt.Errorf("%w: %v", core.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &core.APIError{StatusCode: resp.StatusCode, Detail: decodeDetail(resp)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeDetail extracts the backend's error detail. FastAPI-style
// bodies carry {"detail": ...}; the link endpoint answers 409 with
// {"status": "already_linked"}.
func decodeDetail(resp *http.Response) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Status string          `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if len(body.Detail) > 0 {
			var s string
			if json.Unmarshal(body.Detail, &s) == nil {
				return s
			}
			return string(body.Detail)
		}
		if body.Status != "" {
			return body.Status
		}
	}
	return strconv.Itoa(resp.StatusCode) + " " + http.StatusText(resp.StatusCode)
}

// asAPIError extracts a backend rejection from err, or returns nil.
func asAPIError(err error) *core.APIError {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
