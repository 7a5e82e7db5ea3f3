package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/osool-hq/bawaba/core"
	"github.com/osool-hq/bawaba/ports"
)

// RetryState tracks where a single request is in its retry lifecycle.
// A request moves through the states in one direction only, which makes
// the one-shot retry guarantee structural: there is no transition out
// of RetryDone.
type RetryState uint8

const (
	// RetryNone means the request has not been retried.
	RetryNone RetryState = iota

	// RetryRefreshing means a 401 was received and a refresh is in flight.
	RetryRefreshing

	// RetryDone means the request was resent once after a refresh.
	// Whatever comes back now is propagated unchanged.
	RetryDone
)

// Transport is an http.RoundTripper that attaches the stored access
// token as a bearer credential and, on a 401, performs exactly one
// refresh and one resend of the original request. When the refresh
// itself fails it clears the token store and reports the session as
// expired: the caller receives the refresh error rather than the
// original 401, so "my request failed" and "my session died" stay
// distinguishable.
//
// Concurrent refreshes are coalesced: requests that hit a 401 while a
// refresh is already in flight wait for it instead of spending the
// refresh token a second time.
type Transport struct {
	base       http.RoundTripper
	store      ports.TokenStore
	refreshURL string

	// onExpired is invoked when a failed refresh tears the session
	// down, after the store has been cleared.
	onExpired func(ctx context.Context, cause error)

	group singleflight.Group
	log   zerolog.Logger
}

// NewTransport creates a refreshing transport. base may be nil, in which
// case http.DefaultTransport is used. onExpired may be nil.
func NewTransport(base http.RoundTripper, store ports.TokenStore, refreshURL string, onExpired func(ctx context.Context, cause error), log zerolog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:       base,
		store:      store,
		refreshURL: refreshURL,
		onExpired:  onExpired,
		log:        log,
	}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	state := RetryNone
	token := t.currentAccessToken(req.Context())

	for {
		out, err := t.replay(req)
		if err != nil {
			return nil, err
		}
		if token != "" {
			out.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := t.base.RoundTrip(out)
		if err != nil {
			return nil, err
		}

		// Anything but a first 401 passes through unchanged; state is
		// RetryDone after a resend, so a second 401 propagates too.
		if resp.StatusCode != http.StatusUnauthorized || state != RetryNone {
			return resp, nil
		}

		// A request whose body cannot be replayed is never retried.
		if req.Body != nil && req.GetBody == nil {
			return resp, nil
		}

		state = RetryRefreshing
		access, refreshErr := t.refresh(req.Context())
		if refreshErr != nil {
			resp.Body.Close()
			t.expire(req.Context(), refreshErr)
			return nil, fmt.Errorf("%w: %v", core.ErrSessionExpired, refreshErr)
		}
		resp.Body.Close()

		token = access
		state = RetryDone
		t.log.Debug().Str("method", req.Method).Stringer("url", req.URL).Msg("retrying request after refresh")
	}
}

// currentAccessToken returns the stored access token, or "" when the
// request should go out unauthenticated.
func (t *Transport) currentAccessToken(ctx context.Context) string {
	pair, err := t.store.Pair(ctx)
	if err != nil {
		return ""
	}
	return pair.AccessToken
}

// replay clones the caller's request with a fresh body, leaving the
// original untouched so it can be sent again.
func (t *Transport) replay(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		out.Body = body
	}
	return out, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// refresh spends the stored refresh token for a new pair and persists
// it. Concurrent callers share a single network call.
func (t *Transport) refresh(ctx context.Context) (string, error) {
	access, err, _ := t.group.Do("refresh", func() (interface{}, error) {
		pair, err := t.store.Pair(ctx)
		if err != nil || pair.RefreshToken == "" {
			// Nothing to spend: treat as an immediate refresh failure
			// without a network call.
			return nil, core.ErrNoSession
		}

		payload, err := json.Marshal(refreshRequest{RefreshToken: pair.RefreshToken})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal refresh request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to build refresh request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrNetwork, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &core.APIError{StatusCode: resp.StatusCode, Detail: decodeDetail(resp)}
		}

		var out refreshResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to decode refresh response: %w", err)
		}
		if out.AccessToken == "" {
			return nil, fmt.Errorf("refresh response carried no access token")
		}

		// RefreshToken may be empty when the backend does not rotate it;
		// the store keeps the old one in that case.
		pair = core.TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
		if err := t.store.Set(ctx, pair); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
		}

		return out.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return access.(string), nil
}

// expire tears the session down after an unrecoverable refresh failure.
func (t *Transport) expire(ctx context.Context, cause error) {
	t.log.Warn().Err(cause).Msg("refresh failed, clearing session")

	if err := t.store.Clear(ctx); err != nil {
		t.log.Error().Err(err).Msg("failed to clear token store")
	}
	if t.onExpired != nil {
		t.onExpired(ctx, cause)
	}
}
