package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/osool-hq/bawaba/adapters/store"
	"github.com/osool-hq/bawaba/core"
)

// mockBackend is a backend double that grants a fresh pair on refresh
// and accepts only the current access token on the resource route.
type mockBackend struct {
	mu            sync.Mutex
	validAccess   string
	validRefresh  string
	refreshCalls  atomic.Int64
	resourceCalls atomic.Int64
	refreshDelay  time.Duration
	refreshFails  bool
}

func (b *mockBackend) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		time.Sleep(b.refreshDelay)

		if b.refreshFails {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "refresh token expired"}`))
			return
		}

		b.mu.Lock()
		b.validAccess = "a-" + time.Now().Format("150405.000000")
		b.validRefresh = "r-next"
		access := b.validAccess
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "` + access + `", "refresh_token": "r-next"}`))
	})
	mux.HandleFunc("GET /api/listings", func(w http.ResponseWriter, r *http.Request) {
		b.resourceCalls.Add(1)

		b.mu.Lock()
		valid := "Bearer " + b.validAccess
		b.mu.Unlock()

		if b.validAccess == "" || r.Header.Get("Authorization") != valid {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "token expired"}`))
			return
		}
		w.Write([]byte(`{}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestTransport(t *testing.T, srv *httptest.Server, tokens *store.MemoryStore, onExpired func(ctx context.Context, cause error)) *http.Client {
	t.Helper()
	tr := NewTransport(nil, tokens, srv.URL+"/auth/refresh", onExpired, zerolog.Nop())
	return &http.Client{Transport: tr}
}

func TestAttachesStoredBearer(t *testing.T) {
	ctx := context.Background()

	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	tokens := store.NewMemoryStore()
	require.NoError(t, tokens.Set(ctx, core.TokenPair{AccessToken: "a1", RefreshToken: "r1"}))

	httpc := newTestTransport(t, srv, tokens, nil)
	resp, err := httpc.Get(srv.URL + "/anything")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, "Bearer a1", seen)
}

func TestUnauthenticatedWhenStoreEmpty(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	httpc := newTestTransport(t, srv, store.NewMemoryStore(), nil)
	resp, err := httpc.Get(srv.URL + "/anything")
	require.NoError(t, err)
	resp.Body.Close()

	require.Empty(t, seen)
}

func TestRefreshesOnceAndRetries(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{validAccess: "a-current", validRefresh: "r1"}
	srv := backend.server(t)

	tokens := store.NewMemoryStore()
	require.NoError(t, tokens.Set(ctx, core.TokenPair{AccessToken: "a-stale", RefreshToken: "r1"}))

	httpc := newTestTransport(t, srv, tokens, nil)
	resp, err := httpc.Get(srv.URL + "/api/listings")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int64(1), backend.refreshCalls.Load())
	require.Equal(t, int64(2), backend.resourceCalls.Load())

	// The rotated pair must be persisted.
	pair, err := tokens.Pair(ctx)
	require.NoError(t, err)
	require.Equal(t, "r-next", pair.RefreshToken)
	require.NotEqual(t, "a-stale", pair.AccessToken)
}

func TestSecond401PropagatesUnchanged(t *testing.T) {
	ctx := context.Background()

	// Refresh succeeds but the backend keeps rejecting the resource
	// call; the retry must happen exactly once and the second 401 must
	// reach the caller as a response, not as a session teardown.
	var refreshCalls, resourceCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		w.Write([]byte(`{"access_token": "a2", "refresh_token": "r2"}`))
	})
	mux.HandleFunc("GET /api/listings", func(w http.ResponseWriter, r *http.Request) {
		resourceCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tokens := store.NewMemoryStore()
	require.NoError(t, tokens.Set(ctx, core.TokenPair{AccessToken: "a1", RefreshToken: "r1"}))

	tr := NewTransport(nil, tokens, srv.URL+"/auth/refresh", nil, zerolog.Nop())
	httpc := &http.Client{Transport: tr}

	resp, err := httpc.Get(srv.URL + "/api/listings")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int64(1), refreshCalls.Load())
	require.Equal(t, int64(2), resourceCalls.Load())
}

func TestRefreshFailureTearsSessionDown(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{refreshFails: true}
	srv := backend.server(t)

	tokens := store.NewMemoryStore()
	require.NoError(t, tokens.Set(ctx, core.TokenPair{AccessToken: "a-stale", RefreshToken: "r1"}))

	var expired atomic.Int64
	httpc := newTestTransport(t, srv, tokens, func(ctx context.Context, cause error) {
		expired.Add(1)
	})

	_, err := httpc.Get(srv.URL + "/api/listings")
	require.Error(t, err)
	require.ErrorIs(t, err, core.ErrSessionExpired)

	require.Equal(t, int64(1), backend.refreshCalls.Load())
	require.Equal(t, int64(1), backend.resourceCalls.Load())
	require.Equal(t, int64(1), expired.Load())

	_, err = tokens.Pair(ctx)
	require.ErrorIs(t, err, core.ErrNoSession)
}

func TestNoRefreshTokenFailsWithoutNetworkCall(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{}
	srv := backend.server(t)

	tokens := store.NewMemoryStore()
	require.NoError(t, tokens.Set(ctx, core.TokenPair{AccessToken: "a-stale"}))

	httpc := newTestTransport(t, srv, tokens, nil)
	_, err := httpc.Get(srv.URL + "/api/listings")
	require.ErrorIs(t, err, core.ErrSessionExpired)

	require.Equal(t, int64(0), backend.refreshCalls.Load())

	_, err = tokens.Pair(ctx)
	require.ErrorIs(t, err, core.ErrNoSession)
}

func TestConcurrentRefreshesCoalesce(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{validAccess: "a-current", validRefresh: "r1", refreshDelay: 200 * time.Millisecond}
	srv := backend.server(t)

	tokens := store.NewMemoryStore()
	require.NoError(t, tokens.Set(ctx, core.TokenPair{AccessToken: "a-stale", RefreshToken: "r1"}))

	tr := NewTransport(nil, tokens, srv.URL+"/auth/refresh", nil, zerolog.Nop())

	start := make(chan struct{})
	errs := make([]error, 5)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = tr.refresh(ctx)
		}(i)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), backend.refreshCalls.Load())
}
