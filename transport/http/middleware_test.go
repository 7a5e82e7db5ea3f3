package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/osool-hq/bawaba/adapters/store"
	"github.com/osool-hq/bawaba/core"
)

func newGuardedRouter(tokens *store.MemoryStore, handled *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	protected := router.Group("/api")
	protected.Use(RequireSession(tokens))
	protected.GET("/listings", func(c *gin.Context) {
		*handled = true
		c.JSON(http.StatusOK, gin.H{})
	})
	return router
}

func TestRequireSessionRedirectsWhenEmpty(t *testing.T) {
	tokens := store.NewMemoryStore()
	var handled bool
	router := newGuardedRouter(tokens, &handled)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/session/login", w.Header().Get("Location"))
	require.False(t, handled, "protected handler must not run without a session")
}

func TestRequireSessionPassesWhenAuthenticated(t *testing.T) {
	tokens := store.NewMemoryStore()
	require.NoError(t, tokens.Set(context.Background(), core.TokenPair{AccessToken: "a1", RefreshToken: "r1"}))

	var handled bool
	router := newGuardedRouter(tokens, &handled)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, handled)
}

func TestRequireSessionReactsToClear(t *testing.T) {
	ctx := context.Background()
	tokens := store.NewMemoryStore()
	require.NoError(t, tokens.Set(ctx, core.TokenPair{AccessToken: "a1", RefreshToken: "r1"}))

	var handled bool
	router := newGuardedRouter(tokens, &handled)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	require.Equal(t, http.StatusOK, w.Code)

	// A forced clear (failed refresh, logout) takes effect on the very
	// next request.
	require.NoError(t, tokens.Clear(ctx))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	require.Equal(t, http.StatusFound, w.Code)
}
