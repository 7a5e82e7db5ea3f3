package http

import (
	"errors"
	"net/http"
	"net/http/httputil"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/osool-hq/bawaba/client"
	"github.com/osool-hq/bawaba/core"
	"github.com/osool-hq/bawaba/ports"
	"github.com/osool-hq/bawaba/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(auth *service.AuthService, store ports.TokenStore, api *client.Client, log zerolog.Logger) *gin.Engine {
	router := gin.Default()

	handlers := NewSessionHandlers(auth, store)

	session := router.Group("/session")
	{
		session.GET("/login", handlers.LoginRequired)
		session.POST("/login", handlers.Login)
		session.POST("/signup", handlers.Signup)
		session.POST("/otp/send", handlers.OTPSend)
		session.POST("/otp/verify", handlers.OTPVerify)
		session.POST("/otp/cancel", handlers.OTPCancel)
		session.POST("/wallet", handlers.WalletLogin)
		session.POST("/wallet/link", handlers.WalletLink)
		session.POST("/wallet/new", handlers.WalletNew)
		session.POST("/wallet/dismiss", handlers.WalletDismiss)
		session.POST("/google", handlers.GoogleLogin)
		session.POST("/logout", handlers.Logout)
		session.GET("/status", handlers.Status)
	}

	// Everything under /api is forwarded to the backend through the
	// refreshing transport, so bearer attachment and the one-shot
	// refresh-and-retry apply to proxied calls as well. The backend
	// serves its routes at the root, so the /api prefix is stripped.
	proxy := newBackendProxy(api, log)
	protected := router.Group("/api")
	protected.Use(RequireSession(store))
	protected.Any("/*path", gin.WrapH(http.StripPrefix("/api", proxy)))

	return router
}

// newBackendProxy builds a reverse proxy into the Osool backend.
func newBackendProxy(api *client.Client, log zerolog.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(api.BaseURL())
	proxy.Transport = api.Transport()
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, core.ErrSessionExpired) {
			// The session died mid-request: send the caller to the
			// login surface rather than a generic gateway error.
			http.Redirect(w, r, "/session/login", http.StatusFound)
			return
		}
		log.Error().Err(err).Str("path", r.URL.Path).Msg("proxying to backend failed")
		w.WriteHeader(http.StatusBadGateway)
	}
	return proxy
}
