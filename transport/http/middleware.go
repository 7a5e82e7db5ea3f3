package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osool-hq/bawaba/ports"
)

// RequireSession gates protected routes on the token store. It runs on
// every request, so a session torn down elsewhere (logout, failed
// refresh) takes effect on the next request without restarts. The store
// check is a weak gate only: the backend's 401 remains the authority,
// enforced by the refreshing transport behind the proxy.
func RequireSession(store ports.TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ports.IsAuthenticated(c.Request.Context(), store) {
			c.Redirect(http.StatusFound, "/session/login")
			c.Abort()
			return
		}

		c.Next()
	}
}
