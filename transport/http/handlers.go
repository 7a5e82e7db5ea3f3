package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osool-hq/bawaba/core"
	"github.com/osool-hq/bawaba/ports"
	"github.com/osool-hq/bawaba/service"
)

// SessionHandlers contains HTTP handlers for the session endpoints
type SessionHandlers struct {
	auth  *service.AuthService
	store ports.TokenStore
}

// NewSessionHandlers creates new session handlers
func NewSessionHandlers(auth *service.AuthService, store ports.TokenStore) *SessionHandlers {
	return &SessionHandlers{auth: auth, store: store}
}

// LoginRequired is the redirect target for guarded routes
func (h *SessionHandlers) LoginRequired(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
}

// Login handles email/password login
func (h *SessionHandlers) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.auth.LoginPassword(c.Request.Context(), req.Email, req.Password); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

// Signup handles account registration; it never grants tokens, the
// flow continues with OTP verification.
func (h *SessionHandlers) Signup(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		FullName    string `json:"full_name" binding:"required"`
		PhoneNumber string `json:"phone_number" binding:"required"`
		NationalID  string `json:"national_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		NationalID:  req.NationalID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"status": "otp_sent", "user_id": result.UserID}
	if result.DevOTP != "" {
		resp["dev_otp"] = result.DevOTP
	}
	c.JSON(http.StatusOK, resp)
}

// OTPSend handles the first step of a phone login
func (h *SessionHandlers) OTPSend(c *gin.Context) {
	var req struct {
		PhoneNumber string `json:"phone_number" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.auth.SendOTP(c.Request.Context(), req.PhoneNumber); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "otp_sent"})
}

// OTPVerify handles the second step of a phone login
func (h *SessionHandlers) OTPVerify(c *gin.Context) {
	var req struct {
		Code string `json:"otp_code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.auth.VerifyOTP(c.Request.Context(), req.Code); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

// OTPCancel discards the in-flight challenge ("change phone number")
func (h *SessionHandlers) OTPCancel(c *gin.Context) {
	h.auth.CancelOTP()
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// WalletLogin signs and submits a wallet challenge
func (h *SessionHandlers) WalletLogin(c *gin.Context) {
	result, err := h.auth.LoginWallet(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	if result.NeedsDecision {
		c.JSON(http.StatusOK, gin.H{
			"authenticated":  false,
			"needs_decision": true,
			"address":        result.Address,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true, "address": result.Address})
}

// WalletLink resolves a pending wallet login by attaching the wallet to
// an existing email account
func (h *SessionHandlers) WalletLink(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.auth.LinkWalletToAccount(c.Request.Context(), req.Email, req.Password); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true, "linked": true})
}

// WalletNew resolves a pending wallet login by creating a fresh account
func (h *SessionHandlers) WalletNew(c *gin.Context) {
	if err := h.auth.CreateWalletAccount(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

// WalletDismiss discards a pending wallet login without consuming it
func (h *SessionHandlers) WalletDismiss(c *gin.Context) {
	h.auth.DismissWalletLink()
	c.JSON(http.StatusOK, gin.H{"status": "dismissed"})
}

// GoogleLogin exchanges a provider ID token
func (h *SessionHandlers) GoogleLogin(c *gin.Context) {
	var req struct {
		IDToken string `json:"id_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.auth.LoginGoogle(c.Request.Context(), req.IDToken); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

// Logout clears the local session
func (h *SessionHandlers) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Status reports the session state. Decoded claims are for display
// only; no access decision is made from them.
func (h *SessionHandlers) Status(c *gin.Context) {
	pair, err := h.store.Pair(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	resp := gin.H{"authenticated": pair.AccessToken != ""}
	if claims, err := core.DecodeClaims(pair.AccessToken); err == nil {
		resp["subject"] = claims.Subject
		if !claims.ExpiresAt.IsZero() {
			resp["expires_at"] = claims.ExpiresAt
		}
	}
	c.JSON(http.StatusOK, resp)
}

// writeError maps the error taxonomy to HTTP status codes, keeping the
// backend's rate-limit detail verbatim.
func writeError(c *gin.Context, err error) {
	var validationErr *core.ValidationError
	var rateErr *core.RateLimitError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &rateErr):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": rateErr.Detail})
	case errors.Is(err, core.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, core.ErrInvalidOTP):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid verification code"})
	case errors.Is(err, core.ErrWalletAlreadyLinked):
		c.JSON(http.StatusConflict, gin.H{"error": "wallet already linked to another account"})
	case errors.Is(err, core.ErrNoOTPChallenge), errors.Is(err, core.ErrNoPendingWalletLink):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrNoWalletSigner):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no wallet configured"})
	case errors.Is(err, core.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
	case errors.Is(err, core.ErrNetwork):
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend unreachable, try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request failed"})
	}
}
