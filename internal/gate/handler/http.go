// Package handler exposes the authentication gate over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"authgate/internal/gate"
	"authgate/internal/observability"
)

// Authenticator is the slice of the gate the HTTP layer needs.
type Authenticator interface {
	AttemptLogin(ctx context.Context, creds gate.Credentials, client gate.Client) (*gate.LoginResult, error)
	RefreshSession(ctx context.Context, rawToken string, client gate.Client) (*gate.RefreshResult, error)
	Logout(ctx context.Context, sessionID string, client gate.Client) error
}

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

// SessionKey is the gin context key under which the auth middleware stores
// the caller's session id.
const SessionKey = "auth.session_id"

// Handler serves the auth endpoints.
type Handler struct {
	gate          Authenticator
	logger        *observability.Logger
	accessTTL     time.Duration
	refreshTTL    time.Duration
	secureCookies bool
}

// New returns a Handler. secureCookies should be true everywhere except
// local development.
func New(g Authenticator, logger *observability.Logger, accessTTL, refreshTTL time.Duration, secureCookies bool) *Handler {
	return &Handler{
		gate:          g,
		logger:        logger,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Login handles POST /v1/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	res, err := h.gate.AttemptLogin(c.Request.Context(), gate.Credentials{
		Identifier: req.Email,
		Secret:     req.Password,
	}, h.client(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setAuthCookies(c, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"user": res.Account,
		"tokens": tokenResponse{
			AccessToken:      res.Tokens.AccessToken,
			AccessExpiresAt:  res.Tokens.AccessExpiresAt,
			RefreshToken:     res.Tokens.RefreshToken,
			RefreshExpiresAt: res.Tokens.RefreshExpiresAt,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /v1/auth/refresh. The token comes from the refresh
// cookie, falling back to the JSON body for non-browser clients.
func (h *Handler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(refreshCookie)
	if err != nil || raw == "" {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token required"})
			return
		}
		raw = req.RefreshToken
	}

	res, err := h.gate.RefreshSession(c.Request.Context(), raw, h.client(c))
	if err != nil {
		// drop cookies only when the token is genuinely dead; on an
		// infrastructure error the client's token is still valid and the
		// request is retryable
		if refreshTokenDead(err) {
			h.clearAuthCookies(c)
		}
		h.writeError(c, err)
		return
	}

	h.setAuthCookies(c, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"tokens": tokenResponse{
			AccessToken:      res.Tokens.AccessToken,
			AccessExpiresAt:  res.Tokens.AccessExpiresAt,
			RefreshToken:     res.Tokens.RefreshToken,
			RefreshExpiresAt: res.Tokens.RefreshExpiresAt,
		},
	})
}

// Logout handles POST /v1/auth/logout. Requires the auth middleware.
func (h *Handler) Logout(c *gin.Context) {
	sessionID, ok := c.Get(SessionKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	if err := h.gate.Logout(c.Request.Context(), sessionID.(string), h.client(c)); err != nil {
		h.writeError(c, err)
		return
	}

	h.clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// refreshTokenDead reports whether err means the presented refresh token can
// never succeed again.
func refreshTokenDead(err error) bool {
	return errors.Is(err, gate.ErrTokenExpired) ||
		errors.Is(err, gate.ErrTokenRevoked) ||
		errors.Is(err, gate.ErrAccountDisabled)
}

func (h *Handler) client(c *gin.Context) gate.Client {
	return gate.Client{
		SourceAddress: observability.ClientIP(c.Request),
		UserAgent:     c.Request.UserAgent(),
	}
}

// writeError maps gate outcomes to HTTP responses. Credential failures keep
// one uniform body so responses cannot be used to enumerate accounts.
func (h *Handler) writeError(c *gin.Context, err error) {
	var throttled *gate.ThrottledError
	switch {
	case errors.As(err, &throttled):
		retryAfter := int(throttled.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "too many failed attempts",
			"retry_after": retryAfter,
		})
	case errors.Is(err, gate.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, gate.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
	case errors.Is(err, gate.ErrTokenExpired), errors.Is(err, gate.ErrTokenRevoked):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
	default:
		observability.CaptureError(err, map[string]any{
			"path": c.Request.URL.Path,
		})
		h.logger.Error("auth_request_failed", map[string]any{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (h *Handler) setAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, accessToken, int(h.accessTTL.Seconds()), "/", "", h.secureCookies, true)
	c.SetCookie(refreshCookie, refreshToken, int(h.refreshTTL.Seconds()), "/", "", h.secureCookies, true)
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", h.secureCookies, true)
}
