package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/config"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/models"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/sessions"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/tokens"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/users"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/logger"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/middleware"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// LoginRequest covers both local password login and the Keycloak
// authorization-code exchange.
type LoginRequest struct {
	Mode        string `json:"mode"` // "password" (default) | "auth_code"
	Username    string `json:"username"`
	Password    string `json:"password"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	idTokens    middleware.Verifier
	httpClient  *http.Client
}

// NewAuthHandler builds the handler. idTokens verifies Keycloak ID tokens and
// may be nil when no realm is configured.
func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, idTokens middleware.Verifier) *AuthHandler {
	return &AuthHandler{
		cfg:         cfg,
		usersSvc:    u,
		sessionsSvc: s,
		idTokens:    idTokens,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg gin.IRouter) {
	a := rg.Group("/auth")
	a.POST("/register", h.SignUp)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

// RegisterProtected mounts endpoints that need an authenticated caller.
func (h *AuthHandler) RegisterProtected(rg gin.IRouter) {
	rg.GET("/v1/me", h.Me)
}

// SignUp creates a local password account.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.usersSvc.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	switch {
	case errors.Is(err, users.ErrInvalidUsername), errors.Is(err, users.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, users.ErrDuplicateUsername):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		logger.Errorf("register %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, u)
}

// Login issues an access token and a refresh session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var (
		u   *models.User
		err error
	)
	switch req.Mode {
	case "", "password":
		u, err = h.usersSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}
	case "auth_code":
		u, err = h.exchangeCode(c, req)
		if u == nil && err == nil {
			// response already written
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported mode"})
		return
	}
	if err != nil {
		logger.Errorf("login (%s): %v", req.Mode, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), u.Username, h.refreshTTL())
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.accessTTL())
	if err != nil {
		logger.Errorf("sign access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": rft,
		"user":         u,
		"expiresIn":    int(h.accessTTL().Seconds()),
	})
}

// exchangeCode trades a Keycloak authorization code for an ID token and
// provisions the user from its claims. It writes the response itself on
// client errors and then returns (nil, nil).
func (h *AuthHandler) exchangeCode(c *gin.Context, req LoginRequest) (*models.User, error) {
	issuer := h.cfg.Keycloak.Issuer()
	if issuer == "" || h.idTokens == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Keycloak not configured"})
		return nil, nil
	}
	if req.Code == "" || req.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and redirect_uri required for auth_code mode"})
		return nil, nil
	}
	logger.Debugf("auth_code login: code length=%d redirect_uri=%s", len(req.Code), req.RedirectURI)

	tr, err := h.requestAuthCodeToken(c.Request.Context(), issuer, req.Code, req.RedirectURI)
	if err != nil {
		logger.Warnf("token exchange (redirect_uri=%q): %v", req.RedirectURI, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return nil, nil
	}
	idt, err := h.idTokens.Verify(c.Request.Context(), tr.IDToken)
	if err != nil {
		logger.Warnf("id token rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id token"})
		return nil, nil
	}
	var claims map[string]interface{}
	if err := idt.Claims(&claims); err != nil {
		return nil, fmt.Errorf("read id token claims: %w", err)
	}
	u, err := h.usersSvc.UpsertFromClaims(c.Request.Context(), claims)
	if errors.Is(err, users.ErrInvalidUsername) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	if u == nil {
		return nil, errors.New("id token has no sub claim")
	}
	return u, nil
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	next, sess, err := h.sessionsSvc.Rotate(c.Request.Context(), req.RefreshToken, h.refreshTTL())
	if err != nil {
		logger.Errorf("rotate refresh: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	u, err := h.usersSvc.Resolve(c.Request.Context(), sess.Username)
	if errors.Is(err, users.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user no longer exists"})
		return
	}
	if err != nil {
		logger.Errorf("refresh lookup %s: %v", sess.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.accessTTL())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access, "refresh_token": next, "expires_in": int(h.accessTTL().Seconds())})
}

// Logout invalidates the refresh token and blacklists the bearer token, if any,
// for the rest of its lifetime.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var at string
	var atExp time.Time
	if n, _ := fmt.Sscanf(c.GetHeader("Authorization"), "Bearer %s", &at); n == 1 {
		if exp, err := tokens.ExpiresAt(at); err == nil {
			atExp = exp
		} else {
			at = ""
		}
	}
	if err := h.sessionsSvc.Revoke(c.Request.Context(), req.RefreshToken, at, atExp); err != nil {
		logger.Errorf("logout: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.usersSvc.Resolve(c.Request.Context(), middleware.Username(c))
	if errors.Is(err, users.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.Errorf("me: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	c.JSON(http.StatusOK, u)
}

// ProvisionFromClaims returns an auth hook that creates users on first sight
// of a Keycloak token. Tokens issued by this service are skipped.
func (h *AuthHandler) ProvisionFromClaims() middleware.ClaimsHook {
	issuer := h.cfg.Keycloak.Issuer()
	return func(ctx context.Context, claims map[string]interface{}) error {
		if iss, _ := claims["iss"].(string); issuer == "" || iss != issuer {
			return nil
		}
		_, err := h.usersSvc.UpsertFromClaims(ctx, claims)
		return err
	}
}

func (h *AuthHandler) accessTTL() time.Duration {
	if h.cfg.JWT.AccessTokenTTL > 0 {
		return h.cfg.JWT.AccessTokenTTL
	}
	return defaultAccessTTL
}

func (h *AuthHandler) refreshTTL() time.Duration {
	if h.cfg.JWT.RefreshTokenTTL > 0 {
		return h.cfg.JWT.RefreshTokenTTL
	}
	return defaultRefreshTTL
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

// requestAuthCodeToken posts the code to the realm token endpoint using
// client_secret_post and falls back to HTTP Basic client auth on 401.
func (h *AuthHandler) requestAuthCodeToken(ctx context.Context, issuer, code, redirectURI string) (*tokenResponse, error) {
	tokenURL := issuer + "/protocol/openid-connect/token"
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", h.cfg.Keycloak.ClientID)
	form.Set("client_secret", h.cfg.Keycloak.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	resp, err := h.postForm(ctx, tokenURL, form, false)
	if err == nil && resp.StatusCode == http.StatusUnauthorized && h.cfg.Keycloak.ClientSecret != "" {
		_ = resp.Body.Close()
		logger.Warnf("token endpoint returned 401; retrying with basic auth")
		resp, err = h.postForm(ctx, tokenURL, form, true)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	if tr.IDToken == "" {
		return nil, errors.New("token response has no id_token")
	}
	return &tr, nil
}

func (h *AuthHandler) postForm(ctx context.Context, tokenURL string, form url.Values, basic bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basic {
		req.SetBasicAuth(h.cfg.Keycloak.ClientID, h.cfg.Keycloak.ClientSecret)
	}
	return h.httpClient.Do(req)
}
