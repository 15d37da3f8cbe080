package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/sessions"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/logger"
)

const (
	ClaimsKey   = "claims"
	UsernameKey = "username"
	tokenKey    = "accessToken"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Chain tries each verifier in order and returns the first success.
type Chain []Verifier

func (ch Chain) Verify(ctx context.Context, raw string) (Token, error) {
	var errs []error
	for _, v := range ch {
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no token verifier configured")
	}
	return nil, errors.Join(errs...)
}

// ClaimsHook runs after a token is accepted, e.g. to provision the user.
type ClaimsHook func(ctx context.Context, claims map[string]interface{}) error

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier.
// On success the claims, the caller's username and the raw token are stored on the context.
func AuthMiddleware(ver Verifier, hooks ...ClaimsHook) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		// Expect 'Bearer <token>'
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		blocked, err := sessions.IsAccessTokenBlacklisted(c.Request.Context(), token)
		if err != nil {
			logger.Warnf("blacklist lookup failed: %v", err)
		}
		if blocked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return
		}

		tok, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			logger.Debugf("token rejected: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var claims map[string]interface{}
		if err := tok.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		username := UsernameFromClaims(claims)
		if username == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}
		for _, h := range hooks {
			if err := h(c.Request.Context(), claims); err != nil {
				logger.Errorf("auth hook for %s: %v", username, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
				return
			}
		}

		c.Set(ClaimsKey, claims)
		c.Set(UsernameKey, username)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// UsernameFromClaims prefers preferred_username and falls back to sub.
func UsernameFromClaims(claims map[string]interface{}) string {
	if u, ok := claims["preferred_username"].(string); ok && u != "" {
		return u
	}
	if s, ok := claims["sub"].(string); ok {
		return s
	}
	return ""
}

// Username returns the authenticated caller, or "" outside AuthMiddleware.
func Username(c *gin.Context) string {
	return c.GetString(UsernameKey)
}

// AccessToken returns the raw bearer token accepted by AuthMiddleware.
func AccessToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

// rateKey picks the per-user key when the request is authenticated.
func rateKey(c *gin.Context) string {
	if u := Username(c); u != "" {
		return "user:" + u
	}
	if v, ok := c.Get(ClaimsKey); ok {
		if cm, ok := v.(map[string]interface{}); ok {
			if u := UsernameFromClaims(cm); u != "" {
				return "user:" + u
			}
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
