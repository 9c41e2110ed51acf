package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookbridge/internal/config"
)

// Context keys for client data
const (
	ContextKeyClientID = "auth_client_id"
	ContextKeyAuthType = "auth_type" // "api_key" or "none"
)

// AuthType indicates how the client was identified
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeAPIKey AuthType = "api_key"
)

// APIKeyHeader is the preferred header for presenting a key.
const APIKeyHeader = "X-API-Key"

// Middleware checks API keys on incoming requests.
type Middleware struct {
	config      config.Auth
	keys        [][]byte
	publicPaths map[string]bool
}

// NewMiddleware creates a new API key middleware.
func NewMiddleware(cfg config.Auth) *Middleware {
	publicPaths := map[string]bool{
		"/":       true,
		"/health": true,
		"/ping":   true,
	}

	keys := make([][]byte, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return &Middleware{
		config:      cfg,
		keys:        keys,
		publicPaths: publicPaths,
	}
}

// Enabled reports whether requests must carry a key.
func (m *Middleware) Enabled() bool {
	return m.config.Mode != config.AuthModeNone && len(m.keys) > 0
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	if !m.Enabled() {
		return func(c *gin.Context) {
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if m.publicPaths[c.Request.URL.Path] {
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}

		key := presentedKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		if !m.validKey(key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid API key",
			})
			return
		}

		c.Set(ContextKeyClientID, clientID(key))
		c.Set(ContextKeyAuthType, AuthTypeAPIKey)
		c.Next()
	}
}

// validKey compares against every configured key in constant time.
func (m *Middleware) validKey(key string) bool {
	presented := []byte(key)
	match := 0
	for _, k := range m.keys {
		match |= subtle.ConstantTimeCompare(presented, k)
	}
	return match == 1
}

// presentedKey extracts the key from X-API-Key or "Authorization: Bearer <key>".
func presentedKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(APIKeyHeader)); key != "" {
		return key
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// clientID is a stable, non-reversible label for a key, safe to log and use as a map key.
func clientID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key:" + hex.EncodeToString(sum[:6])
}

// GetClientID returns the authenticated client label, or "" when no key was used.
func GetClientID(c *gin.Context) string {
	if id, exists := c.Get(ContextKeyClientID); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}
