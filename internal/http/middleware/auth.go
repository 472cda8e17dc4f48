// README: Firebase ID-token auth and role-gate middleware.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"waterline/internal/infra"
	"waterline/internal/modules/roles"
	"waterline/internal/types"
)

const (
	ctxKeyUID  = "auth.uid"
	ctxKeyRole = "auth.role"
)

// Auth verifies the Bearer token and records the principal uid. It does not
// resolve a role; screens that need one add RequireRole on top.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxKeyUID, token.UID)
		c.Next()
	}
}

// RoleResolver maps a principal uid to its role.
type RoleResolver interface {
	Resolve(ctx context.Context, uid types.ID) (roles.Role, error)
}

// RequireRole re-resolves the caller's role on every request and rejects a
// mismatch before any handler runs. A rejected principal is told to sign out
// so no stale privileged session lingers client-side.
func RequireRole(resolver RoleResolver, required roles.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := CallerUID(c)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		role, err := resolver.Resolve(c.Request.Context(), uid)
		if errors.Is(err, roles.ErrNoRole) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied", "signOut": true})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "role resolution unavailable"})
			return
		}
		if role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied", "signOut": true})
			return
		}
		c.Set(ctxKeyRole, role)
		c.Next()
	}
}

// CallerUID returns the authenticated principal uid, empty when anonymous.
func CallerUID(c *gin.Context) types.ID {
	if v, ok := c.Get(ctxKeyUID); ok {
		if s, ok := v.(string); ok {
			return types.ID(s)
		}
	}
	return ""
}

// CallerRole returns the resolved role, empty before RequireRole has run.
func CallerRole(c *gin.Context) roles.Role {
	if v, ok := c.Get(ctxKeyRole); ok {
		if r, ok := v.(roles.Role); ok {
			return r
		}
	}
	return ""
}
