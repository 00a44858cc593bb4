package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/promptportal/pkg/portal/catalog"
	"github.com/mikepea/promptportal/pkg/portal/models"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyEmail is the key for email in gin context
	ContextKeyEmail = "email"
	// ContextKeyRole is the key for the user's role in gin context
	ContextKeyRole = "role"
	// ContextKeyClaims holds the parsed token
	ContextKeyClaims = "claims"
)

var errMissingHeader = errors.New("authorization header required")

// bearerClaims parses and checks the request's bearer token
func bearerClaims(c *gin.Context) (*Claims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errMissingHeader
	}

	// Expect "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, ErrInvalidToken
	}

	claims, err := ValidateToken(parts[1])
	if err != nil {
		return nil, err
	}

	revoked, err := IsRevoked(c.Request.Context(), claims)
	if err != nil || revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func setClaims(c *gin.Context, claims *Claims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyEmail, claims.Email)
	c.Set(ContextKeyRole, claims.Role)
	c.Set(ContextKeyClaims, claims)
}

// AuthMiddleware validates JWT tokens and sets user info in context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c)
		if err != nil {
			switch {
			case errors.Is(err, errMissingHeader):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			case errors.Is(err, ErrExpiredToken):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth sets user info when a valid token is present and otherwise
// lets the request through anonymously
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := bearerClaims(c); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// RequireAdmin middleware checks if the user has the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextKeyRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		if role != string(models.RoleAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetRole returns the role from the gin context
func GetRole(c *gin.Context) (models.Role, bool) {
	role, exists := c.Get(ContextKeyRole)
	if !exists {
		return "", false
	}
	return models.Role(role.(string)), true
}

// Session returns the acting user for catalog calls. Requests without a
// valid token yield the anonymous session.
func Session(c *gin.Context) catalog.Session {
	userID, ok := GetUserID(c)
	if !ok {
		return catalog.Session{}
	}
	role, _ := GetRole(c)
	return catalog.Session{UserID: userID, Role: role}
}
