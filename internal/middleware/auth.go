package middleware

import (
	"errors"
	"net/http"
	"strings"

	"anoa.com/cluverse/pkg/apperror"
	"anoa.com/cluverse/pkg/response"
	"anoa.com/cluverse/pkg/token"
	"github.com/gin-gonic/gin"
)

// TokenCookie is the cookie a browser client may carry the credential in.
const TokenCookie = "token"

var (
	errAuthRequired = apperror.New(http.StatusUnauthorized, "authorization required", apperror.ErrUnauthorized)
	errBadToken     = apperror.New(http.StatusForbidden, "invalid or expired token", apperror.ErrInvalidCredential)
	errRoleDenied   = apperror.New(http.StatusForbidden, "insufficient role", apperror.ErrForbidden)
)

type AuthMiddleware struct {
	tokens *token.Manager
}

func NewAuthMiddleware(tokens *token.Manager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth rejects requests without a credential (401) and requests with
// a bad or expired one (403), so clients know when to drop a stored token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.authenticate(c); err != nil {
			response.ResponseError(c, err)
			return
		}
		c.Next()
	}
}

// OptionalAuth lets anonymous requests through but still rejects a
// credential that fails verification.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := m.authenticate(c)
		if err != nil && !errors.Is(err, apperror.ErrUnauthorized) {
			response.ResponseError(c, err)
			return
		}
		c.Next()
	}
}

// RequireRoles admits only the listed roles. There is no role hierarchy:
// endpoints open to admins and bosses list both.
func (m *AuthMiddleware) RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := response.GetIdentity(c)
		if err != nil {
			response.ResponseError(c, errAuthRequired)
			return
		}

		if !identity.HasRole(roles...) {
			response.ResponseError(c, errRoleDenied)
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) error {
	tokenString := extractToken(c)
	if tokenString == "" {
		return errAuthRequired
	}

	claims, err := m.tokens.Parse(tokenString)
	if err != nil {
		return errBadToken
	}

	c.Set(response.ContextUserID, claims.Subject)
	c.Set(response.ContextRole, claims.Role)
	c.Set(response.ContextName, claims.Name)
	return nil
}

func extractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}

	return ""
}
