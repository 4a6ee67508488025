package response

import (
	"log"
	"net/http"

	"anoa.com/cluverse/pkg/apperror"
	"anoa.com/cluverse/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextName   = "name"
)

// Identity is the caller resolved from a verified credential.
type Identity struct {
	UserID uuid.UUID
	Role   string
	Name   string
}

func (i *Identity) HasRole(roles ...string) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// GetIdentity returns the caller identity, or ErrUnauthorized when the
// request passed through without a credential.
func GetIdentity(c *gin.Context) (*Identity, error) {
	userID, err := GetUserID(c)
	if err != nil {
		return nil, err
	}

	return &Identity{
		UserID: userID,
		Role:   c.GetString(ContextRole),
		Name:   c.GetString(ContextName),
	}, nil
}

// OptionalIdentity returns nil for anonymous callers.
func OptionalIdentity(c *gin.Context) *Identity {
	identity, err := GetIdentity(c)
	if err != nil {
		return nil
	}
	return identity
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)
	kind := apperror.MapErrorToKind(err)
	message := err.Error()

	// Log internal errors
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error] %s %s: %v", c.Request.Method, c.FullPath(), err)
		message = "internal server error"
	}

	c.AbortWithStatusJSON(code, gin.H{"error": message, "kind": kind})
}

// BindingError answers 400 with formatted validator messages.
func BindingError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": validator.FormatValidationError(err),
		"kind":  apperror.KindValidation,
	})
}
