package http

import (
	"log/slog"
	"strings"

	"finapi/internal/domain/errs"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "user_id"

type TokenVerifier interface {
	VerifyAccessToken(token string) (uuid.UUID, error)
}

// BearerAuth guards a route group with access token verification and puts
// the authenticated user ID into the request context.
func BearerAuth(verifier TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(c, logger, errs.ErrInvalidAccessToken)
			c.Abort()
			return
		}

		userID, err := verifier.VerifyAccessToken(token)
		if err != nil {
			respondError(c, logger, err)
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// AuthenticatedUser returns the user ID set by BearerAuth.
func AuthenticatedUser(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	userID, ok := v.(uuid.UUID)
	return userID, ok
}
