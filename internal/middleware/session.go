package middleware

import (
	"context"  // Request context for user lookups
	"net/http" // HTTP status codes

	"photo_share/internal/domain"  // Importing domain models
	"photo_share/internal/session" // Session stores

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// ContextUserKey is where SessionAuth stores the *domain.User of the request
const ContextUserKey = "user"

// UserResolver turns a session user id into a User record
type UserResolver interface {
	GetUser(ctx context.Context, id uint) (*domain.User, error)
}

// SessionAuth lets the request through only when its session resolves to an existing user
func SessionAuth(store session.Store, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := store.Load(c) // Read the session marker
		if err != nil {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			// Stale marker (user gone) or lookup failure: drop it and start over
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("Session user could not be resolved")
			_ = store.Clear(c)
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Set(ContextUserKey, user) // Store user in context
		c.Next()
	}
}

// CurrentUser returns the user stored by SessionAuth
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}
