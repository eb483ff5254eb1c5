package session

import (
	"fmt"  // Error wrapping
	"time" // Session lifetimes

	"photo_share/internal/utils" // JWT helpers

	"github.com/gin-gonic/gin" // Gin web framework
)

// CookieStore keeps the user id in a signed, expiring token stored in the
// session cookie itself.
type CookieStore struct {
	secret string        // HMAC key for the session token
	opts   CookieOptions // Cookie attributes
}

// NewCookieStore builds a CookieStore signing tokens with secret.
func NewCookieStore(secret string, ttl time.Duration, secure bool) *CookieStore {
	return &CookieStore{
		secret: secret,
		opts:   CookieOptions{Name: "session", TTL: ttl, Secure: secure},
	}
}

func (s *CookieStore) Load(c *gin.Context) (uint, error) {
	raw, err := c.Cookie(s.opts.Name)
	if err != nil || raw == "" {
		return 0, ErrNoSession
	}
	claims, err := utils.ParseJWT(raw, s.secret)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return claims.UserID, nil
}

func (s *CookieStore) Save(c *gin.Context, userID uint) error {
	token, err := utils.GenerateJWT(userID, s.secret, s.opts.TTL)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	s.opts.set(c, token)
	return nil
}

func (s *CookieStore) Clear(c *gin.Context) error {
	s.opts.expire(c)
	return nil
}
