// Package session keeps the authenticated-user marker of a request. The
// marker lives behind Store so handlers never touch cookies or Redis keys
// directly.
package session

import (
	"errors"   // Sentinel errors
	"net/http" // Cookie attributes
	"time"     // Session lifetimes

	"github.com/gin-gonic/gin" // Gin web framework
)

// ErrNoSession is returned by Store.Load when the request carries no valid
// session.
var ErrNoSession = errors.New("no session")

// Store loads, saves and clears the session identity of a request.
type Store interface {
	Load(c *gin.Context) (uint, error)
	Save(c *gin.Context, userID uint) error
	Clear(c *gin.Context) error
}

// CookieOptions control the session cookie attributes shared by all stores.
type CookieOptions struct {
	Name   string        // Cookie name
	TTL    time.Duration // Max-Age of the cookie
	Secure bool          // HTTPS only
}

func (o CookieOptions) set(c *gin.Context, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(o.Name, value, int(o.TTL.Seconds()), "/", "", o.Secure, true)
}

func (o CookieOptions) expire(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(o.Name, "", -1, "/", "", o.Secure, true)
}
