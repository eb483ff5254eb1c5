package api

import (
	"encoding/base64" // Cookie-safe encoding
	"net/http"        // Cookie attributes
	"strings"         // Splitting the stored value

	"github.com/gin-gonic/gin" // Gin web framework
)

const (
	flashCookie      = "flash"
	secureCookiesKey = "secure_cookies" // Context flag set by NewRouter
)

// Flash kinds
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Kind    string
	Message string
}

// setFlash queues a message for the next page view
func setFlash(c *gin.Context, kind, message string) {
	value := base64.RawURLEncoding.EncodeToString([]byte(kind + "|" + message))
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, value, 60, "/", "", c.GetBool(secureCookiesKey), true)
}

// takeFlash returns the queued message, if any, and clears it
func takeFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, "", -1, "/", "", c.GetBool(secureCookiesKey), true) // Consume it

	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(string(decoded), "|")
	if !ok || message == "" {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}

// secureCookies marks the cookies the api package sets as HTTPS-only
func secureCookies(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(secureCookiesKey, secure)
		c.Next()
	}
}

// redirectWithFlash answers a form post with a flash message and a 303 redirect
func redirectWithFlash(c *gin.Context, kind, message, location string) {
	setFlash(c, kind, message)
	c.Redirect(http.StatusSeeOther, location)
}
