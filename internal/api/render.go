package api

import (
	"errors"   // Unwrapping service errors
	"net/http" // HTTP status codes
	"strings"  // Message trimming

	"photo_share/internal/middleware" // Current user lookup
	"photo_share/internal/service"    // Service errors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// render writes a page with the layout data every template expects
func render(c *gin.Context, status int, page, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	if _, ok := data["User"]; !ok {
		if user, ok := middleware.CurrentUser(c); ok {
			data["User"] = user
		}
	}
	if flash := takeFlash(c); flash != nil {
		data["Flash"] = flash
	}
	c.HTML(status, page, data)
}

// inputMessage extracts the user-facing part of a wrapped ErrInvalidInput
func inputMessage(err error) string {
	msg := err.Error()
	prefix := service.ErrInvalidInput.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return "Invalid input."
}

// internalError logs err and answers with a generic message
func internalError(c *gin.Context, what string, err error) {
	fields := logrus.Fields{"path": c.FullPath(), "error": err.Error()}
	if user, ok := middleware.CurrentUser(c); ok {
		fields["user_id"] = user.ID
	}
	logrus.WithFields(fields).Error(what)
	c.String(http.StatusInternalServerError, "Something went wrong, please try again.")
}

func isInvalidInput(err error) bool {
	return errors.Is(err, service.ErrInvalidInput)
}
