package api

import (
	"errors"   // Matching service errors
	"net/http" // HTTP status codes

	"photo_share/internal/service" // Account logic
	"photo_share/internal/session" // Session stores

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// SignupForm is the posted signup form
type SignupForm struct {
	Username string `form:"username" binding:"required"`             // Login identifier
	Email    string `form:"email" binding:"omitempty,email,max=254"` // Optional email
	Password string `form:"password" binding:"required"`             // Plain password, hashed by the service
}

// LoginForm is the posted login form
type LoginForm struct {
	Username string `form:"username" binding:"required"` // Login identifier
	Password string `form:"password" binding:"required"` // Plain password
}

// IndexHandler sends signed-in users to their gallery and everyone else to login
func IndexHandler(store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := store.Load(c); err == nil {
			c.Redirect(http.StatusFound, "/home")
			return
		}
		c.Redirect(http.StatusFound, "/login")
	}
}

// SignupPageHandler renders the signup form
func SignupPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		render(c, http.StatusOK, "signup.html", "Sign up", nil)
	}
}

// SignupHandler creates an account and sends the user to login
func SignupHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form SignupForm
		if err := c.ShouldBind(&form); err != nil {
			redirectWithFlash(c, FlashError, "Invalid request.", "/signup")
			return
		}
		_, err := accounts.Signup(c.Request.Context(), service.SignupInput{
			Username: form.Username,
			Email:    form.Email,
			Password: form.Password,
		})
		switch {
		case err == nil:
			redirectWithFlash(c, FlashSuccess, "Account created, please log in.", "/login")
		case errors.Is(err, service.ErrDuplicateAccount):
			redirectWithFlash(c, FlashError, "Username already taken!", "/signup")
		case isInvalidInput(err):
			redirectWithFlash(c, FlashError, inputMessage(err), "/signup")
		default:
			internalError(c, "Signup failed", err)
		}
	}
}

// LoginPageHandler renders the login form
func LoginPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		render(c, http.StatusOK, "login.html", "Log in", nil)
	}
}

// LoginHandler verifies credentials and stores the user in the session
func LoginHandler(accounts *service.AccountService, store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form LoginForm
		if err := c.ShouldBind(&form); err != nil {
			redirectWithFlash(c, FlashError, "Invalid request.", "/login")
			return
		}
		user, err := accounts.Login(c.Request.Context(), form.Username, form.Password)
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("username", service.NormalizeUsername(form.Username)).Info("Login rejected")
			redirectWithFlash(c, FlashError, "Invalid credentials!", "/login")
			return
		}
		if err != nil {
			internalError(c, "Login failed", err)
			return
		}
		if err := store.Save(c, user.ID); err != nil {
			internalError(c, "Session save failed", err)
			return
		}
		logrus.WithField("user_id", user.ID).Info("User logged in")
		c.Redirect(http.StatusSeeOther, "/home")
	}
}

// LogoutHandler clears the session whether or not one exists
func LogoutHandler(store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Clear(c); err != nil {
			logrus.WithField("error", err.Error()).Warn("Session clear failed")
		}
		setFlash(c, FlashSuccess, "You have been logged out.")
		c.Redirect(http.StatusFound, "/login")
	}
}
