package service

import (
	"errors" // Sentinel errors
)

// Errors surfaced to the HTTP layer. Handlers match them with errors.Is.
var (
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFile        = errors.New("no file selected")
	ErrEmptyFilename      = errors.New("file name is empty")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserNotFound       = errors.New("user not found")
	ErrPhotoNotFound      = errors.New("photo not found")
)
