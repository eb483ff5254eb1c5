// Package service holds the account, gallery and upload logic behind the
// HTTP handlers.
package service

import (
	"context" // Request-scoped cancellation
	"errors"  // Matching gorm errors
	"fmt"     // Error wrapping
	"regexp"  // Username charset
	"strings" // Normalisation

	"photo_share/internal/domain" // User model

	"github.com/go-playground/validator/v10" // Email format validation
	"github.com/sirupsen/logrus"             // Logging library
	"golang.org/x/crypto/bcrypt"             // Password hashing
	"gorm.io/gorm"                           // GORM ORM library
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,50}$`)
	validate        = validator.New()
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything longer
	maxEmailLen    = 254
)

// SignupInput is the raw signup form.
type SignupInput struct {
	Username string // Login identifier, lower-cased before storage
	Email    string // Optional
	Password string // Plain text, never stored
}

// AccountService creates accounts and verifies credentials.
type AccountService struct {
	db        *gorm.DB // User rows
	cost      int      // bcrypt cost for new hashes
	dummyHash []byte   // Compared against when the username is unknown
}

// NewAccountService returns an AccountService hashing with bcrypt.DefaultCost.
func NewAccountService(db *gorm.DB) *AccountService {
	s := &AccountService{db: db}
	return s.WithHashCost(bcrypt.DefaultCost)
}

// WithHashCost overrides the bcrypt cost.
func (s *AccountService) WithHashCost(cost int) *AccountService {
	s.cost = cost
	// Same cost as real hashes so unknown usernames take as long as wrong passwords.
	hash, err := bcrypt.GenerateFromPassword([]byte("photo_share unknown user"), cost)
	if err != nil {
		logrus.WithField("error", err.Error()).Warn("Dummy password hash failed")
	}
	s.dummyHash = hash
	return s
}

// NormalizeUsername trims and lower-cases a username so lookups are case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Signup validates the form, rejects taken usernames or emails and stores a
// new user with a salted bcrypt hash.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	username := NormalizeUsername(in.Username)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-50 letters, digits or underscores", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen || len(in.Password) > maxPasswordLen {
		return nil, fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, minPasswordLen, maxPasswordLen)
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username)
	if email != nil {
		q = q.Or("email = ?", *email)
	}
	var taken int64
	if err := q.Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("check existing account: %w", err)
	}
	if taken > 0 {
		return nil, ErrDuplicateAccount
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{Username: username, Email: email, Password: string(hash)}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// Lost a race with a concurrent signup for the same name.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("Account created")
	return &user, nil
}

// Login returns the user whose password matches, or ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", NormalizeUsername(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password)) // Burn the same time as a real check
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetUser resolves a session user id.
func (s *AccountService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

func normalizeEmail(raw string) (*string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return nil, nil
	}
	if len(email) > maxEmailLen || validate.Var(email, "email") != nil {
		return nil, fmt.Errorf("%w: email address is not valid", ErrInvalidInput)
	}
	return &email, nil
}
