package service

import (
	"context"       // Request-scoped cancellation
	"fmt"           // Error wrapping
	"io"            // Streaming photo bytes
	"path"          // Slash-separated key handling
	"path/filepath" // OS path handling
	"regexp"        // Extension charset
	"strings"       // String helpers
	"unicode/utf8"  // Rune-safe length limits

	"photo_share/internal/domain"  // Photo and User models
	"photo_share/internal/storage" // Photo byte storage

	"github.com/google/uuid"     // Random identifiers
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

const (
	maxCaptionLen  = 200 // Runes
	maxFilenameLen = 255 // Bytes, matches the Photo column
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// UploadInput is one submitted upload form.
type UploadInput struct {
	Filename    string    // Client filename, display only
	Caption     string    // Optional caption
	ContentType string    // Client-declared MIME type
	Content     io.Reader // nil when the form carried no file part
}

// UploadService stores uploaded bytes and records their metadata.
type UploadService struct {
	db      *gorm.DB        // Photo rows
	store   storage.Storage // Photo bytes
	gallery *GalleryService // Listing cache to invalidate, may be nil
}

// NewUploadService wires an UploadService. gallery may be nil.
func NewUploadService(db *gorm.DB, store storage.Storage, gallery *GalleryService) *UploadService {
	return &UploadService{db: db, store: store, gallery: gallery}
}

// Upload validates the form, writes the file under the owner's folder and
// inserts the Photo row. Validation failures touch neither storage nor the
// database.
func (s *UploadService) Upload(ctx context.Context, owner *domain.User, in UploadInput) (*domain.Photo, error) {
	if in.Content == nil {
		return nil, ErrMissingFile
	}
	filename := displayName(in.Filename)
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	caption := strings.TrimSpace(in.Caption)
	if utf8.RuneCountInString(caption) > maxCaptionLen {
		return nil, fmt.Errorf("%w: caption must be at most %d characters", ErrInvalidInput, maxCaptionLen)
	}

	key := StorageKey(owner.Username, filename)
	size, err := s.store.Put(ctx, key, in.Content, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	photo := domain.Photo{
		UserID:      owner.ID,
		Filename:    filename,
		StorageKey:  key,
		ContentType: in.ContentType,
		Size:        size,
	}
	if caption != "" {
		photo.Caption = &caption
	}
	if err := s.db.WithContext(ctx).Create(&photo).Error; err != nil {
		if derr := s.store.Delete(ctx, key); derr != nil {
			logrus.WithFields(logrus.Fields{"storage_key": key, "error": derr.Error()}).Warn("Orphaned upload not removed")
		}
		return nil, fmt.Errorf("record photo: %w", err)
	}

	if s.gallery != nil {
		s.gallery.Invalidate(ctx, owner.ID)
	}
	logrus.WithFields(logrus.Fields{
		"user_id":     owner.ID,
		"photo_id":    photo.ID,
		"storage_key": key,
		"size":        size,
	}).Info("Photo uploaded")
	return &photo, nil
}

// StorageKey builds "<username>/<uuid><ext>". Only a short alphanumeric
// extension survives from the client filename.
func StorageKey(username, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return username + "/" + uuid.NewString() + ext
}

// displayName strips any directory part a client sent and bounds the length.
func displayName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	for len(name) > maxFilenameLen {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}
