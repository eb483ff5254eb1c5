package service

import (
	"context" // Request-scoped cancellation
	"errors"  // Matching gorm errors
	"fmt"     // Error wrapping
	"strconv" // Cache key formatting
	"time"    // Cache TTL

	"photo_share/internal/domain" // Photo and User models
	"photo_share/internal/utils"  // Redis cache helpers

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

const galleryCacheTTL = 60 * time.Second

// GalleryService lists the photos owned by a user. With a Redis client the
// listing is cached per user until the next upload.
type GalleryService struct {
	db  *gorm.DB      // Photo rows
	rdb redis.Cmdable // Listing cache, nil when disabled
}

// NewGalleryService returns a GalleryService; rdb may be nil to disable caching.
func NewGalleryService(db *gorm.DB, rdb redis.Cmdable) *GalleryService {
	return &GalleryService{db: db, rdb: rdb}
}

// galleryVersionKey holds a per-user counter bumped on every invalidation.
// Listings are cached under the counter value read before the database query,
// so a fill that raced an upload lands on a key nobody reads any more.
func galleryVersionKey(userID uint) string {
	return "gallery:user:" + strconv.FormatUint(uint64(userID), 10) + ":ver"
}

func galleryCacheKey(userID uint, version int64) string {
	return "gallery:user:" + strconv.FormatUint(uint64(userID), 10) + ":v" + strconv.FormatInt(version, 10)
}

// ListPhotos returns every photo owned by owner in upload order.
func (s *GalleryService) ListPhotos(ctx context.Context, owner *domain.User) ([]domain.Photo, error) {
	version, cached := s.cacheVersion(ctx, owner.ID)
	if cached {
		var photos []domain.Photo
		found, err := utils.GetCache(ctx, s.rdb, galleryCacheKey(owner.ID, version), &photos)
		if err != nil {
			logrus.WithFields(logrus.Fields{"user_id": owner.ID, "error": err.Error()}).Warn("Gallery cache read failed")
		} else if found {
			return photos, nil
		}
	}

	photos := []domain.Photo{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", owner.ID).
		Order("id asc").
		Find(&photos).Error; err != nil {
		return nil, fmt.Errorf("list photos of user %d: %w", owner.ID, err)
	}

	if cached {
		s.fillCache(ctx, owner.ID, version, photos)
	}
	return photos, nil
}

// cacheVersion reads the listing version of a user. It reports false when
// caching is off or Redis cannot be reached.
func (s *GalleryService) cacheVersion(ctx context.Context, userID uint) (int64, bool) {
	if s.rdb == nil {
		return 0, false
	}
	version, err := s.rdb.Get(ctx, galleryVersionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true // Never invalidated
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Gallery cache version read failed")
		return 0, false
	}
	return version, true
}

func (s *GalleryService) fillCache(ctx context.Context, userID uint, version int64, photos []domain.Photo) {
	if err := utils.SetCache(ctx, s.rdb, galleryCacheKey(userID, version), photos, galleryCacheTTL); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Gallery cache write failed")
	}
}

// GetPhoto returns the photo only if owner owns it.
func (s *GalleryService) GetPhoto(ctx context.Context, owner *domain.User, photoID uint) (*domain.Photo, error) {
	var photo domain.Photo
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", photoID, owner.ID).
		First(&photo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find photo %d: %w", photoID, err)
	}
	return &photo, nil
}

// Invalidate moves the user to a new listing version and drops the current one.
func (s *GalleryService) Invalidate(ctx context.Context, userID uint) {
	if s.rdb == nil {
		return
	}
	version, err := s.rdb.Incr(ctx, galleryVersionKey(userID)).Result()
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Gallery cache invalidation failed")
		return
	}
	if err := utils.DeleteCache(ctx, s.rdb, galleryCacheKey(userID, version-1)); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Gallery cache cleanup failed")
	}
}
