package session

import (
	"errors"  // Sentinel errors
	"fmt"     // Error wrapping
	"strconv" // User id encoding
	"time"    // Session lifetimes

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/google/uuid"       // Random identifiers
	"github.com/redis/go-redis/v9" // Redis client
)

const redisKeyPrefix = "session:" // Followed by the cookie's uuid

// RedisStore keeps an opaque random id in the cookie and the user id in
// Redis, so sessions can be revoked server-side.
type RedisStore struct {
	rdb  redis.Cmdable // Session entries
	opts CookieOptions // Cookie attributes
}

// NewRedisStore builds a RedisStore whose entries live for ttl.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration, secure bool) *RedisStore {
	return &RedisStore{
		rdb:  rdb,
		opts: CookieOptions{Name: "session_id", TTL: ttl, Secure: secure},
	}
}

func (s *RedisStore) Load(c *gin.Context) (uint, error) {
	id, err := s.sessionID(c)
	if err != nil {
		return 0, err
	}
	val, err := s.rdb.Get(c.Request.Context(), redisKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	userID, err := strconv.ParseUint(val, 10, 64)
	if err != nil || userID == 0 {
		return 0, ErrNoSession
	}
	return uint(userID), nil
}

func (s *RedisStore) Save(c *gin.Context, userID uint) error {
	ctx := c.Request.Context()
	// A fresh id on every login so a pre-auth cookie can never be promoted.
	if old, err := s.sessionID(c); err == nil {
		_ = s.rdb.Del(ctx, redisKeyPrefix+old).Err()
	}
	id := uuid.NewString()
	if err := s.rdb.Set(ctx, redisKeyPrefix+id, strconv.FormatUint(uint64(userID), 10), s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.opts.set(c, id)
	return nil
}

func (s *RedisStore) Clear(c *gin.Context) error {
	defer s.opts.expire(c)
	id, err := s.sessionID(c)
	if err != nil {
		return nil
	}
	if err := s.rdb.Del(c.Request.Context(), redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *RedisStore) sessionID(c *gin.Context) (string, error) {
	raw, err := c.Cookie(s.opts.Name)
	if err != nil {
		return "", ErrNoSession
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", ErrNoSession
	}
	return raw, nil
}
