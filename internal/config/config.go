package config

import (
	"errors"  // For validation errors
	"fmt"     // For DSN formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For string normalisation

	"github.com/joho/godotenv" // For loading .env files
)

// Supported backends
const (
	DBDriverSQLite   = "sqlite"
	DBDriverMySQL    = "mysql"
	DBDriverPostgres = "postgres"

	SessionBackendCookie = "cookie"
	SessionBackendRedis  = "redis"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// minSecretLen is the shortest session secret accepted at startup.
const minSecretLen = 16

// Config holds the application configuration
type Config struct {
	AppPort         string // Application port
	IsProd          bool   // Is production environment
	SessionSecret   string // Secret used to sign session cookies
	SessionBackend  string // cookie or redis
	SessionTTLHours int    // Session lifetime in hours
	DBDriver        string // sqlite, mysql or postgres
	DBPath          string // SQLite database file
	DBUser          string // Database user
	DBPassword      string // Database password
	DBHost          string // Database host
	DBPort          string // Database port
	DBName          string // Database name
	StorageDriver   string // local or s3
	UploadDir       string // Root of the per-user upload folders
	S3Bucket        string // Bucket for the s3 storage driver
	S3Region        string // Region for the s3 storage driver
	S3Endpoint      string // Optional custom endpoint (MinIO and friends)
	S3AccessKey     string // Static access key, optional
	S3SecretKey     string // Static secret key, optional
	RedisAddr       string // Redis server address
	RedisPass       string // Redis password
	RedisDB         int    // Redis database number
	GalleryCache    bool   // Cache gallery listings in Redis
	MaxUploadMB     int64  // Upload size limit in megabytes
	LoginRatePerMin int    // Allowed login/signup attempts per client per minute
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = getEnv("PORT", "5000") // Hosting platforms usually inject PORT
	}

	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:         port,
		IsProd:          os.Getenv("IS_PROD") == "true",
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		SessionBackend:  strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendCookie)),
		SessionTTLHours: getEnvInt("SESSION_TTL_HOURS", 24),
		DBDriver:        strings.ToLower(getEnv("DB_DRIVER", DBDriverSQLite)),
		DBPath:          getEnv("DB_PATH", "site.db"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          os.Getenv("DB_PORT"),
		DBName:          os.Getenv("DB_NAME"),
		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverLocal)),
		UploadDir:       getEnv("UPLOAD_DIR", "static/uploads"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        os.Getenv("S3_REGION"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPass:       os.Getenv("REDIS_PASS"),
		RedisDB:         redisDB,
		GalleryCache:    os.Getenv("GALLERY_CACHE") == "true",
		MaxUploadMB:     int64(getEnvInt("MAX_UPLOAD_MB", 10)),
		LoginRatePerMin: getEnvInt("LOGIN_RATE_PER_MIN", 10),
	}
}

// Validate reports settings that would leave the server half-configured.
func (c *Config) Validate() error {
	var errs []error
	if len(c.SessionSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSecretLen))
	}
	switch c.SessionBackend {
	case SessionBackendCookie:
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("SESSION_BACKEND=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}
	switch c.DBDriver {
	case DBDriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case DBDriverMySQL, DBDriverPostgres:
		if c.DBHost == "" || c.DBName == "" {
			errs = append(errs, fmt.Errorf("DB_HOST and DB_NAME are required for %s", c.DBDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}
	switch c.StorageDriver {
	case StorageDriverLocal:
		if c.UploadDir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR is required for local storage"))
		}
	case StorageDriverS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("STORAGE_DRIVER=s3 requires S3_BUCKET"))
		}
		if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
			errs = append(errs, errors.New("S3_ACCESS_KEY and S3_SECRET_KEY must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.GalleryCache && c.RedisAddr == "" {
		errs = append(errs, errors.New("GALLERY_CACHE=true requires REDIS_ADDR"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	if c.SessionTTLHours <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_HOURS must be positive"))
	}
	return errors.Join(errs...)
}

// DSN builds the Data Source Name for the configured driver
func (c *Config) DSN() string {
	switch c.DBDriver {
	case DBDriverMySQL:
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
	case DBDriverPostgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	default:
		return c.DBPath
	}
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.SessionBackend == SessionBackendRedis || c.GalleryCache
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
