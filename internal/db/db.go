package db

import (
	"fmt"     // Error wrapping
	"strings" // DSN manipulation
	"time"    // Slow query threshold

	"photo_share/internal/config" // Driver names

	"github.com/glebarez/sqlite" // Pure Go SQLite driver for GORM
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/driver/postgres"    // PostgreSQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM logger levels
)

// Open connects to the database selected by driver
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DBDriverSQLite:
		dialector = sqlite.Open(withSQLitePragmas(dsn))
	case config.DBDriverMySQL:
		dialector = mysql.Open(dsn)
	case config.DBDriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true, // Map unique violations to gorm.ErrDuplicatedKey
		Logger:         newLogger(logrus.StandardLogger()),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == config.DBDriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1) // SQLite allows a single writer
	}
	return db, nil
}

// newLogger reports slow queries and errors through w. Missing rows are normal
// for unknown usernames and stale sessions and are not logged.
func newLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// withSQLitePragmas turns on foreign key enforcement, which SQLite leaves off by default
func withSQLitePragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
