package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

// DatabaseManager owns the authority's connection pool. Production runs
// MySQL; a DSN ending in .db (or containing a sqlite scheme) opens an
// embedded SQLite database for development and tests.
type DatabaseManager struct {
	DB       *gorm.DB
	LogLevel LogLevel
}

func New(dsn string, maxConnection int) (*DatabaseManager, error) {
	dm := &DatabaseManager{}

	db, err := gorm.Open(dialectorFor(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxConnection)
	sqlDB.SetMaxIdleConns(maxConnection)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping pool: %w", err)
	}

	dm.DB = db
	return dm, nil
}

func dialectorFor(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "sqlite:") {
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	}
	if strings.HasSuffix(strings.SplitN(dsn, "?", 2)[0], ".db") {
		return sqlite.Open(dsn)
	}
	return mysql.Open(dsn)
}

func (dm *DatabaseManager) Close() error {
	sqlDB, err := dm.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (dm *DatabaseManager) Exec(ctx context.Context, fn func(db *gorm.DB) error) error {
	gormLogLevel := logger.Silent
	switch dm.LogLevel {
	case LogLevelError:
		gormLogLevel = logger.Error
	case LogLevelWarn:
		gormLogLevel = logger.Warn
	case LogLevelInfo:
		gormLogLevel = logger.Info
	}

	db := dm.DB.Session(&gorm.Session{
		Context: ctx,
		Logger:  logger.Default.LogMode(gormLogLevel),
	})
	return fn(db)
}
