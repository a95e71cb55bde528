package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"AccessDeck/internal/webconfig"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the process-wide handle used by every repo constructor.
var DB *gorm.DB

// Init opens the configured database and migrates the schema.
func Init(cfg webconfig.DatabaseConfig, debug bool) error {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case webconfig.DriverPostgres:
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is empty")
		}
		dialector = postgres.Open(cfg.PostgresDSN)
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o700); err != nil {
			return fmt.Errorf("create database dir: %w", err)
		}
		dialector = sqlite.Open(cfg.SQLitePath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	}
	return open(dialector, debug)
}

// InitMemory opens a private in-memory SQLite database. Used by the check
// command and by tests.
func InitMemory() error {
	if err := open(sqlite.Open(":memory:"), false); err != nil {
		return err
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	// every connection to ":memory:" is a separate database
	sqlDB.SetMaxOpenConns(1)
	return nil
}

func open(dialector gorm.Dialector, debug bool) error {
	level := gormlogger.Silent
	if debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(
		&User{},
		&Setting{},
		&AuditLog{},
		&Assignment{},
		&RemediationRun{},
		&BatchSession{},
		&BatchFile{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	DB = db
	return nil
}

// Ping reports whether the database answers.
func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.Close()
	}
	DB = nil
}
