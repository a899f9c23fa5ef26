package config

import (
	"fmt"
	"strings"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process-wide store handle. Prefer Acquire/GetDB over touching it directly.
var DB *gorm.DB

var dbMu sync.Mutex

// Acquire opens the shared store on first use and returns the same handle on
// every later call until Release is called.
func Acquire(cfg *Config) (*gorm.DB, error) {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB != nil {
		return DB, nil
	}
	if cfg == nil || cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	gormCfg := &gorm.Config{
		// Surfaces unique-constraint violations as gorm.ErrDuplicatedKey.
		TranslateError: true,
	}
	if cfg.IsProduction() {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(Dialector(cfg.DatabaseURL), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if isSQLite(cfg.DatabaseURL) {
		// sqlite allows one writer; a single connection also keeps :memory: databases shared.
		sqlDB.SetMaxOpenConns(1)
	}

	DB = db
	return DB, nil
}

// Release closes the shared store. Calling it more than once, or before
// Acquire, is a no-op.
func Release() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	DB = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	dbMu.Lock()
	defer dbMu.Unlock()
	return DB
}

// SetDB sets the database instance (primarily for testing)
func SetDB(db *gorm.DB) {
	dbMu.Lock()
	DB = db
	dbMu.Unlock()
}

// Dialector picks the gorm driver from the database URL. "sqlite:" prefixed URLs,
// ":memory:" and *.db paths use sqlite, everything else is treated as postgres.
func Dialector(databaseURL string) gorm.Dialector {
	if isSQLite(databaseURL) {
		return sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite:"))
	}
	return postgres.Open(databaseURL)
}

func isSQLite(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "sqlite:") ||
		databaseURL == ":memory:" ||
		strings.HasSuffix(databaseURL, ".db")
}
