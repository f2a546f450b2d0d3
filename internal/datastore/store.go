// Package datastore persists configuration history, the model library and the
// TIFF work queue in an embedded SQLite database.
//
// Every operation opens a fresh connection and closes it before returning;
// no handle outlives a call.
package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// Store is the embedded relational store.
type Store struct {
	dbPath    string
	modelsDir string
	log       logger.Logger

	setupMu   sync.Mutex
	setupDone bool
}

// New returns a store backed by the SQLite file at dbPath. Imported models
// are copied into modelsDir. Nothing is touched on disk until the first call.
func New(dbPath, modelsDir string, log logger.Logger) *Store {
	if log == nil {
		log = logger.Global().Module("datastore")
	}
	return &Store{dbPath: dbPath, modelsDir: modelsDir, log: log}
}

// Path returns the database file location.
func (s *Store) Path() string { return s.dbPath }

// open creates the parent directory and opens a new connection.
func (s *Store) open(ctx context.Context) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return nil, dbError(err, "create-data-dir", "path", filepath.Dir(s.dbPath))
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", s.dbPath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(s.log, slowQueryThreshold),
	})
	if err != nil {
		return nil, dbError(err, "open")
	}
	return db.WithContext(ctx), nil
}

// withDB runs fn on a fresh connection that is closed afterwards.
func (s *Store) withDB(ctx context.Context, operation string, fn func(db *gorm.DB) error) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				s.log.Warn("failed to close database connection",
					logger.String("operation", operation),
					logger.Error(cerr))
			}
		}
	}()
	return fn(db)
}

// ready runs Setup once per process before the first data operation.
func (s *Store) ready(ctx context.Context) error {
	s.setupMu.Lock()
	done := s.setupDone
	s.setupMu.Unlock()
	if done {
		return nil
	}
	return s.Setup(ctx)
}

// Setup creates missing tables, applies additive migrations and seeds the
// default configuration row. It is idempotent and serialized internally.
func (s *Store) Setup(ctx context.Context) error {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	err := s.withDB(ctx, "setup", func(db *gorm.DB) error {
		for _, ddl := range createTableStatements {
			if err := db.Exec(ddl).Error; err != nil {
				return dbError(err, "create-table")
			}
		}
		if err := migrate(db, s.log); err != nil {
			return err
		}
		return seedDefaultConfig(db)
	})
	if err != nil {
		return err
	}
	s.setupDone = true
	return nil
}

func seedDefaultConfig(db *gorm.DB) error {
	var count int64
	if err := db.Model(&AppConfig{}).Count(&count).Error; err != nil {
		return dbError(err, "count-configuration")
	}
	if count > 0 {
		return nil
	}
	cfg := DefaultConfig()
	if err := db.Create(&cfg).Error; err != nil {
		return dbError(err, "seed-configuration")
	}
	return nil
}
