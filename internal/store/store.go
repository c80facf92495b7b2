// Package store persists rendered reports. Persistence is best effort:
// callers log failures and never fail a request because of them.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned by Get for unknown ids
var ErrNotFound = errors.New("record not found")

// Store saves and retrieves report records
type Store interface {
	Save(ctx context.Context, rec *model.Record) error
	Get(ctx context.Context, id string) (*model.Record, error)
	List(ctx context.Context, limit int) ([]model.Record, error)
	Close() error
}

// GormStore implements Store over MySQL or SQLite
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects using the configured driver. An empty driver returns
// (nil, nil): persistence disabled.
func Open(cfg model.StoreConfig) (Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "":
		return nil, nil
	case "mysql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("mysql store requires a DSN")
		}
		dialector = mysql.Open(mysqlDSN(cfg.DSN))
	case "sqlite", "sqlite3":
		path := cfg.DSN
		if path == "" {
			path = filepath.Join(filepath.Dir(model.DefaultConfig().Cache.DiskDir), "clearview.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unknown store driver: %s (supported: mysql, sqlite)", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger()})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	s, err := NewGormStore(db)
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Driver).Msg("report store opened")
	return s, nil
}

// NewGormStore wraps an open connection and migrates the schema
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&model.Record{}); err != nil {
		return nil, fmt.Errorf("migrate records: %w", err)
	}
	return &GormStore{db: db, now: time.Now}, nil
}

// Save inserts a record, assigning an id and timestamp when missing
func (s *GormStore) Save(ctx context.Context, rec *model.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	if rec.Kind == "" {
		rec.Kind = model.RecordKindReport
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// Get loads a record by id
func (s *GormStore) Get(ctx context.Context, id string) (*model.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var rec model.Record
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &rec, nil
}

// List returns the newest records without their blobs
func (s *GormStore) List(ctx context.Context, limit int) ([]model.Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var recs []model.Record
	err := s.db.WithContext(ctx).
		Omit("blob").
		Order("created_at desc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// Close releases the underlying connection pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// mysqlDSN ensures parseTime and a utf8mb4 charset
func mysqlDSN(dsn string) string {
	dsn = ensureParam(dsn, "parseTime", "true")
	if !strings.Contains(dsn, "charset=") {
		dsn = ensureParam(dsn, "charset", "utf8mb4")
		dsn = ensureParam(dsn, "collation", "utf8mb4_unicode_ci")
	}
	return dsn
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}

// zerologWriter routes gorm's logger into zerolog
type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...interface{}) {
	log.Warn().Str("component", "store").Msgf(format, args...)
}

func gormLogger() logger.Interface {
	return logger.New(zerologWriter{}, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
