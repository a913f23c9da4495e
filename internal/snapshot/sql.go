package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Record is the row backing one snapshot key. Value is stored as raw bytes
// (bytea on postgres, blob on sqlite) so Get returns exactly what was Set.
type Record struct {
	Key       string `gorm:"column:snapshot_key;primaryKey;size:255"`
	Value     []byte `gorm:"column:value;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Record) TableName() string {
	return "snapshots"
}

// SQLStore keeps snapshots in a single table keyed by snapshot key.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore migrates the snapshots table on db.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate snapshots table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// OpenSQL connects to postgres or sqlite. For sqlite the dsn is a file path
// or ":memory:".
func OpenSQL(backend, dsn string, isDevelopment bool) (*gorm.DB, error) {
	logLevel := logger.Error
	if isDevelopment {
		logLevel = logger.Info
	}

	var dialector gorm.Dialector
	switch backend {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql backend %q", backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if backend == "sqlite" {
		// every connection to ":memory:" is a separate database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("backend", backend).Info("Snapshot database connection established")
	return db, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	rec := Record{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("snapshot_key = ?", key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, unavailable("get", key, err)
	}
	return rec.Value, true, nil
}

func (s *SQLStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).Model(&Record{}).
		Where(`snapshot_key LIKE ? ESCAPE '\'`, likeEscaper.Replace(prefix)+"%").
		Pluck("snapshot_key", &keys).Error
	if err != nil {
		return nil, unavailable("list", prefix, err)
	}
	return keys, nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("snapshot_key = ?", key).Delete(&Record{}).Error; err != nil {
		return unavailable("delete", key, err)
	}
	return nil
}

// Ping checks the underlying connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable("ping", "", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable("ping", "", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
