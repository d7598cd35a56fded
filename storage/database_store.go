package storage

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"nftcache.app/config"
	"nftcache.app/errors"
)

// Record is one persisted key-value row
type Record struct {
	Key       string    `gorm:"primaryKey"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the default table name
func (Record) TableName() string {
	return "cache_records"
}

// DatabaseStore persists entries in a relational database through GORM.
type DatabaseStore struct {
	db *gorm.DB
}

func NewDatabaseStore(cfg *config.DatabaseConfig) (*DatabaseStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "postgres":
		dialector = postgres.Open(cfg.GetDSN())
	default:
		return nil, errors.NewConfigurationError("unknown database driver: "+cfg.Driver, nil)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, errors.NewDatabaseError("failed to connect to database", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, errors.NewDatabaseError("failed to migrate cache records table", err)
	}

	slog.Info("Database store initialized", "driver", cfg.Driver)

	return &DatabaseStore{db: db}, nil
}

func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var record Record
	err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, errors.NewDatabaseError("failed to read cache record", err)
	}
	return record.Value, true, nil
}

func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte) error {
	record := Record{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return errors.NewDatabaseError("failed to write cache record", err)
	}
	return nil
}

func (s *DatabaseStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Delete(&Record{}, "key = ?", key).Error
	if err != nil {
		return errors.NewDatabaseError("failed to delete cache record", err)
	}
	return nil
}

func (s *DatabaseStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
