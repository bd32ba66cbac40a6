package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is the row backing one slot key.
type Record struct {
	Key       string `gorm:"column:slot_key;primaryKey"`
	Value     string
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Record) TableName() string { return "slots" }

// SQL stores slot values in a gorm-managed table.
type SQL struct {
	db *gorm.DB
}

// NewSQL migrates the slots table and returns a slot on top of db.
func NewSQL(db *gorm.DB) (*SQL, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate slots table: %w", err)
	}
	return &SQL{db: db}, nil
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var rec Record
	if err := s.db.WithContext(ctx).First(&rec, "slot_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("failed to read slot: %w", err)
	}
	return []byte(rec.Value), nil
}

func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	rec := Record{Key: key, Value: string(value), UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *SQL) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
