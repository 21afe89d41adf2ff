package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is one persisted blob.
type Record struct {
	Key       string `gorm:"primaryKey"`
	Data      string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Record) TableName() string {
	return "snapshots"
}

// DBStore keeps blobs in a GORM table, so the client can share the sqlite
// file the rest of the tooling uses.
type DBStore struct {
	db *gorm.DB
}

// NewDBStore migrates the snapshots table and returns a store on it.
func NewDBStore(db *gorm.DB) (*DBStore, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate snapshots: %w", err)
	}
	return &DBStore{db: db}, nil
}

func (s *DBStore) Load(key string, v any) error {
	var rec Record
	err := s.db.Where(&Record{Key: key}).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return json.Unmarshal([]byte(rec.Data), v)
}

func (s *DBStore) Save(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	rec := Record{Key: key, Data: string(b), UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}
