package common

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"unionhall/config"
)

// ConnectDb opens the main sqlite database.
func ConnectDb(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database == "" {
		return nil, fmt.Errorf("database not set")
	}
	db, err := open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db %s: %w", cfg.Database, err)
	}
	log.Println("opened sqlite db at:", cfg.Database)
	return db, nil
}

// ConnectAnalyticsDb opens the separate analytics database. It returns nil
// when analytics is not configured or cannot be opened; callers treat nil as
// analytics disabled.
func ConnectAnalyticsDb(cfg *config.Config) *gorm.DB {
	if cfg.AnalyticsDatabase == "" {
		log.Println("analytics_database not set - analytics will be disabled")
		return nil
	}
	db, err := open(cfg.AnalyticsDatabase)
	if err != nil {
		log.Println("Error opening analytics sqlite db: " + err.Error())
		return nil
	}
	log.Println("opened analytics sqlite db at:", cfg.AnalyticsDatabase)
	return db
}

func open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
}
