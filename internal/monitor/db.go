package monitor

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB opens (creating if necessary) the sqlite audit-log database at
// path and migrates the RequestLog table. Pass ":memory:" for an ephemeral
// store, useful for tests and for deployments that never enable logging.
func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RequestLog{}); err != nil {
		return nil, err
	}
	return db, nil
}
