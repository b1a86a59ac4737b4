package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// NewTest opens an isolated in-memory database for tests. The pool is
// pinned to one connection: every in-memory sqlite connection is its own
// database, so a second pooled connection would see no tables.
func NewTest() (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return conn, nil
}
