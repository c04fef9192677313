package sqlite

import (
	"fmt"

	gormstore "github.com/barekit/givingfaq/pkg/store/gorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New creates a new SQLite snapshot store.
func New(dsn string) (*gormstore.Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return gormstore.New(db)
}
