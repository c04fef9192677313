package mysql

import (
	"fmt"

	gormstore "github.com/barekit/givingfaq/pkg/store/gorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// New creates a new MySQL snapshot store.
func New(dsn string) (*gormstore.Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}
	return gormstore.New(db)
}
