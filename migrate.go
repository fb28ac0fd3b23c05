package goMiniAuth

import (
	"github.com/MrEthical07/goMiniAuth/internal/stores"
	"gorm.io/gorm"
)

// AutoMigrate creates the users and sessions tables. It is meant for
// development and tests; production schemas are managed outside the engine.
func AutoMigrate(db *gorm.DB) error {
	return stores.AutoMigrate(db)
}
