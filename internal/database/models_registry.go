package database

import "marketplace/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Listing{},
		&models.Photo{},
		&models.Tag{},
		&models.TradeHistory{},
		&models.Review{},
	}
}
