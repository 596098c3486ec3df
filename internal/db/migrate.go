package db

import (
	"tractorbid/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Membership{},
		&models.EarnestMoneyDeposit{},
		&models.Auction{},
		&models.Bid{},
		&models.Notification{},
	)
}
