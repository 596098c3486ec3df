package models

import "time"

const (
	VehicleStatusListed = "LISTED"
	VehicleStatusSold   = "SOLD"
)

type Vehicle struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	SellerID uint64 `gorm:"not null;index"`

	Title          string `gorm:"type:varchar(200);not null"`
	RegistrationNo string `gorm:"type:varchar(40);index"`
	Status         string `gorm:"type:varchar(20);not null;default:'LISTED';index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}
