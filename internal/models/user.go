package models

import "time"

const (
	RoleAdmin  = "ADMIN"
	RoleBuyer  = "BUYER"
	RoleSeller = "SELLER"
	RoleDealer = "DEALER"
)

type User struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"type:varchar(120);not null"`
	Phone string `gorm:"type:varchar(20);index"`
	Role  string `gorm:"type:varchar(20);not null;default:'BUYER';index"`

	// Cleared by admins when a user is blocked from the bidding floor.
	IsEligibleForBid bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
