package models

import "time"

const MembershipStatusActive = "active"

// Membership is owned by the billing side of the marketplace; the bidding
// core only ever reads it to answer "does this user hold an active plan".
type Membership struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;index"`

	PlanName  string    `gorm:"type:varchar(80)"`
	Status    string    `gorm:"type:varchar(20);not null;index"`
	StartDate time.Time `gorm:"type:timestamptz;not null"`
	EndDate   time.Time `gorm:"type:timestamptz;not null;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Membership) TableName() string {
	return "memberships"
}
