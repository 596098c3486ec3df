package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationBidPlaced     = "bid_placed"
	NotificationOutbid        = "outbid"
	NotificationAuctionExtend = "auction_extended"
	NotificationAuctionEnded  = "auction_ended"
	NotificationBidApproved   = "bid_approved"
	NotificationBidRejected   = "bid_rejected"
)

// Notification is the persisted outbox row for every fire-and-forget event.
// Delivery to the SMS/push provider is best-effort; a failed send leaves the
// row in place with LastError set and never affects the bid that caused it.
type Notification struct {
	ID  uint64 `gorm:"primaryKey;autoIncrement"`
	Ref string `gorm:"type:varchar(36);not null;uniqueIndex"`

	UserID    uint64 `gorm:"not null;index"`
	AuctionID uint64 `gorm:"index"`

	Kind    string         `gorm:"type:varchar(40);not null;index"`
	Payload datatypes.JSON `gorm:"type:jsonb"`

	Status    string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	SentAt    *time.Time `gorm:"type:timestamptz"`
	LastError string     `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Notification) TableName() string {
	return "notifications"
}
