package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid rows are append-only. The only mutation ever applied is the
// IsWinningBid flip, which happens in the same transaction as the insert of
// the bid that displaces it.
type Bid struct {
	ID  uint64 `gorm:"primaryKey;autoIncrement"`
	Ref string `gorm:"type:varchar(36);not null;uniqueIndex"`

	AuctionID uint64 `gorm:"not null;index"`
	BidderID  uint64 `gorm:"not null;index"`
	Bidder    User

	Amount decimal.Decimal `gorm:"type:numeric(30,2);not null"`

	// Server-assigned, monotonic per auction.
	BidTime time.Time `gorm:"type:timestamptz;not null;index"`

	IsWinningBid bool `gorm:"not null;default:false;index"`

	// Marks admin bids placed on a SCHEDULED auction for operational testing.
	IsAdminTest bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Bid) TableName() string {
	return "bids"
}
