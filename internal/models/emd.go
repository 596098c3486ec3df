package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EMDStatusPending  = "PENDING"
	EMDStatusPaid     = "PAID"
	EMDStatusRefunded = "REFUNDED"
)

// EarnestMoneyDeposit is created and marked PAID by the payment-gateway flow.
// The bidding core reads it to gate bids on EMD-required auctions; the only
// mutation on this side is flipping PAID deposits to REFUNDED once the
// auction resolves. The refund payout itself happens outside this system.
type EarnestMoneyDeposit struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AuctionID uint64 `gorm:"not null;uniqueIndex:idx_emd_auction_bidder"`
	BidderID  uint64 `gorm:"not null;uniqueIndex:idx_emd_auction_bidder"`

	Amount decimal.Decimal `gorm:"type:numeric(30,2);not null"`
	Status string          `gorm:"type:varchar(20);not null;default:'PENDING';index"`

	PaidAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (EarnestMoneyDeposit) TableName() string {
	return "earnest_money_deposits"
}
