package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AuctionStatusScheduled = "SCHEDULED"
	AuctionStatusLive      = "LIVE"
	AuctionStatusEnded     = "ENDED"
)

const (
	BiddingTypeOpen   = "OPEN"
	BiddingTypeSealed = "SEALED"
)

const (
	ApprovalStatusPending  = "PENDING"
	ApprovalStatusApproved = "APPROVED"
	ApprovalStatusRejected = "REJECTED"
)

// Auction is the single shared mutable resource of the bidding core.
// CurrentBid, EndTime and ExtensionCount are written only inside the bid
// ledger transaction; SellerApprovalStatus only by the approval workflow.
type Auction struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	VehicleID uint64 `gorm:"not null;index"`
	Vehicle   Vehicle

	StartTime time.Time `gorm:"type:timestamptz;not null;index"`
	// EndTime only moves forward (auto-extension).
	EndTime time.Time `gorm:"type:timestamptz;not null;index"`

	Status      string `gorm:"type:varchar(20);not null;default:'SCHEDULED';index"`
	BiddingType string `gorm:"type:varchar(20);not null;default:'OPEN'"`

	// CurrentBid is monotonically non-decreasing; zero until the first bid.
	CurrentBid       decimal.Decimal `gorm:"type:numeric(30,2);not null;default:0"`
	ReservePrice     decimal.Decimal `gorm:"type:numeric(30,2);not null;default:0"`
	MinimumIncrement decimal.Decimal `gorm:"type:numeric(30,2);not null;default:0"`

	EMDRequired bool            `gorm:"column:emd_required;not null;default:false"`
	EMDAmount   decimal.Decimal `gorm:"column:emd_amount;type:numeric(30,2);not null;default:0"`

	// Anti-snipe knobs. NULL means "use the configured default"; resolution
	// happens once at auction-read time via bidding.ResolvePolicy.
	AutoExtendEnabled      *bool `gorm:""`
	AutoExtendMinutes      *int  `gorm:""`
	AutoExtendThresholdMin *int  `gorm:"column:auto_extend_threshold_min"`
	MaxExtensions          *int  `gorm:""`

	ExtensionCount int `gorm:"not null;default:0"`

	// Set only after the auction is ENDED with a winning bid.
	SellerApprovalStatus string     `gorm:"type:varchar(20);index"`
	ApprovalReason       string     `gorm:"type:varchar(500)"`
	ApprovalDecidedAt    *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Auction) TableName() string {
	return "auctions"
}

// TimeWindowOpen reports whether now falls inside [StartTime, EndTime].
// The bidding gate treats an auction inside its window as live even when the
// stored status lags behind, so status-update delay never blocks bidders.
func (a *Auction) TimeWindowOpen(now time.Time) bool {
	return a != nil && !now.Before(a.StartTime) && !now.After(a.EndTime)
}

func (a *Auction) Ended(now time.Time) bool {
	return a != nil && (a.Status == AuctionStatusEnded || now.After(a.EndTime))
}
