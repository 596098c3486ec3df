package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tractorbid/internal/models"
)

// Repository is the persistence surface of the bidding core. The *Tx methods
// run against the transaction handle passed to the InTx callback; everything
// else is a plain read or single-statement write.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Users and eligibility reads. These are consulted outside the bid
	// ledger transaction to keep the lock window small.
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	HasActiveMembership(ctx context.Context, userID uint64, now time.Time) (bool, error)
	GetEMD(ctx context.Context, auctionID, bidderID uint64) (*models.EarnestMoneyDeposit, error)
	// MarkEMDsRefundedTx flips every PAID deposit on the auction to REFUNDED,
	// except the one held by excludeBidderID (zero excludes nobody). Actual
	// money movement happens outside this system; this is bookkeeping.
	MarkEMDsRefundedTx(ctx context.Context, tx *gorm.DB, auctionID, excludeBidderID uint64) error

	// Vehicles.
	GetVehicleByID(ctx context.Context, id uint64) (*models.Vehicle, error)
	UpdateVehicleStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) error

	// Auctions.
	GetAuctionByID(ctx context.Context, id uint64) (*models.Auction, error)
	// GetAuctionForUpdateTx re-reads the auction row under a row lock; the
	// values it returns are the only ones the bid ledger may trust.
	GetAuctionForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Auction, error)
	ListAuctions(ctx context.Context, params ListAuctionsParams) ([]models.Auction, error)
	CountAuctions(ctx context.Context, params ListAuctionsParams) (int64, error)
	UpdateAuctionBidStateTx(ctx context.Context, tx *gorm.DB, id uint64, currentBid decimal.Decimal, endTime time.Time, extensionCount int) error
	UpdateAuctionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string, approvalStatus *string) error
	UpdateAuctionApprovalTx(ctx context.Context, tx *gorm.DB, id uint64, status, reason string, decidedAt time.Time) error
	ListAuctionsToOpen(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)
	ListAuctionsToClose(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)

	// Bids.
	GetWinningBid(ctx context.Context, auctionID uint64) (*models.Bid, error)
	GetWinningBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) (*models.Bid, error)
	DemoteWinningBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) error
	InsertBidTx(ctx context.Context, tx *gorm.DB, item *models.Bid) error
	ListBids(ctx context.Context, params ListBidsParams) ([]models.Bid, error)
	CountBids(ctx context.Context, auctionID uint64) (int64, error)
	ListAuctionBidderIDs(ctx context.Context, auctionID uint64) ([]uint64, error)

	// Notification outbox.
	InsertNotification(ctx context.Context, item *models.Notification) error
	MarkNotificationSent(ctx context.Context, id uint64, sentAt time.Time) error
	MarkNotificationFailed(ctx context.Context, id uint64, lastError string) error
	ListNotifications(ctx context.Context, params ListNotificationsParams) ([]models.Notification, error)
}

type ListAuctionsParams struct {
	Limit       int
	Offset      int
	Status      *string
	BiddingType *string
	SellerID    *uint64
	OrderBy     string
	Asc         *bool
}

type ListBidsParams struct {
	AuctionID uint64
	BidderID  *uint64
	Limit     int
	Offset    int
	OrderBy   string
	Asc       *bool
}

type ListNotificationsParams struct {
	Limit  int
	Offset int
	UserID *uint64
	Kind   *string
	Status *string
}
