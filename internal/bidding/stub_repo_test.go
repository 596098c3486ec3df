package bidding

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tractorbid/internal/models"
	"tractorbid/internal/repository"
)

type emdKey struct {
	auctionID uint64
	bidderID  uint64
}

// stubRepo is a test-only in-memory implementation of repository.Repository.
// txMu serializes InTx callbacks the way the auction row lock serializes the
// real ledger transaction; dataMu guards the maps themselves.
type stubRepo struct {
	txMu   sync.Mutex
	dataMu sync.Mutex

	users       map[uint64]*models.User
	memberships map[uint64]bool
	emds        map[emdKey]*models.EarnestMoneyDeposit
	vehicles    map[uint64]*models.Vehicle
	auctions    map[uint64]*models.Auction
	bids        []*models.Bid

	// staleAuction, when set, is what GetAuctionByID returns regardless of
	// the live state. Lets tests drive the pre-transaction gate with an
	// outdated snapshot.
	staleAuction *models.Auction

	notifications []*models.Notification
	nextBidID     uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:       map[uint64]*models.User{},
		memberships: map[uint64]bool{},
		emds:        map[emdKey]*models.EarnestMoneyDeposit{},
		vehicles:    map[uint64]*models.Vehicle{},
		auctions:    map[uint64]*models.Auction{},
	}
}

var _ repository.Repository = (*stubRepo)(nil)

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(nil)
}

func (s *stubRepo) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) HasActiveMembership(ctx context.Context, userID uint64, now time.Time) (bool, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.memberships[userID], nil
}

func (s *stubRepo) GetEMD(ctx context.Context, auctionID, bidderID uint64) (*models.EarnestMoneyDeposit, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if e, ok := s.emds[emdKey{auctionID, bidderID}]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) MarkEMDsRefundedTx(ctx context.Context, tx *gorm.DB, auctionID, excludeBidderID uint64) error {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	for key, e := range s.emds {
		if key.auctionID == auctionID && e.Status == models.EMDStatusPaid && key.bidderID != excludeBidderID {
			e.Status = models.EMDStatusRefunded
		}
	}
	return nil
}

func (s *stubRepo) GetVehicleByID(ctx context.Context, id uint64) (*models.Vehicle, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if v, ok := s.vehicles[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) UpdateVehicleStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) error {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if v, ok := s.vehicles[id]; ok {
		v.Status = status
	}
	return nil
}

func (s *stubRepo) GetAuctionByID(ctx context.Context, id uint64) (*models.Auction, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if s.staleAuction != nil && s.staleAuction.ID == id {
		cp := *s.staleAuction
		return &cp, nil
	}
	if a, ok := s.auctions[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) GetAuctionForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Auction, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if a, ok := s.auctions[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *stubRepo) ListAuctions(ctx context.Context, params repository.ListAuctionsParams) ([]models.Auction, error) {
	return nil, nil
}

func (s *stubRepo) CountAuctions(ctx context.Context, params repository.ListAuctionsParams) (int64, error) {
	return 0, nil
}

func (s *stubRepo) UpdateAuctionBidStateTx(ctx context.Context, tx *gorm.DB, id uint64, currentBid decimal.Decimal, endTime time.Time, extensionCount int) error {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if a, ok := s.auctions[id]; ok {
		a.CurrentBid = currentBid
		a.EndTime = endTime
		a.ExtensionCount = extensionCount
	}
	return nil
}

func (s *stubRepo) UpdateAuctionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string, approvalStatus *string) error {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if a, ok := s.auctions[id]; ok {
		a.Status = status
		if approvalStatus != nil {
			a.SellerApprovalStatus = *approvalStatus
		}
	}
	return nil
}

func (s *stubRepo) UpdateAuctionApprovalTx(ctx context.Context, tx *gorm.DB, id uint64, status, reason string, decidedAt time.Time) error {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if a, ok := s.auctions[id]; ok {
		a.SellerApprovalStatus = status
		a.ApprovalReason = reason
		a.ApprovalDecidedAt = &decidedAt
	}
	return nil
}

func (s *stubRepo) ListAuctionsToOpen(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	return nil, nil
}

func (s *stubRepo) ListAuctionsToClose(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	return nil, nil
}

func (s *stubRepo) GetWinningBid(ctx context.Context, auctionID uint64) (*models.Bid, error) {
	return s.GetWinningBidTx(ctx, nil, auctionID)
}

func (s *stubRepo) GetWinningBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) (*models.Bid, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	for _, b := range s.bids {
		if b.AuctionID == auctionID && b.IsWinningBid {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) DemoteWinningBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) error {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	for _, b := range s.bids {
		if b.AuctionID == auctionID {
			b.IsWinningBid = false
		}
	}
	return nil
}

func (s *stubRepo) InsertBidTx(ctx context.Context, tx *gorm.DB, item *models.Bid) error {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.nextBidID++
	item.ID = s.nextBidID
	cp := *item
	s.bids = append(s.bids, &cp)
	return nil
}

func (s *stubRepo) ListBids(ctx context.Context, params repository.ListBidsParams) ([]models.Bid, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	out := []models.Bid{}
	for _, b := range s.bids {
		if b.AuctionID != params.AuctionID {
			continue
		}
		if params.BidderID != nil && b.BidderID != *params.BidderID {
			continue
		}
		out = append(out, *b)
	}
	// Same limit behavior as the store: default page of 200, hard cap 500.
	limit := params.Limit
	if limit <= 0 {
		limit = 200
	}
	if limit > 500 {
		limit = 500
	}
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			out = out[:0]
		} else {
			out = out[params.Offset:]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) CountBids(ctx context.Context, auctionID uint64) (int64, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	var n int64
	for _, b := range s.bids {
		if b.AuctionID == auctionID {
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) ListAuctionBidderIDs(ctx context.Context, auctionID uint64) ([]uint64, error) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	seen := map[uint64]bool{}
	out := []uint64{}
	for _, b := range s.bids {
		if b.AuctionID == auctionID && !seen[b.BidderID] {
			seen[b.BidderID] = true
			out = append(out, b.BidderID)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertNotification(ctx context.Context, item *models.Notification) error {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	cp := *item
	s.notifications = append(s.notifications, &cp)
	return nil
}

func (s *stubRepo) MarkNotificationSent(ctx context.Context, id uint64, sentAt time.Time) error {
	return nil
}

func (s *stubRepo) MarkNotificationFailed(ctx context.Context, id uint64, lastError string) error {
	return nil
}

func (s *stubRepo) ListNotifications(ctx context.Context, params repository.ListNotificationsParams) ([]models.Notification, error) {
	return nil, nil
}
