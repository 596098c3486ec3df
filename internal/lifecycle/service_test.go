package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tractorbid/internal/models"
	"tractorbid/internal/realtime"
	"tractorbid/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Due auctions are computed from the stored rows the way the real queries do.
type stubRepo struct {
	auctions map[uint64]*models.Auction
	vehicles map[uint64]*models.Vehicle
	winning  map[uint64]*models.Bid
	emds     []*models.EarnestMoneyDeposit
}

var _ repository.Repository = (*stubRepo)(nil)

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	return nil, nil
}

func (s *stubRepo) HasActiveMembership(ctx context.Context, userID uint64, now time.Time) (bool, error) {
	return false, nil
}

func (s *stubRepo) GetEMD(ctx context.Context, auctionID, bidderID uint64) (*models.EarnestMoneyDeposit, error) {
	return nil, nil
}

func (s *stubRepo) MarkEMDsRefundedTx(ctx context.Context, tx *gorm.DB, auctionID, excludeBidderID uint64) error {
	for _, e := range s.emds {
		if e.AuctionID == auctionID && e.Status == models.EMDStatusPaid && e.BidderID != excludeBidderID {
			e.Status = models.EMDStatusRefunded
		}
	}
	return nil
}

func (s *stubRepo) GetVehicleByID(ctx context.Context, id uint64) (*models.Vehicle, error) {
	return s.vehicles[id], nil
}

func (s *stubRepo) UpdateVehicleStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) error {
	return nil
}

func (s *stubRepo) GetAuctionByID(ctx context.Context, id uint64) (*models.Auction, error) {
	return s.auctions[id], nil
}

func (s *stubRepo) GetAuctionForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Auction, error) {
	return s.auctions[id], nil
}

func (s *stubRepo) ListAuctions(ctx context.Context, params repository.ListAuctionsParams) ([]models.Auction, error) {
	return nil, nil
}

func (s *stubRepo) CountAuctions(ctx context.Context, params repository.ListAuctionsParams) (int64, error) {
	return 0, nil
}

func (s *stubRepo) UpdateAuctionBidStateTx(ctx context.Context, tx *gorm.DB, id uint64, currentBid decimal.Decimal, endTime time.Time, extensionCount int) error {
	return nil
}

func (s *stubRepo) UpdateAuctionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string, approvalStatus *string) error {
	if a, ok := s.auctions[id]; ok {
		a.Status = status
		if approvalStatus != nil {
			a.SellerApprovalStatus = *approvalStatus
		}
	}
	return nil
}

func (s *stubRepo) UpdateAuctionApprovalTx(ctx context.Context, tx *gorm.DB, id uint64, status, reason string, decidedAt time.Time) error {
	return nil
}

func (s *stubRepo) ListAuctionsToOpen(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	out := []models.Auction{}
	for _, a := range s.auctions {
		if a.Status == models.AuctionStatusScheduled && !now.Before(a.StartTime) && now.Before(a.EndTime) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubRepo) ListAuctionsToClose(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	out := []models.Auction{}
	for _, a := range s.auctions {
		if a.Status != models.AuctionStatusEnded && !now.Before(a.EndTime) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubRepo) GetWinningBid(ctx context.Context, auctionID uint64) (*models.Bid, error) {
	return s.winning[auctionID], nil
}

func (s *stubRepo) GetWinningBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) (*models.Bid, error) {
	return s.winning[auctionID], nil
}

func (s *stubRepo) DemoteWinningBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) error {
	return nil
}

func (s *stubRepo) InsertBidTx(ctx context.Context, tx *gorm.DB, item *models.Bid) error { return nil }

func (s *stubRepo) ListBids(ctx context.Context, params repository.ListBidsParams) ([]models.Bid, error) {
	return nil, nil
}

func (s *stubRepo) CountBids(ctx context.Context, auctionID uint64) (int64, error) { return 0, nil }

func (s *stubRepo) ListAuctionBidderIDs(ctx context.Context, auctionID uint64) ([]uint64, error) {
	return nil, nil
}

func (s *stubRepo) InsertNotification(ctx context.Context, item *models.Notification) error {
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

type stubBroadcaster struct {
	events []realtime.Event
}

func (b *stubBroadcaster) Emit(topic string, event realtime.Event) {
	event.Topic = topic
	b.events = append(b.events, event)
}

type sentNotice struct {
	UserID uint64
	Kind   string
}

type stubNotifier struct {
	items []sentNotice
}

func (n *stubNotifier) Notify(ctx context.Context, userID, auctionID uint64, kind, message string, payload map[string]any) {
	n.items = append(n.items, sentNotice{UserID: userID, Kind: kind})
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestTick(t *testing.T) {
	repo := &stubRepo{
		auctions: map[uint64]*models.Auction{
			// Due to open.
			1: {ID: 1, VehicleID: 1, Status: models.AuctionStatusScheduled, StartTime: testNow.Add(-time.Minute), EndTime: testNow.Add(2 * time.Hour)},
			// Due to close, has a winner.
			2: {ID: 2, VehicleID: 2, Status: models.AuctionStatusLive, StartTime: testNow.Add(-3 * time.Hour), EndTime: testNow.Add(-time.Minute)},
			// Due to close, never received a bid.
			3: {ID: 3, VehicleID: 3, Status: models.AuctionStatusLive, StartTime: testNow.Add(-3 * time.Hour), EndTime: testNow.Add(-time.Minute)},
			// Not due for anything.
			4: {ID: 4, VehicleID: 4, Status: models.AuctionStatusScheduled, StartTime: testNow.Add(time.Hour), EndTime: testNow.Add(3 * time.Hour)},
		},
		vehicles: map[uint64]*models.Vehicle{
			2: {ID: 2, SellerID: 3},
		},
		winning: map[uint64]*models.Bid{
			2: {ID: 7, AuctionID: 2, BidderID: 10, Amount: decimal.NewFromInt(180000), IsWinningBid: true},
		},
		emds: []*models.EarnestMoneyDeposit{
			{ID: 1, AuctionID: 2, BidderID: 10, Status: models.EMDStatusPaid},
			{ID: 2, AuctionID: 3, BidderID: 20, Status: models.EMDStatusPaid},
		},
	}
	broadcast := &stubBroadcaster{}
	notifier := &stubNotifier{}
	svc := &Service{
		Repo:      repo,
		Logger:    zap.NewNop(),
		Broadcast: broadcast,
		Notifier:  notifier,
		Now:       func() time.Time { return testNow },
	}

	svc.Tick(context.Background())

	if got := repo.auctions[1].Status; got != models.AuctionStatusLive {
		t.Fatalf("auction 1 status=%s want=LIVE", got)
	}
	if got := repo.auctions[2].Status; got != models.AuctionStatusEnded {
		t.Fatalf("auction 2 status=%s want=ENDED", got)
	}
	if got := repo.auctions[2].SellerApprovalStatus; got != models.ApprovalStatusPending {
		t.Fatalf("auction 2 approval=%q want=PENDING", got)
	}
	if got := repo.auctions[3].Status; got != models.AuctionStatusEnded {
		t.Fatalf("auction 3 status=%s want=ENDED", got)
	}
	if got := repo.auctions[3].SellerApprovalStatus; got != "" {
		t.Fatalf("auction 3 approval=%q want empty (nothing to approve)", got)
	}
	if got := repo.auctions[4].Status; got != models.AuctionStatusScheduled {
		t.Fatalf("auction 4 status=%s want untouched SCHEDULED", got)
	}

	// Deposits: auction 2 resolves via the approval workflow, so its deposit
	// stays held; the no-bid auction 3 releases immediately.
	if got := repo.emds[0].Status; got != models.EMDStatusPaid {
		t.Fatalf("auction 2 deposit=%s want still PAID", got)
	}
	if got := repo.emds[1].Status; got != models.EMDStatusRefunded {
		t.Fatalf("auction 3 deposit=%s want REFUNDED", got)
	}

	var started, ended int
	for _, e := range broadcast.events {
		switch e.Type {
		case "auction_started":
			started++
		case "auction_ended":
			ended++
			if e.Topic == realtime.AuctionTopic(2) {
				if e.Payload["winning_bid"] != "180000.00" {
					t.Fatalf("winning_bid payload=%v", e.Payload["winning_bid"])
				}
			}
		}
	}
	if started != 1 || ended != 2 {
		t.Fatalf("broadcasts started=%d ended=%d want 1/2", started, ended)
	}

	// Seller and winner of auction 2 each get an end-of-auction notice.
	sellerNotified, winnerNotified := false, false
	for _, it := range notifier.items {
		if it.Kind != models.NotificationAuctionEnded {
			continue
		}
		if it.UserID == 3 {
			sellerNotified = true
		}
		if it.UserID == 10 {
			winnerNotified = true
		}
	}
	if !sellerNotified || !winnerNotified {
		t.Fatalf("end notifications=%+v want seller 3 and winner 10", notifier.items)
	}
}

func TestTick_Idempotent(t *testing.T) {
	repo := &stubRepo{
		auctions: map[uint64]*models.Auction{
			2: {ID: 2, VehicleID: 2, Status: models.AuctionStatusLive, StartTime: testNow.Add(-3 * time.Hour), EndTime: testNow.Add(-time.Minute)},
		},
		vehicles: map[uint64]*models.Vehicle{2: {ID: 2, SellerID: 3}},
		winning: map[uint64]*models.Bid{
			2: {ID: 7, AuctionID: 2, BidderID: 10, Amount: decimal.NewFromInt(180000)},
		},
	}
	notifier := &stubNotifier{}
	svc := &Service{
		Repo:     repo,
		Logger:   zap.NewNop(),
		Notifier: notifier,
		Now:      func() time.Time { return testNow },
	}

	svc.Tick(context.Background())
	svc.Tick(context.Background())

	n := 0
	for _, it := range notifier.items {
		if it.Kind == models.NotificationAuctionEnded {
			n++
		}
	}
	// Two notices (seller + winner) from the first tick only; an ENDED
	// auction never matches the close query again.
	if n != 2 {
		t.Fatalf("end notifications=%d want=2", n)
	}
}
