package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tractorbid/internal/models"
	"tractorbid/internal/realtime"
	"tractorbid/internal/repository"
)

const batchLimit = 200

type Broadcaster interface {
	Emit(topic string, event realtime.Event)
}

type Notifier interface {
	Notify(ctx context.Context, userID, auctionID uint64, kind, message string, payload map[string]any)
}

// Service moves auctions along SCHEDULED -> LIVE -> ENDED on a timer. The
// stored status is allowed to lag the time window; the bidding gate tolerates
// that, so a missed tick delays bookkeeping, not bidders.
type Service struct {
	Repo      repository.Repository
	Logger    *zap.Logger
	Broadcast Broadcaster
	Notifier  Notifier

	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Tick runs one sweep. Errors on individual auctions are logged and the sweep
// continues; the next tick retries whatever was left behind.
func (s *Service) Tick(ctx context.Context) {
	now := s.now()
	s.openDue(ctx, now)
	s.closeDue(ctx, now)
}

func (s *Service) openDue(ctx context.Context, now time.Time) {
	due, err := s.Repo.ListAuctionsToOpen(ctx, now, batchLimit)
	if err != nil {
		s.Logger.Error("list auctions to open failed", zap.Error(err))
		return
	}
	for i := range due {
		a := &due[i]
		err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
			return s.Repo.UpdateAuctionStatusTx(ctx, tx, a.ID, models.AuctionStatusLive, nil)
		})
		if err != nil {
			s.Logger.Error("open auction failed", zap.Uint64("auction_id", a.ID), zap.Error(err))
			continue
		}
		s.Logger.Info("auction opened", zap.Uint64("auction_id", a.ID))
		if s.Broadcast != nil {
			s.Broadcast.Emit(realtime.AuctionTopic(a.ID), realtime.Event{Type: "auction_started", Payload: map[string]any{
				"auction_id": a.ID,
				"end_time":   a.EndTime,
			}})
		}
	}
}

func (s *Service) closeDue(ctx context.Context, now time.Time) {
	due, err := s.Repo.ListAuctionsToClose(ctx, now, batchLimit)
	if err != nil {
		s.Logger.Error("list auctions to close failed", zap.Error(err))
		return
	}
	for i := range due {
		if err := s.closeOne(ctx, &due[i]); err != nil {
			s.Logger.Error("close auction failed", zap.Uint64("auction_id", due[i].ID), zap.Error(err))
		}
	}
}

func (s *Service) closeOne(ctx context.Context, a *models.Auction) error {
	winner, err := s.Repo.GetWinningBid(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("load winning bid: %w", err)
	}

	// A sold auction waits on the seller; one with no bids ends with nothing
	// to approve.
	var approval *string
	if winner != nil {
		p := models.ApprovalStatusPending
		approval = &p
	}

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.UpdateAuctionStatusTx(ctx, tx, a.ID, models.AuctionStatusEnded, approval); err != nil {
			return err
		}
		if winner == nil {
			// Nothing was sold; release every paid deposit right away.
			return s.Repo.MarkEMDsRefundedTx(ctx, tx, a.ID, 0)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.Info("auction ended",
		zap.Uint64("auction_id", a.ID),
		zap.Bool("has_winner", winner != nil),
	)

	if s.Broadcast != nil {
		payload := map[string]any{"auction_id": a.ID}
		if winner != nil {
			payload["winning_bid"] = winner.Amount.StringFixed(2)
			payload["winner_id"] = winner.BidderID
		}
		s.Broadcast.Emit(realtime.AuctionTopic(a.ID), realtime.Event{Type: "auction_ended", Payload: payload})
	}

	if s.Notifier != nil && winner != nil {
		vehicle := &a.Vehicle
		if vehicle.ID == 0 {
			vehicle, err = s.Repo.GetVehicleByID(ctx, a.VehicleID)
			if err != nil || vehicle == nil {
				s.Logger.Warn("vehicle lookup for end notification failed", zap.Uint64("auction_id", a.ID), zap.Error(err))
				return nil
			}
		}
		amount := winner.Amount.StringFixed(2)
		s.Notifier.Notify(ctx, vehicle.SellerID, a.ID, models.NotificationAuctionEnded,
			fmt.Sprintf("your auction ended with a winning bid of ₹%s; please approve or reject it", amount),
			map[string]any{"auction_id": a.ID, "winner_id": winner.BidderID, "winning_bid": amount})
		s.Notifier.Notify(ctx, winner.BidderID, a.ID, models.NotificationAuctionEnded,
			fmt.Sprintf("you placed the winning bid of ₹%s; awaiting seller approval", amount),
			map[string]any{"auction_id": a.ID, "winning_bid": amount})
	}
	return nil
}
