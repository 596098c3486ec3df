package bidding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tractorbid/internal/config"
	"tractorbid/internal/models"
	"tractorbid/internal/realtime"
	"tractorbid/internal/repository"
)

// Broadcaster is the injected real-time fan-out. The ledger only ever calls
// it after commit; a nil Broadcaster simply means no live updates.
type Broadcaster interface {
	Emit(topic string, event realtime.Event)
}

// Notifier is the fire-and-forget notification collaborator. Implementations
// must swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, userID, auctionID uint64, kind, message string, payload map[string]any)
}

type Service struct {
	Repo      repository.Repository
	Logger    *zap.Logger
	Defaults  config.BiddingConfig
	Broadcast Broadcaster
	Notifier  Notifier

	// Now is overridable in tests; defaults to UTC wall clock.
	Now func() time.Time
}

type PlaceBidInput struct {
	AuctionID uint64
	BidderID  uint64
	Amount    decimal.Decimal
}

type PlaceBidResult struct {
	Bid     *models.Bid
	Auction *models.Auction

	Extended       bool
	ExtensionCount int

	// PreviousWinnerID is the displaced bidder, zero when this was the
	// first bid on the auction.
	PreviousWinnerID uint64
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// PlaceBid runs the full bid submission: read-only eligibility phase, then
// the atomic read-modify-write ledger transaction, then best-effort
// post-commit events. The increment check is re-validated inside the
// transaction against the row-locked auction; nothing read before the
// transaction is trusted for that decision.
func (s *Service) PlaceBid(ctx context.Context, in PlaceBidInput) (*PlaceBidResult, error) {
	if in.AuctionID == 0 || in.BidderID == 0 {
		return nil, fmt.Errorf("%w: missing auction or bidder id", ErrInvalidBid)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive bid amount", ErrInvalidBid)
	}

	now := s.now()

	user, err := s.Repo.GetUserByID(ctx, in.BidderID)
	if err != nil {
		return nil, fmt.Errorf("bidding: load user %d: %w", in.BidderID, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	auction, err := s.Repo.GetAuctionByID(ctx, in.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("bidding: load auction %d: %w", in.AuctionID, err)
	}
	if auction == nil {
		return nil, ErrAuctionNotFound
	}

	vehicle := &auction.Vehicle
	if vehicle.ID == 0 {
		vehicle, err = s.Repo.GetVehicleByID(ctx, auction.VehicleID)
		if err != nil {
			return nil, fmt.Errorf("bidding: load vehicle %d: %w", auction.VehicleID, err)
		}
	}

	// Membership and EMD lookups stay outside the critical section; only
	// the increment check and the writes need the row lock.
	snap := Snapshot{
		Now:     now,
		Auction: auction,
		Vehicle: vehicle,
		User:    user,
	}
	if !user.IsAdmin() {
		snap.HasActiveMembership, err = s.Repo.HasActiveMembership(ctx, user.ID, now)
		if err != nil {
			return nil, fmt.Errorf("bidding: membership lookup: %w", err)
		}
		if auction.EMDRequired {
			snap.EMD, err = s.Repo.GetEMD(ctx, auction.ID, user.ID)
			if err != nil {
				return nil, fmt.Errorf("bidding: emd lookup: %w", err)
			}
		}
	}

	if deny := CheckEligibility(snap, in.Amount); deny != nil {
		return nil, deny
	}

	policy := ResolvePolicy(auction, s.Defaults)

	var (
		bid        *models.Bid
		ext        ExtensionResult
		prevWinner *models.Bid
		finalState models.Auction
	)

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		fresh, err := s.Repo.GetAuctionForUpdateTx(ctx, tx, in.AuctionID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return ErrAuctionNotFound
		}

		// The clock is re-read under the row lock so commit order and
		// timestamp order agree: a request that waited on the lock gets a
		// later BidTime than the bid that beat it there, and the extension
		// decision sees the time the bid actually lands, not the time the
		// request arrived.
		txNow := s.now()

		// Authoritative increment re-check. Failing here means a
		// concurrent bid won the race; the caller sees an ordinary
		// "bid too low" with the recomputed minimum.
		minNext := fresh.CurrentBid.Add(fresh.MinimumIncrement)
		if in.Amount.LessThan(minNext) {
			deny := bidTooLow(minNext)
			deny.Retryable = true
			return deny
		}

		prevWinner, err = s.Repo.GetWinningBidTx(ctx, tx, in.AuctionID)
		if err != nil {
			return err
		}
		if err := s.Repo.DemoteWinningBidTx(ctx, tx, in.AuctionID); err != nil {
			return err
		}

		bid = &models.Bid{
			Ref:          uuid.NewString(),
			AuctionID:    in.AuctionID,
			BidderID:     in.BidderID,
			Amount:       in.Amount,
			BidTime:      txNow,
			IsWinningBid: true,
			IsAdminTest:  user.IsAdmin() && txNow.Before(fresh.StartTime),
		}
		if err := s.Repo.InsertBidTx(ctx, tx, bid); err != nil {
			return err
		}

		ext = EvaluateExtension(txNow, fresh.EndTime, fresh.ExtensionCount, policy)
		if err := s.Repo.UpdateAuctionBidStateTx(ctx, tx, in.AuctionID, in.Amount, ext.NewEndTime, ext.NewExtensionCount); err != nil {
			return err
		}

		finalState = *fresh
		finalState.CurrentBid = in.Amount
		finalState.EndTime = ext.NewEndTime
		finalState.ExtensionCount = ext.NewExtensionCount
		return nil
	})
	if err != nil {
		if _, ok := AsDenial(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("bidding: ledger transaction: %w", err)
	}

	// The insert does not round-trip the bidder association; attach it so
	// callers can render the bidder without another read.
	bid.Bidder = *user

	result := &PlaceBidResult{
		Bid:            bid,
		Auction:        &finalState,
		Extended:       ext.Extended,
		ExtensionCount: ext.NewExtensionCount,
	}
	if prevWinner != nil {
		result.PreviousWinnerID = prevWinner.BidderID
	}

	s.publishAccepted(ctx, user, result, policy)
	return result, nil
}

// publishAccepted emits the real-time broadcast and notification events for
// an accepted bid. Everything here is best-effort and must never undo or
// fail the committed bid.
func (s *Service) publishAccepted(ctx context.Context, bidder *models.User, res *PlaceBidResult, policy ExtensionPolicy) {
	auction := res.Auction
	topic := realtime.AuctionTopic(auction.ID)

	if s.Broadcast != nil {
		payload := map[string]any{
			"auction_id":      auction.ID,
			"end_time":        auction.EndTime,
			"extended":        res.Extended,
			"extension_count": auction.ExtensionCount,
		}
		if auction.BiddingType == models.BiddingTypeSealed && auction.Status != models.AuctionStatusEnded {
			// Sealed-live: aggregate count and timing only, never
			// amounts or identities.
			if count, err := s.Repo.CountBids(ctx, auction.ID); err == nil {
				payload["bid_count"] = count
			} else if s.Logger != nil {
				s.Logger.Warn("bid count for sealed broadcast failed", zap.Error(err))
			}
		} else {
			payload["current_bid"] = auction.CurrentBid.StringFixed(2)
			payload["bid"] = map[string]any{
				"ref":         res.Bid.Ref,
				"bidder_id":   res.Bid.BidderID,
				"bidder_name": bidder.Name,
				"amount":      res.Bid.Amount.StringFixed(2),
				"bid_time":    res.Bid.BidTime,
			}
		}
		s.Broadcast.Emit(topic, realtime.Event{Type: "bid_placed", Payload: payload})

		if res.Extended {
			mins := int(policy.ExtendBy / time.Minute)
			s.Broadcast.Emit(topic, realtime.Event{Type: "auction_extended", Payload: map[string]any{
				"auction_id":       auction.ID,
				"end_time":         auction.EndTime,
				"extension_count":  auction.ExtensionCount,
				"extended_minutes": mins,
				"message":          fmt.Sprintf("auction extended by %d minutes", mins),
			}})
		}
	}

	if s.Notifier == nil {
		return
	}

	amount := res.Bid.Amount.StringFixed(2)
	s.Notifier.Notify(ctx, res.Bid.BidderID, auction.ID, models.NotificationBidPlaced,
		fmt.Sprintf("your bid of ₹%s has been placed", amount),
		map[string]any{"auction_id": auction.ID, "amount": amount})

	if res.PreviousWinnerID != 0 && res.PreviousWinnerID != res.Bid.BidderID {
		s.Notifier.Notify(ctx, res.PreviousWinnerID, auction.ID, models.NotificationOutbid,
			fmt.Sprintf("you have been outbid; the current bid is ₹%s", amount),
			map[string]any{"auction_id": auction.ID, "current_bid": amount})
	}

	if res.Extended {
		mins := int(policy.ExtendBy / time.Minute)
		participants, err := s.Repo.ListAuctionBidderIDs(ctx, auction.ID)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("participant list for extension notify failed", zap.Error(err))
			}
			return
		}
		for _, id := range participants {
			s.Notifier.Notify(ctx, id, auction.ID, models.NotificationAuctionExtend,
				fmt.Sprintf("auction extended by %d minutes", mins),
				map[string]any{"auction_id": auction.ID, "end_time": auction.EndTime})
		}
	}
}

// ListVisibleBids returns the bids of an auction filtered for the given
// viewer (nil means anonymous), together with the auction itself.
func (s *Service) ListVisibleBids(ctx context.Context, auctionID uint64, viewer *models.User) ([]models.Bid, *models.Auction, error) {
	auction, err := s.Repo.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, nil, fmt.Errorf("bidding: load auction %d: %w", auctionID, err)
	}
	if auction == nil {
		return nil, nil, ErrAuctionNotFound
	}

	// The store caps a single read; page through so a long bidding war is
	// never silently truncated. Walking by id keeps pages stable, and the
	// visibility filter re-sorts afterwards.
	const pageSize = 500
	asc := true
	var bids []models.Bid
	for offset := 0; ; offset += pageSize {
		page, err := s.Repo.ListBids(ctx, repository.ListBidsParams{
			AuctionID: auctionID,
			OrderBy:   "id",
			Asc:       &asc,
			Limit:     pageSize,
			Offset:    offset,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("bidding: list bids: %w", err)
		}
		bids = append(bids, page...)
		if len(page) < pageSize {
			break
		}
	}

	return VisibleBids(auction, viewer, s.now(), bids), auction, nil
}
