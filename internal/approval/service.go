package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tractorbid/internal/models"
	"tractorbid/internal/repository"
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrNotEnded        = errors.New("auction has not ended")
	ErrNoWinningBid    = errors.New("auction has no winning bid")
	ErrNotPending      = errors.New("approval is not pending")
	ErrWrongActor      = errors.New("only the seller or an admin may decide")
	ErrReasonTooLong   = errors.New("rejection reason exceeds 500 characters")
)

const maxReasonLen = 500

type Notifier interface {
	Notify(ctx context.Context, userID, auctionID uint64, kind, message string, payload map[string]any)
}

// Service drives the post-auction seller approval workflow:
// PENDING -> APPROVED | REJECTED, decided by the vehicle's seller (or an
// admin), only while the auction sits in PENDING. The deadline is a
// visibility signal only; passing it never forces a transition.
type Service struct {
	Repo     repository.Repository
	Logger   *zap.Logger
	Notifier Notifier

	DeadlineDays int

	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) Approve(ctx context.Context, auctionID, actorID uint64) error {
	auction, winner, err := s.loadPending(ctx, auctionID, actorID)
	if err != nil {
		return err
	}

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.UpdateAuctionApprovalTx(ctx, tx, auctionID, models.ApprovalStatusApproved, "", s.now()); err != nil {
			return err
		}
		if err := s.Repo.UpdateVehicleStatusTx(ctx, tx, auction.VehicleID, models.VehicleStatusSold); err != nil {
			return err
		}
		// Losing bidders get their deposits back; the winner's is held for
		// the sale settlement.
		return s.Repo.MarkEMDsRefundedTx(ctx, tx, auctionID, winner.BidderID)
	})
	if err != nil {
		return fmt.Errorf("approval: approve auction %d: %w", auctionID, err)
	}

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, winner.BidderID, auctionID, models.NotificationBidApproved,
			fmt.Sprintf("your winning bid of ₹%s was approved by the seller", winner.Amount.StringFixed(2)),
			map[string]any{"auction_id": auctionID, "amount": winner.Amount.StringFixed(2)})
	}
	return nil
}

func (s *Service) Reject(ctx context.Context, auctionID, actorID uint64, reason string) error {
	if len(reason) > maxReasonLen {
		return ErrReasonTooLong
	}

	_, winner, err := s.loadPending(ctx, auctionID, actorID)
	if err != nil {
		return err
	}

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.UpdateAuctionApprovalTx(ctx, tx, auctionID, models.ApprovalStatusRejected, reason, s.now()); err != nil {
			return err
		}
		// No sale happens, so every deposit goes back, the winner's included.
		return s.Repo.MarkEMDsRefundedTx(ctx, tx, auctionID, 0)
	})
	if err != nil {
		return fmt.Errorf("approval: reject auction %d: %w", auctionID, err)
	}

	if s.Notifier != nil {
		s.Notifier.Notify(ctx, winner.BidderID, auctionID, models.NotificationBidRejected,
			"your winning bid was rejected by the seller",
			map[string]any{"auction_id": auctionID, "reason": reason})
	}
	return nil
}

// loadPending checks actor and state, returning the auction and winning bid
// when a decision is allowed.
func (s *Service) loadPending(ctx context.Context, auctionID, actorID uint64) (*models.Auction, *models.Bid, error) {
	auction, err := s.Repo.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, nil, fmt.Errorf("approval: load auction %d: %w", auctionID, err)
	}
	if auction == nil {
		return nil, nil, ErrAuctionNotFound
	}

	actor, err := s.Repo.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, nil, fmt.Errorf("approval: load user %d: %w", actorID, err)
	}
	if actor == nil || (!actor.IsAdmin() && auction.Vehicle.SellerID != actor.ID) {
		return nil, nil, ErrWrongActor
	}

	if auction.Status != models.AuctionStatusEnded {
		return nil, nil, ErrNotEnded
	}
	if auction.SellerApprovalStatus != models.ApprovalStatusPending {
		return nil, nil, ErrNotPending
	}

	winner, err := s.Repo.GetWinningBid(ctx, auctionID)
	if err != nil {
		return nil, nil, fmt.Errorf("approval: load winning bid: %w", err)
	}
	if winner == nil {
		return nil, nil, ErrNoWinningBid
	}
	return auction, winner, nil
}

type DeadlineInfo struct {
	Deadline         time.Time `json:"deadline"`
	IsOverdue        bool      `json:"is_overdue"`
	DaysRemaining    int       `json:"days_remaining"`
	HoursRemaining   int       `json:"hours_remaining"`
	MinutesRemaining int       `json:"minutes_remaining"`
}

// ComputeDeadline reports how long the seller has left to decide. Reaching
// or passing the deadline flips IsOverdue; it does not change any state.
func ComputeDeadline(endTime time.Time, deadlineDays int, now time.Time) DeadlineInfo {
	deadline := endTime.Add(time.Duration(deadlineDays) * 24 * time.Hour)
	info := DeadlineInfo{Deadline: deadline}
	if !now.Before(deadline) {
		info.IsOverdue = true
		return info
	}
	rem := deadline.Sub(now)
	info.DaysRemaining = int(rem.Hours()) / 24
	info.HoursRemaining = int(rem.Hours()) % 24
	info.MinutesRemaining = int(rem.Minutes()) % 60
	return info
}

func (s *Service) Deadline(auction *models.Auction) DeadlineInfo {
	days := s.DeadlineDays
	if days <= 0 {
		days = 7
	}
	return ComputeDeadline(auction.EndTime, days, s.now())
}

type WinnerInfo struct {
	BidderID uint64 `json:"bidder_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Amount   string `json:"amount"`
}

type StatusInfo struct {
	AuctionID uint64       `json:"auction_id"`
	Status    string       `json:"status"`
	Reason    string       `json:"reason,omitempty"`
	Deadline  DeadlineInfo `json:"deadline"`
	Winner    *WinnerInfo  `json:"winner,omitempty"`
}

// Status assembles the approval view for a seller, admin, or the winning
// bidder. Contact details of the counterparty become visible only once the
// bid is APPROVED.
func (s *Service) Status(ctx context.Context, auctionID uint64, viewer *models.User) (*StatusInfo, error) {
	auction, err := s.Repo.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("approval: load auction %d: %w", auctionID, err)
	}
	if auction == nil {
		return nil, ErrAuctionNotFound
	}
	if auction.Status != models.AuctionStatusEnded {
		return nil, ErrNotEnded
	}

	info := &StatusInfo{
		AuctionID: auctionID,
		Status:    auction.SellerApprovalStatus,
		Reason:    auction.ApprovalReason,
		Deadline:  s.Deadline(auction),
	}

	winner, err := s.Repo.GetWinningBid(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("approval: load winning bid: %w", err)
	}
	if winner == nil {
		return info, nil
	}

	isSeller := viewer != nil && viewer.ID == auction.Vehicle.SellerID
	isWinner := viewer != nil && viewer.ID == winner.BidderID
	if viewer.IsAdmin() || isSeller || isWinner {
		w := &WinnerInfo{
			BidderID: winner.BidderID,
			Name:     winner.Bidder.Name,
			Amount:   winner.Amount.StringFixed(2),
		}
		if auction.SellerApprovalStatus == models.ApprovalStatusApproved {
			w.Phone = winner.Bidder.Phone
		}
		info.Winner = w
	}
	return info, nil
}
