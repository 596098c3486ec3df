package bidding

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tractorbid/internal/models"
)

// Snapshot is the consistent read taken at the start of a bid request. The
// gate is a pure predicate over it: no I/O, no mutation. The increment check
// it performs is advisory only; the authoritative one runs again inside the
// bid ledger transaction against the locked row.
type Snapshot struct {
	Now                 time.Time
	Auction             *models.Auction
	Vehicle             *models.Vehicle
	User                *models.User
	HasActiveMembership bool
	EMD                 *models.EarnestMoneyDeposit
}

// CheckEligibility runs the ordered eligibility checks; the first failing
// check wins. A nil return means ALLOW.
func CheckEligibility(s Snapshot, amount decimal.Decimal) *Denial {
	user := s.User
	auction := s.Auction
	isAdmin := user.IsAdmin()

	if user == nil || (!isAdmin && !user.IsEligibleForBid) {
		return &Denial{
			Code:    DenyNotEligible,
			Message: "you are not eligible to bid, please contact the admin",
		}
	}

	if s.Now.After(auction.EndTime) {
		return &Denial{
			Code:    DenyAuctionEnded,
			Message: "auction has ended",
		}
	}

	if s.Now.Before(auction.StartTime) && !isAdmin {
		return &Denial{
			Code:    DenyAuctionNotStarted,
			Message: "auction has not started yet",
		}
	}

	// An auction counts as actionable when its stored status says LIVE, or
	// when the clock says it should be live even if a status update is
	// lagging. Admins may additionally bid on a SCHEDULED auction for
	// operational testing.
	actionable := auction.Status == models.AuctionStatusLive ||
		auction.TimeWindowOpen(s.Now) ||
		(isAdmin && auction.Status == models.AuctionStatusScheduled)
	if !actionable {
		return &Denial{
			Code:    DenyAuctionNotLive,
			Message: "auction is not live",
		}
	}

	if s.Vehicle != nil && s.Vehicle.SellerID == user.ID {
		return &Denial{
			Code:    DenyOwnVehicle,
			Message: "you cannot bid on your own vehicle",
		}
	}

	minNext := auction.CurrentBid.Add(auction.MinimumIncrement)
	if amount.LessThan(minNext) {
		return bidTooLow(minNext)
	}

	if !isAdmin && !s.HasActiveMembership {
		return &Denial{
			Code:    DenyMembershipRequired,
			Message: "an active membership is required to bid",
		}
	}

	if !isAdmin && auction.EMDRequired {
		if s.EMD == nil || s.EMD.Status != models.EMDStatusPaid {
			amt := auction.EMDAmount
			return &Denial{
				Code:          DenyEMDRequired,
				Message:       fmt.Sprintf("an EMD of ₹%s is required for this auction", amt.StringFixed(2)),
				EMDAmount:     &amt,
				RedirectToEMD: true,
			}
		}
	}

	return nil
}

func bidTooLow(minNext decimal.Decimal) *Denial {
	return &Denial{
		Code:       DenyBidTooLow,
		Message:    fmt.Sprintf("bid must be at least ₹%s", minNext.StringFixed(2)),
		MinimumBid: &minNext,
	}
}
