package bidding

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidBid      = errors.New("invalid bid")
)

// Denial reason codes, stable across API responses.
const (
	DenyNotEligible        = "not_eligible"
	DenyAuctionEnded       = "auction_ended"
	DenyAuctionNotStarted  = "auction_not_started"
	DenyAuctionNotLive     = "auction_not_live"
	DenyOwnVehicle         = "own_vehicle"
	DenyBidTooLow          = "bid_too_low"
	DenyMembershipRequired = "membership_required"
	DenyEMDRequired        = "emd_required"
)

// Denial is an eligibility or validation rejection. It carries the
// machine-readable hints the client needs to correct the bid (recomputed
// minimum, EMD amount) alongside the human-readable message.
type Denial struct {
	Code    string
	Message string

	MinimumBid *decimal.Decimal
	EMDAmount  *decimal.Decimal

	// RedirectToEMD tells the caller to send the client to EMD payment.
	RedirectToEMD bool

	// Retryable marks a denial produced by the in-transaction freshness
	// re-check: a concurrent bid won the race, and resubmitting with a
	// higher amount may succeed. Clients see an ordinary bid_too_low.
	Retryable bool
}

func (d *Denial) Error() string {
	return d.Message
}

func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
