package bidding

import (
	"sort"
	"time"

	"tractorbid/internal/models"
)

// VisibleBids applies the sealed-vs-open visibility rules for one viewer and
// returns the bids that viewer may see, in the order the API presents them.
// It must be re-evaluated per request; the live/ended boundary changes the
// answer and nothing here may be cached across it.
//
//	SEALED, live, anonymous            -> nothing
//	SEALED, live, authenticated        -> own bids only, newest first
//	SEALED, live, admin                -> all bids, newest first
//	ended (any type), or OPEN and live -> all bids, highest amount first
func VisibleBids(auction *models.Auction, viewer *models.User, now time.Time, bids []models.Bid) []models.Bid {
	if auction == nil {
		return nil
	}

	sealedLive := auction.BiddingType == models.BiddingTypeSealed && !auction.Ended(now)
	if !sealedLive {
		return sortByAmountDesc(bids)
	}

	if viewer == nil {
		return []models.Bid{}
	}
	if viewer.IsAdmin() {
		return sortByTimeDesc(bids)
	}

	own := make([]models.Bid, 0, len(bids))
	for _, b := range bids {
		if b.BidderID == viewer.ID {
			own = append(own, b)
		}
	}
	return sortByTimeDesc(own)
}

func sortByAmountDesc(bids []models.Bid) []models.Bid {
	out := append([]models.Bid(nil), bids...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

func sortByTimeDesc(bids []models.Bid) []models.Bid {
	out := append([]models.Bid(nil), bids...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BidTime.After(out[j].BidTime)
	})
	return out
}
