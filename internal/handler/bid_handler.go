package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tractorbid/internal/bidding"
	"tractorbid/internal/models"
)

type BidHandler struct {
	Bids *bidding.Service
}

func (h *BidHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/auctions")
	g.POST("/:id/bids", h.place)
	g.GET("/:id/bids", h.list)
}

type placeBidRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type bidView struct {
	Ref          string          `json:"ref"`
	AuctionID    uint64          `json:"auction_id"`
	BidderID     uint64          `json:"bidder_id"`
	BidderName   string          `json:"bidder_name,omitempty"`
	BidderPhone  string          `json:"bidder_phone,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	BidTime      time.Time       `json:"bid_time"`
	IsWinningBid bool            `json:"is_winning_bid"`
}

func toBidView(b *models.Bid, full bool) bidView {
	v := bidView{
		Ref:          b.Ref,
		AuctionID:    b.AuctionID,
		BidderID:     b.BidderID,
		BidderName:   b.Bidder.Name,
		Amount:       b.Amount,
		BidTime:      b.BidTime,
		IsWinningBid: b.IsWinningBid,
	}
	if full {
		v.BidderPhone = b.Bidder.Phone
	}
	return v
}

// fullBidDetail reports whether bid rows carry bidder contact details.
// Sealed auctions hide them until the auction ends; admins always see them.
func fullBidDetail(a *models.Auction, viewer *models.User, now time.Time) bool {
	sealedLive := a.BiddingType == models.BiddingTypeSealed && !a.Ended(now)
	return !sealedLive || viewer.IsAdmin()
}

func (h *BidHandler) place(c *gin.Context) {
	if h.Bids == nil {
		Error(c, http.StatusServiceUnavailable, "bidding unavailable", nil)
		return
	}
	user, ok := requireUser(c)
	if !ok {
		return
	}
	auctionID := uint64Param(c, "id")
	if auctionID == 0 {
		Error(c, http.StatusBadRequest, "invalid auction id", nil)
		return
	}
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	res, err := h.Bids.PlaceBid(c.Request.Context(), bidding.PlaceBidInput{
		AuctionID: auctionID,
		BidderID:  user.ID,
		Amount:    req.Amount,
	})
	if err != nil {
		writeBidError(c, err)
		return
	}

	Ok(c, gin.H{
		"bid":             toBidView(res.Bid, fullBidDetail(res.Auction, user, time.Now().UTC())),
		"current_bid":     res.Auction.CurrentBid,
		"end_time":        res.Auction.EndTime,
		"extended":        res.Extended,
		"extension_count": res.ExtensionCount,
	}, nil)
}

func (h *BidHandler) list(c *gin.Context) {
	if h.Bids == nil {
		Error(c, http.StatusServiceUnavailable, "bidding unavailable", nil)
		return
	}
	auctionID := uint64Param(c, "id")
	if auctionID == 0 {
		Error(c, http.StatusBadRequest, "invalid auction id", nil)
		return
	}

	viewer := CurrentUser(c)
	bids, auction, err := h.Bids.ListVisibleBids(c.Request.Context(), auctionID, viewer)
	if err != nil {
		writeBidError(c, err)
		return
	}

	full := fullBidDetail(auction, viewer, time.Now().UTC())
	views := make([]bidView, 0, len(bids))
	for i := range bids {
		views = append(views, toBidView(&bids[i], full))
	}
	Ok(c, views, map[string]any{
		"auction_id":   auction.ID,
		"bidding_type": auction.BiddingType,
		"status":       auction.Status,
		"total":        len(views),
	})
}

// writeBidError maps service errors onto the response envelope. Denials keep
// their machine-readable hints in meta so clients can correct and resubmit.
func writeBidError(c *gin.Context, err error) {
	if deny, ok := bidding.AsDenial(err); ok {
		meta := map[string]any{"reason": deny.Code}
		if deny.MinimumBid != nil {
			meta["minimum_bid"] = deny.MinimumBid
		}
		if deny.EMDAmount != nil {
			meta["emd_amount"] = deny.EMDAmount
		}
		if deny.RedirectToEMD {
			meta["redirect_to_emd"] = true
		}
		// Denial.Retryable stays internal: a bid beaten under the lock must
		// look like any other too-low bid to the client.
		Error(c, denyStatus(deny.Code), deny.Message, meta)
		return
	}
	switch {
	case errors.Is(err, bidding.ErrAuctionNotFound):
		Error(c, http.StatusNotFound, "auction not found", nil)
	case errors.Is(err, bidding.ErrUserNotFound):
		Error(c, http.StatusUnauthorized, "unknown user", nil)
	case errors.Is(err, bidding.ErrInvalidBid):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}

func denyStatus(code string) int {
	switch code {
	case bidding.DenyNotEligible, bidding.DenyOwnVehicle, bidding.DenyMembershipRequired:
		return http.StatusForbidden
	case bidding.DenyEMDRequired:
		return http.StatusPaymentRequired
	default:
		// Timing and increment denials: the request was well-formed but the
		// auction state disagrees.
		return http.StatusConflict
	}
}
