package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tractorbid/internal/approval"
	"tractorbid/internal/models"
	"tractorbid/internal/repository"
)

type AuctionHandler struct {
	Repo     repository.Repository
	Approval *approval.Service
}

func (h *AuctionHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/auctions")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/emd", h.emd)

	a := g.Group("/:id/approval")
	a.GET("", h.approvalStatus)
	a.POST("/approve", h.approve)
	a.POST("/reject", h.reject)
}

type auctionView struct {
	ID          uint64 `json:"id"`
	VehicleID   uint64 `json:"vehicle_id"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status"`
	BiddingType string `json:"bidding_type"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// CurrentBid is omitted on sealed auctions that have not ended, except
	// for admin viewers.
	CurrentBid       *decimal.Decimal `json:"current_bid,omitempty"`
	ReservePrice     decimal.Decimal  `json:"reserve_price"`
	MinimumIncrement decimal.Decimal  `json:"minimum_increment"`

	EMDRequired bool            `json:"emd_required"`
	EMDAmount   decimal.Decimal `json:"emd_amount"`

	ExtensionCount int `json:"extension_count"`

	SellerApprovalStatus string `json:"seller_approval_status,omitempty"`
}

func toAuctionView(a *models.Auction, viewer *models.User, now time.Time) auctionView {
	v := auctionView{
		ID:                   a.ID,
		VehicleID:            a.VehicleID,
		Title:                a.Vehicle.Title,
		Status:               a.Status,
		BiddingType:          a.BiddingType,
		StartTime:            a.StartTime,
		EndTime:              a.EndTime,
		ReservePrice:         a.ReservePrice,
		MinimumIncrement:     a.MinimumIncrement,
		EMDRequired:          a.EMDRequired,
		EMDAmount:            a.EMDAmount,
		ExtensionCount:       a.ExtensionCount,
		SellerApprovalStatus: a.SellerApprovalStatus,
	}
	sealedLive := a.BiddingType == models.BiddingTypeSealed && !a.Ended(now)
	if !sealedLive || viewer.IsAdmin() {
		cb := a.CurrentBid
		v.CurrentBid = &cb
	}
	return v
}

func (h *AuctionHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	var sellerID *uint64
	if id := parseUint64(c.Query("seller_id")); id > 0 {
		sellerID = &id
	}
	params := repository.ListAuctionsParams{
		Limit:       limit,
		Offset:      offset,
		Status:      strQueryPtr(c, "status"),
		BiddingType: strQueryPtr(c, "bidding_type"),
		SellerID:    sellerID,
		OrderBy:     "end_time",
		Asc:         boolPtr(true),
	}
	items, err := h.Repo.ListAuctions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountAuctions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}

	viewer := CurrentUser(c)
	now := time.Now().UTC()
	views := make([]auctionView, 0, len(items))
	for i := range items {
		views = append(views, toAuctionView(&items[i], viewer, now))
	}
	Ok(c, views, paginationMeta(limit, offset, total))
}

func (h *AuctionHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetAuctionByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "auction not found", nil)
		return
	}

	count, err := h.Repo.CountBids(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, toAuctionView(item, CurrentUser(c), time.Now().UTC()), map[string]any{"bid_count": count})
}

func (h *AuctionHandler) emd(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetEMD(c.Request.Context(), id, user.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "no deposit for this auction", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *AuctionHandler) approvalStatus(c *gin.Context) {
	if h.Approval == nil {
		Error(c, http.StatusServiceUnavailable, "approval unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	info, err := h.Approval.Status(c.Request.Context(), id, CurrentUser(c))
	if err != nil {
		writeApprovalError(c, err)
		return
	}
	Ok(c, info, nil)
}

func (h *AuctionHandler) approve(c *gin.Context) {
	if h.Approval == nil {
		Error(c, http.StatusServiceUnavailable, "approval unavailable", nil)
		return
	}
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Approval.Approve(c.Request.Context(), id, user.ID); err != nil {
		writeApprovalError(c, err)
		return
	}
	Ok(c, gin.H{"auction_id": id, "status": models.ApprovalStatusApproved}, nil)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *AuctionHandler) reject(c *gin.Context) {
	if h.Approval == nil {
		Error(c, http.StatusServiceUnavailable, "approval unavailable", nil)
		return
	}
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Approval.Reject(c.Request.Context(), id, user.ID, req.Reason); err != nil {
		writeApprovalError(c, err)
		return
	}
	Ok(c, gin.H{"auction_id": id, "status": models.ApprovalStatusRejected}, nil)
}

func writeApprovalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, approval.ErrAuctionNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, approval.ErrWrongActor):
		Error(c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, approval.ErrReasonTooLong):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, approval.ErrNotEnded),
		errors.Is(err, approval.ErrNotPending),
		errors.Is(err, approval.ErrNoWinningBid):
		Error(c, http.StatusConflict, err.Error(), nil)
	default:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}
