package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tractorbid/internal/models"
	"tractorbid/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- users & eligibility reads ----------------------------------------------

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) HasActiveMembership(ctx context.Context, userID uint64, now time.Time) (bool, error) {
	if s == nil || s.db == nil || userID == 0 {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Where("status = ?", models.MembershipStatusActive).
		Where("end_date >= ?", now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) GetEMD(ctx context.Context, auctionID, bidderID uint64) (*models.EarnestMoneyDeposit, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.EarnestMoneyDeposit
	err := s.db.WithContext(ctx).
		Model(&models.EarnestMoneyDeposit{}).
		Where("auction_id = ? AND bidder_id = ?", auctionID, bidderID).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) MarkEMDsRefundedTx(ctx context.Context, tx *gorm.DB, auctionID, excludeBidderID uint64) error {
	if tx == nil || auctionID == 0 {
		return nil
	}
	query := tx.WithContext(ctx).
		Model(&models.EarnestMoneyDeposit{}).
		Where("auction_id = ? AND status = ?", auctionID, models.EMDStatusPaid)
	if excludeBidderID != 0 {
		query = query.Where("bidder_id <> ?", excludeBidderID)
	}
	return query.Updates(map[string]any{"status": models.EMDStatusRefunded, "updated_at": time.Now().UTC()}).Error
}

// --- vehicles ---------------------------------------------------------------

func (s *Store) GetVehicleByID(ctx context.Context, id uint64) (*models.Vehicle, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Vehicle
	err := s.db.WithContext(ctx).Model(&models.Vehicle{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateVehicleStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) error {
	if tx == nil || id == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Vehicle{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

// --- auctions ---------------------------------------------------------------

func (s *Store) GetAuctionByID(ctx context.Context, id uint64) (*models.Auction, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Auction
	err := s.db.WithContext(ctx).
		Model(&models.Auction{}).
		Preload("Vehicle").
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetAuctionForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Auction, error) {
	if tx == nil || id == 0 {
		return nil, nil
	}
	var item models.Auction
	err := tx.WithContext(ctx).
		Model(&models.Auction{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) applyAuctionFilters(query *gorm.DB, params repository.ListAuctionsParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("auctions.status = ?", strings.TrimSpace(*params.Status))
	}
	if params.BiddingType != nil && strings.TrimSpace(*params.BiddingType) != "" {
		query = query.Where("auctions.bidding_type = ?", strings.TrimSpace(*params.BiddingType))
	}
	if params.SellerID != nil && *params.SellerID > 0 {
		query = query.
			Joins("JOIN vehicles ON vehicles.id = auctions.vehicle_id").
			Where("vehicles.seller_id = ?", *params.SellerID)
	}
	return query
}

func (s *Store) ListAuctions(ctx context.Context, params repository.ListAuctionsParams) ([]models.Auction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyAuctionFilters(s.db.WithContext(ctx).Model(&models.Auction{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "auctions.end_time")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Auction
	if err := query.Preload("Vehicle").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAuctions(ctx context.Context, params repository.ListAuctionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	query := s.applyAuctionFilters(s.db.WithContext(ctx).Model(&models.Auction{}), params)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) UpdateAuctionBidStateTx(ctx context.Context, tx *gorm.DB, id uint64, currentBid decimal.Decimal, endTime time.Time, extensionCount int) error {
	if tx == nil || id == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_bid":     currentBid,
			"end_time":        endTime,
			"extension_count": extensionCount,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (s *Store) UpdateAuctionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string, approvalStatus *string) error {
	if tx == nil || id == 0 {
		return nil
	}
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if approvalStatus != nil {
		updates["seller_approval_status"] = *approvalStatus
	}
	return tx.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) UpdateAuctionApprovalTx(ctx context.Context, tx *gorm.DB, id uint64, status, reason string, decidedAt time.Time) error {
	if tx == nil || id == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"seller_approval_status": status,
			"approval_reason":        reason,
			"approval_decided_at":    decidedAt,
			"updated_at":             time.Now().UTC(),
		}).Error
}

func (s *Store) ListAuctionsToOpen(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Auction
	err := s.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("status = ?", models.AuctionStatusScheduled).
		Where("start_time <= ?", now).
		Where("end_time > ?", now).
		Order("start_time asc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListAuctionsToClose(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Auction
	err := s.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("status IN ?", []string{models.AuctionStatusScheduled, models.AuctionStatusLive}).
		Where("end_time <= ?", now).
		Order("end_time asc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- bids -------------------------------------------------------------------

func (s *Store) GetWinningBid(ctx context.Context, auctionID uint64) (*models.Bid, error) {
	if s == nil || s.db == nil || auctionID == 0 {
		return nil, nil
	}
	var item models.Bid
	err := s.db.WithContext(ctx).
		Model(&models.Bid{}).
		Preload("Bidder").
		Where("auction_id = ? AND is_winning_bid = ?", auctionID, true).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetWinningBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) (*models.Bid, error) {
	if tx == nil || auctionID == 0 {
		return nil, nil
	}
	var item models.Bid
	err := tx.WithContext(ctx).
		Model(&models.Bid{}).
		Where("auction_id = ? AND is_winning_bid = ?", auctionID, true).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DemoteWinningBidTx is an idempotent no-op when the auction has no bids yet.
func (s *Store) DemoteWinningBidTx(ctx context.Context, tx *gorm.DB, auctionID uint64) error {
	if tx == nil || auctionID == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Bid{}).
		Where("auction_id = ? AND is_winning_bid = ?", auctionID, true).
		Update("is_winning_bid", false).Error
}

func (s *Store) InsertBidTx(ctx context.Context, tx *gorm.DB, item *models.Bid) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) ListBids(ctx context.Context, params repository.ListBidsParams) ([]models.Bid, error) {
	if s == nil || s.db == nil || params.AuctionID == 0 {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Bid{}).
		Preload("Bidder").
		Where("auction_id = ?", params.AuctionID)
	if params.BidderID != nil && *params.BidderID > 0 {
		query = query.Where("bidder_id = ?", *params.BidderID)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "amount")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Bid
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBids(ctx context.Context, auctionID uint64) (int64, error) {
	if s == nil || s.db == nil || auctionID == 0 {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("auction_id = ?", auctionID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ListAuctionBidderIDs(ctx context.Context, auctionID uint64) ([]uint64, error) {
	if s == nil || s.db == nil || auctionID == 0 {
		return nil, nil
	}
	var ids []uint64
	err := s.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("auction_id = ?", auctionID).
		Distinct().
		Pluck("bidder_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// --- notification outbox ----------------------------------------------------

func (s *Store) InsertNotification(ctx context.Context, item *models.Notification) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) MarkNotificationSent(ctx context.Context, id uint64, sentAt time.Time) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": "sent", "sent_at": sentAt, "last_error": ""}).Error
}

func (s *Store) MarkNotificationFailed(ctx context.Context, id uint64, lastError string) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": "failed", "last_error": lastError}).Error
}

func (s *Store) ListNotifications(ctx context.Context, params repository.ListNotificationsParams) ([]models.Notification, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Notification{})
	if params.UserID != nil && *params.UserID > 0 {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Kind != nil && strings.TrimSpace(*params.Kind) != "" {
		query = query.Where("kind = ?", strings.TrimSpace(*params.Kind))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Notification
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
