package bidding

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tractorbid/internal/models"
)

func liveAuction() *models.Auction {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	return &models.Auction{
		ID:               1,
		VehicleID:        1,
		StartTime:        start,
		EndTime:          start.Add(2 * time.Hour),
		Status:           models.AuctionStatusLive,
		BiddingType:      models.BiddingTypeOpen,
		CurrentBid:       decimal.NewFromInt(1000),
		MinimumIncrement: decimal.NewFromInt(100),
	}
}

func TestCheckEligibility(t *testing.T) {
	buyer := &models.User{ID: 7, Role: models.RoleBuyer, IsEligibleForBid: true}
	admin := &models.User{ID: 99, Role: models.RoleAdmin, IsEligibleForBid: true}
	vehicle := &models.Vehicle{ID: 1, SellerID: 3}
	inWindow := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		mutate   func(s *Snapshot)
		amount   decimal.Decimal
		wantCode string
	}{
		{
			name:   "happy path",
			amount: decimal.NewFromInt(1100),
		},
		{
			name: "flagged user",
			mutate: func(s *Snapshot) {
				s.User = &models.User{ID: 7, Role: models.RoleBuyer, IsEligibleForBid: false}
			},
			amount:   decimal.NewFromInt(1100),
			wantCode: DenyNotEligible,
		},
		{
			name: "ended by clock",
			mutate: func(s *Snapshot) {
				s.Now = s.Auction.EndTime.Add(time.Second)
			},
			amount:   decimal.NewFromInt(1100),
			wantCode: DenyAuctionEnded,
		},
		{
			name: "before start",
			mutate: func(s *Snapshot) {
				s.Now = s.Auction.StartTime.Add(-time.Minute)
				s.Auction.Status = models.AuctionStatusScheduled
			},
			amount:   decimal.NewFromInt(1100),
			wantCode: DenyAuctionNotStarted,
		},
		{
			name: "status lags but window open",
			mutate: func(s *Snapshot) {
				s.Auction.Status = models.AuctionStatusScheduled
			},
			amount: decimal.NewFromInt(1100),
		},
		{
			name: "own vehicle",
			mutate: func(s *Snapshot) {
				s.User = &models.User{ID: 3, Role: models.RoleSeller, IsEligibleForBid: true}
				s.HasActiveMembership = true
			},
			amount:   decimal.NewFromInt(1100),
			wantCode: DenyOwnVehicle,
		},
		{
			name:     "below minimum increment",
			amount:   decimal.NewFromInt(1099),
			wantCode: DenyBidTooLow,
		},
		{
			name:   "exactly minimum increment",
			amount: decimal.NewFromInt(1100),
		},
		{
			name: "no membership",
			mutate: func(s *Snapshot) {
				s.HasActiveMembership = false
			},
			amount:   decimal.NewFromInt(1100),
			wantCode: DenyMembershipRequired,
		},
		{
			name: "emd unpaid",
			mutate: func(s *Snapshot) {
				s.Auction.EMDRequired = true
				s.Auction.EMDAmount = decimal.NewFromInt(5000)
			},
			amount:   decimal.NewFromInt(1100),
			wantCode: DenyEMDRequired,
		},
		{
			name: "emd pending is not paid",
			mutate: func(s *Snapshot) {
				s.Auction.EMDRequired = true
				s.EMD = &models.EarnestMoneyDeposit{Status: models.EMDStatusPending}
			},
			amount:   decimal.NewFromInt(1100),
			wantCode: DenyEMDRequired,
		},
		{
			name: "emd paid",
			mutate: func(s *Snapshot) {
				s.Auction.EMDRequired = true
				s.EMD = &models.EarnestMoneyDeposit{Status: models.EMDStatusPaid}
			},
			amount: decimal.NewFromInt(1100),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := liveAuction()
			snap := Snapshot{
				Now:                 inWindow,
				Auction:             a,
				Vehicle:             vehicle,
				User:                buyer,
				HasActiveMembership: true,
			}
			if tc.mutate != nil {
				tc.mutate(&snap)
			}
			deny := CheckEligibility(snap, tc.amount)
			if tc.wantCode == "" {
				if deny != nil {
					t.Fatalf("unexpected denial: %s (%s)", deny.Code, deny.Message)
				}
				return
			}
			if deny == nil {
				t.Fatalf("expected denial %s, got allow", tc.wantCode)
			}
			if deny.Code != tc.wantCode {
				t.Fatalf("code=%s want=%s", deny.Code, tc.wantCode)
			}
		})
	}

	t.Run("admin bypasses start time membership and emd", func(t *testing.T) {
		a := liveAuction()
		a.Status = models.AuctionStatusScheduled
		a.EMDRequired = true
		snap := Snapshot{
			Now:     a.StartTime.Add(-time.Hour),
			Auction: a,
			Vehicle: vehicle,
			User:    admin,
		}
		if deny := CheckEligibility(snap, decimal.NewFromInt(1100)); deny != nil {
			t.Fatalf("admin denied: %s", deny.Code)
		}
	})

	t.Run("bid too low carries recomputed minimum", func(t *testing.T) {
		a := liveAuction()
		snap := Snapshot{Now: inWindow, Auction: a, Vehicle: vehicle, User: buyer, HasActiveMembership: true}
		deny := CheckEligibility(snap, decimal.NewFromInt(500))
		if deny == nil || deny.Code != DenyBidTooLow {
			t.Fatalf("expected bid_too_low, got %+v", deny)
		}
		if deny.MinimumBid == nil || !deny.MinimumBid.Equal(decimal.NewFromInt(1100)) {
			t.Fatalf("minimum bid hint=%v want=1100", deny.MinimumBid)
		}
	})

	t.Run("emd denial redirects with amount", func(t *testing.T) {
		a := liveAuction()
		a.EMDRequired = true
		a.EMDAmount = decimal.NewFromInt(5000)
		snap := Snapshot{Now: inWindow, Auction: a, Vehicle: vehicle, User: buyer, HasActiveMembership: true}
		deny := CheckEligibility(snap, decimal.NewFromInt(1100))
		if deny == nil || deny.Code != DenyEMDRequired {
			t.Fatalf("expected emd_required, got %+v", deny)
		}
		if !deny.RedirectToEMD {
			t.Fatalf("expected redirect flag")
		}
		if deny.EMDAmount == nil || !deny.EMDAmount.Equal(decimal.NewFromInt(5000)) {
			t.Fatalf("emd amount hint=%v want=5000", deny.EMDAmount)
		}
	})
}
