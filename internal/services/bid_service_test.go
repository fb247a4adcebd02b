package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-engine/internal/domain"
	"auction-engine/internal/infrastructure/memory"
	"auction-engine/pkg/logger"
)

func TestBidAdmissionService_PlaceBid_Preconditions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		setup         func(e *testEngine)
		auctionID     string
		bidderID      string
		amount        float64
		expectedError error
	}{
		{
			name:          "unknown_auction",
			setup:         func(e *testEngine) {},
			auctionID:     "missing",
			bidderID:      "bidder1",
			amount:        100,
			expectedError: domain.ErrAuctionNotFound,
		},
		{
			name: "seller_bids_own_auction",
			setup: func(e *testEngine) {
				require.NoError(t, e.auctions.Create(ctx, activeAuction("a1", "seller", 100, 10)))
			},
			auctionID:     "a1",
			bidderID:      "seller",
			amount:        100,
			expectedError: domain.ErrSelfBid,
		},
		{
			name: "auction_already_ended",
			setup: func(e *testEngine) {
				a := activeAuction("a1", "seller", 100, 10)
				a.Status = domain.AuctionEnded
				require.NoError(t, e.auctions.Create(ctx, a))
			},
			auctionID:     "a1",
			bidderID:      "bidder1",
			amount:        100,
			expectedError: domain.ErrAuctionClosed,
		},
		{
			name: "deadline_passed_but_not_swept",
			setup: func(e *testEngine) {
				a := activeAuction("a1", "seller", 100, 10)
				a.EndTime = time.Now().Add(-time.Minute)
				require.NoError(t, e.auctions.Create(ctx, a))
			},
			auctionID:     "a1",
			bidderID:      "bidder1",
			amount:        100,
			expectedError: domain.ErrAuctionClosed,
		},
		{
			name: "scheduled_before_start_time",
			setup: func(e *testEngine) {
				a := activeAuction("a1", "seller", 100, 10)
				a.Status = domain.AuctionScheduled
				a.StartTime = time.Now().Add(time.Hour)
				require.NoError(t, e.auctions.Create(ctx, a))
			},
			auctionID:     "a1",
			bidderID:      "bidder1",
			amount:        100,
			expectedError: domain.ErrAuctionClosed,
		},
		{
			name: "bid_below_minimum",
			setup: func(e *testEngine) {
				require.NoError(t, e.auctions.Create(ctx, activeAuction("a1", "seller", 100, 10)))
			},
			auctionID:     "a1",
			bidderID:      "bidder1",
			amount:        50,
			expectedError: domain.ErrBidTooLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			tt.setup(e)

			_, err := e.admission.PlaceBid(ctx, tt.auctionID, tt.bidderID, tt.amount)
			require.ErrorIs(t, err, tt.expectedError)
			assert.Empty(t, e.dispatcher.all(), "a rejected bid emits no events")
		})
	}
}

func TestBidAdmissionService_MinimumBidSequence(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	require.NoError(t, e.auctions.Create(ctx, activeAuction("a1", "seller", 100, 10)))

	// Base 100, increment 10: each accepted bid moves the floor up.
	steps := []struct {
		bidder   string
		amount   float64
		accepted bool
	}{
		{"bidder1", 100, true},
		{"bidder2", 105, false},
		{"bidder2", 110, true},
		{"bidder3", 115, false},
		{"bidder3", 120, true},
	}

	for _, s := range steps {
		_, err := e.admission.PlaceBid(ctx, "a1", s.bidder, s.amount)
		if s.accepted {
			require.NoError(t, err, "bid of %.0f by %s", s.amount, s.bidder)
		} else {
			require.ErrorIs(t, err, domain.ErrBidTooLow, "bid of %.0f by %s", s.amount, s.bidder)
		}
	}

	auction, err := e.auctions.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 120.0, auction.CurrentBid)
	assert.Equal(t, 3, auction.BidCount)
}

func TestBidAdmissionService_CurrentBidMonotonic(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	require.NoError(t, e.auctions.Create(ctx, activeAuction("a1", "seller", 100, 10)))

	last := 0.0
	bidders := []string{"bidder1", "bidder2", "bidder3"}
	amount := 100.0
	for i := 0; i < 9; i++ {
		_, err := e.admission.PlaceBid(ctx, "a1", bidders[i%3], amount)
		require.NoError(t, err)

		auction, err := e.auctions.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Greater(t, auction.CurrentBid, last)
		last = auction.CurrentBid
		amount = auction.MinimumBid()
	}
}

func TestBidAdmissionService_OutbidChain(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	require.NoError(t, e.auctions.Create(ctx, activeAuction("a1", "seller", 100, 50)))

	_, err := e.admission.PlaceBid(ctx, "a1", "userA", 150)
	require.NoError(t, err)
	_, err = e.admission.PlaceBid(ctx, "a1", "userB", 200)
	require.NoError(t, err)
	_, err = e.admission.PlaceBid(ctx, "a1", "userA", 250)
	require.NoError(t, err)

	outbid := e.dispatcher.byType(domain.EventBidOutbid)
	require.Len(t, outbid, 2)
	assert.Equal(t, "userA", outbid[0].UserID)
	assert.Equal(t, 200.0, outbid[0].Amount)
	assert.Equal(t, "userB", outbid[1].UserID)
	assert.Equal(t, 250.0, outbid[1].Amount)

	// The seller hears about every placed bid.
	placed := e.dispatcher.byType(domain.EventBidPlaced)
	require.Len(t, placed, 3)
	for _, ev := range placed {
		assert.Equal(t, "seller", ev.UserID)
	}
}

func TestBidAdmissionService_RaiseDoesNotNotifySelf(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	require.NoError(t, e.auctions.Create(ctx, activeAuction("a1", "seller", 100, 10)))

	_, err := e.admission.PlaceBid(ctx, "a1", "bidder1", 100)
	require.NoError(t, err)

	result, err := e.admission.PlaceBid(ctx, "a1", "bidder1", 120)
	require.NoError(t, err)
	assert.True(t, result.IsUpdate)
	assert.Equal(t, 100.0, result.PreviousAmount)

	assert.Empty(t, e.dispatcher.byType(domain.EventBidOutbid),
		"raising your own winning bid is not an outbid")

	auction, err := e.auctions.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 120.0, auction.CurrentBid)
	assert.Equal(t, 1, auction.BidCount, "bid count tracks distinct bidders")
}

func TestBidAdmissionService_LazyActivation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	a := activeAuction("a1", "seller", 100, 10)
	a.Status = domain.AuctionScheduled
	a.StartTime = time.Now().Add(-time.Minute)
	require.NoError(t, e.auctions.Create(ctx, a))

	_, err := e.admission.PlaceBid(ctx, "a1", "bidder1", 100)
	require.NoError(t, err)

	auction, err := e.auctions.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionActive, auction.Status,
		"first bid after start time activates the auction")
}

// sweepRacingRepo lets a concurrent sweep win the SCHEDULED->ACTIVE
// flip just before the admission path attempts it.
type sweepRacingRepo struct {
	*memory.AuctionRepo
	raced bool
}

func (r *sweepRacingRepo) TransitionStatus(ctx context.Context, auctionID string, from, to domain.AuctionStatus) error {
	if !r.raced && from == domain.AuctionScheduled && to == domain.AuctionActive {
		r.raced = true
		if err := r.AuctionRepo.TransitionStatus(ctx, auctionID, from, to); err != nil {
			return err
		}
	}
	return r.AuctionRepo.TransitionStatus(ctx, auctionID, from, to)
}

func TestBidAdmissionService_LazyActivationLosesRace(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()
	m := newTestMetrics()

	auctions := &sweepRacingRepo{AuctionRepo: memory.NewAuctionRepo()}
	bids := memory.NewBidRepo()
	locks := NewAuctionLocks()
	dispatcher := &captureDispatcher{}
	ledger := NewBidLedger(bids, log)
	resolver := NewAuctionResolver(auctions, bids, locks, dispatcher, m, log)
	admission := NewBidAdmissionService(auctions, ledger, locks, dispatcher, resolver, m, log)

	a := activeAuction("a1", "seller", 100, 10)
	a.Status = domain.AuctionScheduled
	a.StartTime = time.Now().Add(-time.Minute)
	require.NoError(t, auctions.Create(ctx, a))

	// The sweep activates first; the bid must still be admitted against
	// the fresh ACTIVE state instead of bouncing off the stale copy.
	result, err := admission.PlaceBid(ctx, "a1", "bidder1", 100)
	require.NoError(t, err)
	assert.True(t, auctions.raced)
	assert.Equal(t, 100.0, result.Bid.Amount)

	stored, err := auctions.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionActive, stored.Status)
	assert.Equal(t, 100.0, stored.CurrentBid)
}

func TestBidAdmissionService_BuyNowEndsAuction(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	a := activeAuction("a1", "seller", 100, 10)
	a.BuyNowPrice = 500
	require.NoError(t, e.auctions.Create(ctx, a))

	_, err := e.admission.PlaceBid(ctx, "a1", "bidder1", 500)
	require.NoError(t, err)

	auction, err := e.auctions.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionEnded, auction.Status)
	assert.Equal(t, "bidder1", auction.WinnerID)

	won := e.dispatcher.byType(domain.EventAuctionWon)
	require.Len(t, won, 1)
	assert.Equal(t, "bidder1", won[0].UserID)

	// No further bids after a buy-now.
	_, err = e.admission.PlaceBid(ctx, "a1", "bidder2", 600)
	require.ErrorIs(t, err, domain.ErrAuctionClosed)
}
