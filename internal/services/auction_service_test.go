package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
)

func newTestAuctionService(e *testEngine) *AuctionService {
	return NewAuctionService(e.auctions, e.bids, e.locks, logger.NewNop())
}

func TestAuctionService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		params         CreateAuctionParams
		expectedStatus domain.AuctionStatus
	}{
		{
			name: "future_start_is_scheduled",
			params: CreateAuctionParams{
				Title:     "Vintage Camera",
				SellerID:  "seller",
				BasePrice: 100,
				StartTime: time.Now().Add(time.Hour),
				EndTime:   time.Now().Add(25 * time.Hour),
			},
			expectedStatus: domain.AuctionScheduled,
		},
		{
			name: "open_window_starts_active",
			params: CreateAuctionParams{
				Title:     "Vintage Camera",
				SellerID:  "seller",
				BasePrice: 100,
				StartTime: time.Now().Add(-time.Minute),
				EndTime:   time.Now().Add(24 * time.Hour),
			},
			expectedStatus: domain.AuctionActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			svc := newTestAuctionService(e)

			created, err := svc.Create(ctx, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, created.Status)
			assert.NotEmpty(t, created.ID)
			assert.Equal(t, 10.0, created.BidIncrement, "increment defaults when unset")

			stored, err := svc.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, stored.Status)
		})
	}
}

func TestAuctionService_Cancel(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	svc := newTestAuctionService(e)

	created, err := svc.Create(ctx, CreateAuctionParams{
		Title:     "Vintage Camera",
		SellerID:  "seller",
		BasePrice: 100,
		StartTime: time.Now().Add(-time.Minute),
		EndTime:   time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, created.ID))

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionCancelled, stored.Status)

	// No bids accepted once cancelled.
	_, err = e.admission.PlaceBid(ctx, created.ID, "bidder1", 100)
	require.ErrorIs(t, err, domain.ErrAuctionClosed)
}

func TestAuctionService_CancelRejectedWithBids(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	svc := newTestAuctionService(e)

	created, err := svc.Create(ctx, CreateAuctionParams{
		Title:     "Vintage Camera",
		SellerID:  "seller",
		BasePrice: 100,
		StartTime: time.Now().Add(-time.Minute),
		EndTime:   time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	_, err = e.admission.PlaceBid(ctx, created.ID, "bidder1", 100)
	require.NoError(t, err)

	err = svc.Cancel(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrCancelHasBids)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionActive, stored.Status)
}

func TestAuctionService_BidHistory(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	svc := newTestAuctionService(e)

	require.NoError(t, e.auctions.Create(ctx, activeAuction("a1", "seller", 100, 10)))
	for _, b := range []struct {
		bidder string
		amount float64
	}{
		{"bidder1", 100},
		{"bidder2", 110},
		{"bidder3", 120},
	} {
		_, err := e.admission.PlaceBid(ctx, "a1", b.bidder, b.amount)
		require.NoError(t, err)
	}

	history, err := svc.BidHistory(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "bidder3", history[0].BidderID, "highest bid first")
	assert.True(t, history[0].IsWinning)

	_, err = svc.BidHistory(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}
