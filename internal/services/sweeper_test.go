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

type fakeLeader struct {
	leader bool
}

func (f *fakeLeader) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	return f.leader, nil
}

func (f *fakeLeader) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	return f.leader, nil
}

func (f *fakeLeader) ReleaseLeadership(ctx context.Context, instanceID string) error {
	f.leader = false
	return nil
}

func newTestSweeper(e *testEngine, leader domain.LeaderElection) *ExpirySweeper {
	return NewExpirySweeper(e.auctions, e.resolver, leader, "test-instance",
		time.Minute, newTestMetrics(), logger.NewNop())
}

func TestExpirySweeper_ResolvesExpired(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	expired := activeAuction("a1", "seller", 100, 10)
	expired.EndTime = time.Now().Add(-time.Minute)
	require.NoError(t, e.auctions.Create(ctx, expired))

	running := activeAuction("a2", "seller", 100, 10)
	require.NoError(t, e.auctions.Create(ctx, running))

	require.NoError(t, e.bids.Insert(ctx, &domain.Bid{
		ID: "b1", AuctionID: "a1", BidderID: "bidder1", Amount: 150, CreatedAt: time.Now(),
	}))

	sweeper := newTestSweeper(e, nil)
	sweeper.Tick(ctx)

	a1, err := e.auctions.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionEnded, a1.Status)
	assert.Equal(t, "bidder1", a1.WinnerID)

	a2, err := e.auctions.Get(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionActive, a2.Status, "a running auction is left alone")
}

func TestExpirySweeper_ActivatesScheduled(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	due := activeAuction("a1", "seller", 100, 10)
	due.Status = domain.AuctionScheduled
	due.StartTime = time.Now().Add(-time.Minute)
	require.NoError(t, e.auctions.Create(ctx, due))

	future := activeAuction("a2", "seller", 100, 10)
	future.Status = domain.AuctionScheduled
	future.StartTime = time.Now().Add(time.Hour)
	require.NoError(t, e.auctions.Create(ctx, future))

	sweeper := newTestSweeper(e, nil)
	sweeper.Tick(ctx)

	a1, err := e.auctions.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionActive, a1.Status)

	a2, err := e.auctions.Get(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionScheduled, a2.Status)
}

func TestExpirySweeper_NonLeaderSkips(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	expired := activeAuction("a1", "seller", 100, 10)
	expired.EndTime = time.Now().Add(-time.Minute)
	require.NoError(t, e.auctions.Create(ctx, expired))

	sweeper := newTestSweeper(e, &fakeLeader{leader: false})
	sweeper.Tick(ctx)

	a1, err := e.auctions.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionActive, a1.Status, "only the leader sweeps")

	sweeper = newTestSweeper(e, &fakeLeader{leader: true})
	sweeper.Tick(ctx)

	a1, err = e.auctions.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionEnded, a1.Status)
}

func TestExpirySweeper_OverlappingSweeps(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	expired := activeAuction("a1", "seller", 100, 10)
	expired.EndTime = time.Now().Add(-time.Minute)
	require.NoError(t, e.auctions.Create(ctx, expired))
	require.NoError(t, e.bids.Insert(ctx, &domain.Bid{
		ID: "b1", AuctionID: "a1", BidderID: "bidder1", Amount: 150, CreatedAt: time.Now(),
	}))

	sweeper := newTestSweeper(e, nil)
	sweeper.Tick(ctx)
	sweeper.Tick(ctx)

	won := e.dispatcher.byType(domain.EventAuctionWon)
	assert.Len(t, won, 1, "a second sweep never re-resolves")
}
