package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-engine/internal/domain"
)

func TestBidAdmissionService_ConcurrentBidsSingleAuction(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	require.NoError(t, e.auctions.Create(ctx, activeAuction("a1", "seller", 100, 1)))

	const bidders = 8
	const attempts = 30

	var mu sync.Mutex
	var admitted []float64

	var wg sync.WaitGroup
	for g := 0; g < bidders; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			bidder := fmt.Sprintf("bidder%d", g)
			for i := 0; i < attempts; i++ {
				amount := float64(100 + g + i*bidders)
				result, err := e.admission.PlaceBid(ctx, "a1", bidder, amount)
				if err != nil {
					continue
				}
				mu.Lock()
				admitted = append(admitted, result.Bid.Amount)
				mu.Unlock()
			}
		}(g)
	}
	wg.Wait()

	require.NotEmpty(t, admitted)
	highest := admitted[0]
	for _, amount := range admitted {
		if amount > highest {
			highest = amount
		}
	}

	auction, err := e.auctions.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, highest, auction.CurrentBid,
		"current bid equals the maximum admitted amount")

	all, err := e.bids.ListByAuction(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, auction.BidCount, len(all), "bid count tracks distinct bidders")

	perBidder := make(map[string]int)
	winning := 0
	for _, b := range all {
		perBidder[b.BidderID]++
		if b.IsWinning {
			winning++
			assert.Equal(t, highest, b.Amount)
		}
	}
	assert.Equal(t, 1, winning, "exactly one winning bid")
	for bidder, count := range perBidder {
		assert.Equal(t, 1, count, "one bid record for %s", bidder)
	}
}

func TestAuctionResolver_ResolutionRacesAdmissions(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()

	a := activeAuction("a1", "seller", 100, 1)
	a.EndTime = time.Now().Add(150 * time.Millisecond)
	require.NoError(t, e.auctions.Create(ctx, a))

	// One committed bid so resolution always has a winner to pick.
	_, err := e.admission.PlaceBid(ctx, "a1", "bidder0", 100)
	require.NoError(t, err)

	deadline := a.EndTime
	var wg sync.WaitGroup

	for g := 1; g <= 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			bidder := fmt.Sprintf("bidder%d", g)
			for i := 0; ; i++ {
				amount := float64(101 + g + i*8)
				_, err := e.admission.PlaceBid(ctx, "a1", bidder, amount)
				if errors.Is(err, domain.ErrAuctionClosed) {
					return
				}
				if time.Now().After(deadline.Add(time.Second)) {
					return
				}
			}
		}(g)
	}

	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(time.Until(deadline))
			for i := 0; i < 3; i++ {
				auction, err := e.auctions.Get(ctx, "a1")
				if err != nil {
					return
				}
				_, _ = e.resolver.Resolve(ctx, auction)
			}
		}()
	}
	wg.Wait()

	auction, err := e.auctions.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionEnded, auction.Status)

	won := e.dispatcher.byType(domain.EventAuctionWon)
	require.Len(t, won, 1, "racing resolutions emit exactly one win")
	assert.Equal(t, auction.WinnerID, won[0].UserID)

	sellerEnded := 0
	for _, ev := range e.dispatcher.byType(domain.EventAuctionEnded) {
		if ev.UserID == "seller" {
			sellerEnded++
		}
	}
	assert.Equal(t, 1, sellerEnded, "the seller hears about the end exactly once")

	winningBid, err := e.bids.Highest(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, winningBid.BidderID, auction.WinnerID)
	assert.Equal(t, winningBid.Amount, won[0].Amount)
}
