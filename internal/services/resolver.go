package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/metrics"
	"auction-engine/pkg/logger"
)

// ResolutionResult describes what a Resolve call actually did.
type ResolutionResult struct {
	AuctionID       string
	WinnerID        string
	WinningAmount   float64
	AlreadyResolved bool
}

// AuctionResolver computes the final winner of an expired auction and
// performs the ENDED and SOLD transitions. The status flip is a guarded
// compare-and-swap, so overlapping sweeps resolve each auction exactly
// once; the loser of the race sees ErrInvalidTransition and treats it
// as already resolved.
type AuctionResolver struct {
	auctions   domain.AuctionRepository
	bids       domain.BidRepository
	locks      *AuctionLocks
	dispatcher domain.NotificationDispatcher
	metrics    *metrics.Metrics
	log        logger.Logger
	now        func() time.Time
}

func NewAuctionResolver(
	auctions domain.AuctionRepository,
	bids domain.BidRepository,
	locks *AuctionLocks,
	dispatcher domain.NotificationDispatcher,
	m *metrics.Metrics,
	log logger.Logger,
) *AuctionResolver {
	return &AuctionResolver{
		auctions:   auctions,
		bids:       bids,
		locks:      locks,
		dispatcher: dispatcher,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

// Resolve ends an auction: winner selection, ENDED transition,
// resolution events. A second call for the same auction is a no-op.
func (r *AuctionResolver) Resolve(ctx context.Context, auction *domain.Auction) (*ResolutionResult, error) {
	unlock := r.locks.Lock(auction.ID)
	defer unlock()

	winning, err := r.bids.Highest(ctx, auction.ID)
	if err != nil && !errors.Is(err, domain.ErrBidNotFound) {
		return nil, fmt.Errorf("resolve auction %s: read winning bid: %w", auction.ID, err)
	}

	if err := r.auctions.TransitionStatus(ctx, auction.ID, domain.AuctionActive, domain.AuctionEnded); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Benign race: another sweep or a buy-now got here first.
			r.metrics.AuctionsResolved.WithLabelValues("already_resolved").Inc()
			return &ResolutionResult{AuctionID: auction.ID, AlreadyResolved: true}, nil
		}
		return nil, fmt.Errorf("resolve auction %s: %w", auction.ID, err)
	}
	auction.Status = domain.AuctionEnded

	if winning == nil {
		r.metrics.AuctionsResolved.WithLabelValues("no_bids").Inc()
		r.log.Info("Auction ended without bids", "auction_id", auction.ID)
		r.dispatcher.Dispatch(domain.NewAuctionEndedNoWinnerEvent(auction))
		return &ResolutionResult{AuctionID: auction.ID}, nil
	}

	if err := r.auctions.SetWinner(ctx, auction.ID, winning.BidderID); err != nil {
		return nil, fmt.Errorf("resolve auction %s: set winner: %w", auction.ID, err)
	}
	auction.WinnerID = winning.BidderID

	r.metrics.AuctionsResolved.WithLabelValues("won").Inc()
	r.log.Info("Auction resolved",
		"auction_id", auction.ID, "winner_id", winning.BidderID, "amount", winning.Amount)

	r.dispatcher.Dispatch(domain.NewAuctionWonEvent(auction, winning.BidderID, winning.Amount))
	r.dispatcher.Dispatch(domain.NewAuctionEndedSellerEvent(auction, winning.BidderID, winning.Amount))
	r.notifyLosingBidders(ctx, auction, winning.BidderID)

	return &ResolutionResult{
		AuctionID:     auction.ID,
		WinnerID:      winning.BidderID,
		WinningAmount: winning.Amount,
	}, nil
}

// notifyLosingBidders sends one losing event per bidder, each carrying
// that bidder's own highest amount.
func (r *AuctionResolver) notifyLosingBidders(ctx context.Context, auction *domain.Auction, winnerID string) {
	all, err := r.bids.ListByAuction(ctx, auction.ID)
	if err != nil {
		r.log.Error("Failed to list bids for losing notifications",
			"auction_id", auction.ID, "error", err)
		return
	}

	highestPerBidder := make(map[string]float64)
	for _, b := range all {
		if b.BidderID == winnerID {
			continue
		}
		if b.Amount > highestPerBidder[b.BidderID] {
			highestPerBidder[b.BidderID] = b.Amount
		}
	}

	bidders := make([]string, 0, len(highestPerBidder))
	for bidderID := range highestPerBidder {
		bidders = append(bidders, bidderID)
	}
	sort.Strings(bidders)

	for _, bidderID := range bidders {
		r.dispatcher.Dispatch(domain.NewAuctionLostEvent(auction, bidderID, highestPerBidder[bidderID]))
	}
}

// ConfirmPayment is the payment gateway's capture callback. It flips
// ENDED to SOLD for the recorded winner and notifies both sides; the
// seller's message carries the shipping details from the payload.
func (r *AuctionResolver) ConfirmPayment(ctx context.Context, conf *domain.PaymentConfirmation) error {
	unlock := r.locks.Lock(conf.AuctionID)
	defer unlock()

	auction, err := r.auctions.Get(ctx, conf.AuctionID)
	if err != nil {
		return err
	}

	if auction.WinnerID == "" || auction.WinnerID != conf.WinnerID {
		return fmt.Errorf("payment for auction %s: confirmed winner %s does not match recorded winner: %w",
			conf.AuctionID, conf.WinnerID, domain.ErrInvalidTransition)
	}

	if err := domain.ValidateTransition(auction, domain.AuctionSold, r.now()); err != nil {
		return err
	}
	if err := r.auctions.TransitionStatus(ctx, conf.AuctionID, domain.AuctionEnded, domain.AuctionSold); err != nil {
		return err
	}
	auction.Status = domain.AuctionSold

	r.log.Info("Payment confirmed",
		"auction_id", conf.AuctionID, "winner_id", conf.WinnerID, "amount", conf.Amount)

	r.dispatcher.Dispatch(domain.NewPaymentConfirmedWinnerEvent(auction, conf.WinnerID, conf.Amount))
	r.dispatcher.Dispatch(domain.NewPaymentConfirmedSellerEvent(auction, conf.Amount, conf.ShippingInfo))
	return nil
}
