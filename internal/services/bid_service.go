package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/metrics"
	"auction-engine/pkg/logger"
)

// BidResult is returned to the caller after a successful admission.
type BidResult struct {
	Bid            *domain.Bid
	IsUpdate       bool
	PreviousAmount float64
	CurrentBid     float64
}

// BidAdmissionService validates and admits bids. Admission holds the
// target auction's lock only; different auctions never block each
// other. Ledger and auction mutations commit before any event goes
// out, and event delivery can never fail the bid.
type BidAdmissionService struct {
	auctions   domain.AuctionRepository
	ledger     *BidLedger
	locks      *AuctionLocks
	dispatcher domain.NotificationDispatcher
	resolver   *AuctionResolver
	metrics    *metrics.Metrics
	log        logger.Logger
	now        func() time.Time
}

func NewBidAdmissionService(
	auctions domain.AuctionRepository,
	ledger *BidLedger,
	locks *AuctionLocks,
	dispatcher domain.NotificationDispatcher,
	resolver *AuctionResolver,
	m *metrics.Metrics,
	log logger.Logger,
) *BidAdmissionService {
	return &BidAdmissionService{
		auctions:   auctions,
		ledger:     ledger,
		locks:      locks,
		dispatcher: dispatcher,
		resolver:   resolver,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

// PlaceBid runs the admission pipeline for one bid. Precondition
// failures come back in a fixed order: unknown auction, self bid,
// closed auction, amount below minimum.
func (s *BidAdmissionService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) (*BidResult, error) {
	result, auction, err := s.admit(ctx, auctionID, bidderID, amount)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	s.metrics.BidsAdmitted.Inc()
	s.log.Info("Bid admitted",
		"auction_id", auctionID, "bidder_id", bidderID,
		"amount", amount, "is_update", result.IsUpdate)

	// Buy-now: an admitted bid at or above the buy-now price ends the
	// auction immediately. The admission lock is already released; the
	// resolver re-acquires it.
	if auction.BuyNowPrice > 0 && amount >= auction.BuyNowPrice {
		if _, err := s.resolver.Resolve(ctx, auction); err != nil {
			s.log.Error("Buy-now resolution failed", "auction_id", auctionID, "error", err)
		}
	}

	return result, nil
}

func (s *BidAdmissionService) admit(ctx context.Context, auctionID, bidderID string, amount float64) (*BidResult, *domain.Auction, error) {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		return nil, nil, err
	}

	if auction.SellerID == bidderID {
		return nil, nil, domain.ErrSelfBid
	}

	now := s.now()

	// Lazy activation: a scheduled auction whose start time has passed
	// flips to ACTIVE on first contact instead of waiting for a sweep.
	if auction.Status == domain.AuctionScheduled && !now.Before(auction.StartTime) {
		if err := s.auctions.TransitionStatus(ctx, auctionID, domain.AuctionScheduled, domain.AuctionActive); err == nil {
			auction.Status = domain.AuctionActive
		} else {
			// A sweep won the activation race; re-read so the bid is
			// judged against the fresh status, not the stale copy.
			auction, err = s.auctions.Get(ctx, auctionID)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	if auction.Status != domain.AuctionActive || !now.Before(auction.EndTime) {
		return nil, nil, domain.ErrAuctionClosed
	}

	admitted, err := s.ledger.Admit(ctx, auction, bidderID, amount, now)
	if err != nil {
		return nil, nil, err
	}

	if err := s.auctions.UpdateCurrentBid(ctx, auctionID, amount, !admitted.IsUpdate); err != nil {
		return nil, nil, fmt.Errorf("update auction %s after admission: %w", auctionID, err)
	}
	auction.CurrentBid = amount
	if !admitted.IsUpdate {
		auction.BidCount++
	}

	// Mutations are committed; emit events. Dispatch is asynchronous
	// and best-effort by contract.
	s.dispatcher.Dispatch(domain.NewBidPlacedEvent(auction, amount))
	if admitted.PreviousHighest != nil && admitted.PreviousHighest.BidderID != bidderID {
		s.dispatcher.Dispatch(domain.NewOutbidEvent(
			auction, admitted.PreviousHighest.BidderID, admitted.PreviousHighest.Amount, amount))
	}

	result := &BidResult{
		Bid:        admitted.Bid,
		IsUpdate:   admitted.IsUpdate,
		CurrentBid: amount,
	}
	if admitted.PreviousHighest != nil {
		result.PreviousAmount = admitted.PreviousHighest.Amount
	}
	return result, auction, nil
}

func (s *BidAdmissionService) countRejection(err error) {
	reason := "error"
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		reason = "not_found"
	case errors.Is(err, domain.ErrSelfBid):
		reason = "self_bid"
	case errors.Is(err, domain.ErrAuctionClosed):
		reason = "auction_closed"
	case errors.Is(err, domain.ErrBidTooLow):
		reason = "bid_too_low"
	case errors.Is(err, domain.ErrStaleBid):
		reason = "stale_bid"
	}
	s.metrics.BidsRejected.WithLabelValues(reason).Inc()
}
