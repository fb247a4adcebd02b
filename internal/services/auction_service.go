package services

import (
	"context"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"
)

// AuctionService covers the listing side of the lifecycle: creation,
// lookup, cancellation and bid history. Bid admission and resolution
// live in their own services.
type AuctionService struct {
	auctions domain.AuctionRepository
	bids     domain.BidRepository
	locks    *AuctionLocks
	log      logger.Logger
	now      func() time.Time
}

func NewAuctionService(auctions domain.AuctionRepository, bids domain.BidRepository, locks *AuctionLocks, log logger.Logger) *AuctionService {
	return &AuctionService{
		auctions: auctions,
		bids:     bids,
		locks:    locks,
		log:      log,
		now:      time.Now,
	}
}

// CreateAuctionParams is the seller's listing input.
type CreateAuctionParams struct {
	Title        string
	Description  string
	SellerID     string
	BasePrice    float64
	BidIncrement float64
	ReservePrice float64
	BuyNowPrice  float64
	StartTime    time.Time
	EndTime      time.Time
}

// Create stores a new listing. An auction starting in the future is
// SCHEDULED; one whose window is already open starts ACTIVE.
func (s *AuctionService) Create(ctx context.Context, p CreateAuctionParams) (*domain.Auction, error) {
	now := s.now()

	status := domain.AuctionScheduled
	if !now.Before(p.StartTime) {
		status = domain.AuctionActive
	}

	increment := p.BidIncrement
	if increment <= 0 {
		increment = 10
	}

	auction := &domain.Auction{
		ID:           utils.GenerateID("auction"),
		Title:        p.Title,
		Description:  p.Description,
		SellerID:     p.SellerID,
		BasePrice:    p.BasePrice,
		BidIncrement: increment,
		ReservePrice: p.ReservePrice,
		BuyNowPrice:  p.BuyNowPrice,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.auctions.Create(ctx, auction); err != nil {
		return nil, err
	}

	s.log.Info("Auction created",
		"auction_id", auction.ID, "seller_id", p.SellerID, "status", status.String())
	return auction, nil
}

func (s *AuctionService) Get(ctx context.Context, auctionID string) (*domain.Auction, error) {
	return s.auctions.Get(ctx, auctionID)
}

// Cancel withdraws a listing. Auctions that already collected bids
// cannot be cancelled; that protects committed bidders.
func (s *AuctionService) Cancel(ctx context.Context, auctionID string) error {
	unlock := s.locks.Lock(auctionID)
	defer unlock()

	auction, err := s.auctions.Get(ctx, auctionID)
	if err != nil {
		return err
	}

	if err := domain.ValidateTransition(auction, domain.AuctionCancelled, s.now()); err != nil {
		return err
	}

	if err := s.auctions.TransitionStatus(ctx, auctionID, auction.Status, domain.AuctionCancelled); err != nil {
		return err
	}

	s.log.Info("Auction cancelled", "auction_id", auctionID)
	return nil
}

// BidHistory returns the auction's bids, highest first.
func (s *AuctionService) BidHistory(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	if _, err := s.auctions.Get(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.bids.ListByAuction(ctx, auctionID)
}
