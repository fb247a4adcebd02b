// Package memory holds concurrency-safe in-memory implementations of
// the engine's repositories. They back the test suites and the dev mode
// of the binary; production wiring uses the mysql package.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-engine/internal/domain"
)

type AuctionRepo struct {
	mu       sync.RWMutex
	auctions map[string]*domain.Auction
}

func NewAuctionRepo() *AuctionRepo {
	return &AuctionRepo{auctions: make(map[string]*domain.Auction)}
}

func (r *AuctionRepo) Create(ctx context.Context, auction *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *auction
	r.auctions[auction.ID] = &cp
	return nil
}

func (r *AuctionRepo) Get(ctx context.Context, auctionID string) (*domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	cp := *a
	return &cp, nil
}

func (r *AuctionRepo) UpdateCurrentBid(ctx context.Context, auctionID string, amount float64, incrementCount bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	// Monotonic: a stale write can never move the pointer downward.
	if amount > a.CurrentBid {
		a.CurrentBid = amount
	}
	if incrementCount {
		a.BidCount++
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (r *AuctionRepo) TransitionStatus(ctx context.Context, auctionID string, from, to domain.AuctionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	if a.Status != from {
		return fmt.Errorf("auction %s is %s, expected %s: %w",
			auctionID, a.Status, from, domain.ErrInvalidTransition)
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	return nil
}

func (r *AuctionRepo) SetWinner(ctx context.Context, auctionID, winnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	a.WinnerID = winnerID
	a.UpdatedAt = time.Now()
	return nil
}

func (r *AuctionRepo) FindExpired(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Auction
	for _, a := range r.auctions {
		if a.Status == domain.AuctionActive && !now.Before(a.EndTime) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *AuctionRepo) FindStartable(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Auction
	for _, a := range r.auctions {
		if a.Status == domain.AuctionScheduled && !now.Before(a.StartTime) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type BidRepo struct {
	mu   sync.RWMutex
	bids map[string][]*domain.Bid // auctionID -> bids
}

func NewBidRepo() *BidRepo {
	return &BidRepo{bids: make(map[string][]*domain.Bid)}
}

func (r *BidRepo) Insert(ctx context.Context, bid *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *bid
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], &cp)
	return nil
}

func (r *BidRepo) Update(ctx context.Context, bid *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, b := range r.bids[bid.AuctionID] {
		if b.ID == bid.ID {
			cp := *bid
			r.bids[bid.AuctionID][i] = &cp
			return nil
		}
	}
	return fmt.Errorf("bid %s: %w", bid.ID, domain.ErrBidNotFound)
}

func (r *BidRepo) GetByBidder(ctx context.Context, auctionID, bidderID string) (*domain.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bids[auctionID] {
		if b.BidderID == bidderID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("bidder %s on auction %s: %w", bidderID, auctionID, domain.ErrBidNotFound)
}

// ListByAuction returns bids ordered highest amount first, earliest
// creation time breaking ties.
func (r *BidRepo) ListByAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Bid, 0, len(r.bids[auctionID]))
	for _, b := range r.bids[auctionID] {
		cp := *b
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *BidRepo) Highest(ctx context.Context, auctionID string) (*domain.Bid, error) {
	bids, err := r.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("auction %s has no bids: %w", auctionID, domain.ErrBidNotFound)
	}
	return bids[0], nil
}

func (r *BidRepo) SetWinning(ctx context.Context, auctionID, bidID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for _, b := range r.bids[auctionID] {
		b.IsWinning = b.ID == bidID
		if b.IsWinning {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("bid %s on auction %s: %w", bidID, auctionID, domain.ErrBidNotFound)
	}
	return nil
}

type NotificationRepo struct {
	mu            sync.RWMutex
	notifications map[string][]*domain.Notification // userID -> rows
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{notifications: make(map[string][]*domain.Notification)}
}

func (r *NotificationRepo) Save(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *n
	r.notifications[n.UserID] = append(r.notifications[n.UserID], &cp)
	return nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Notification
	for _, n := range r.notifications[userID] {
		if unreadOnly && n.IsRead {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rows := range r.notifications {
		for _, n := range rows {
			if n.ID == notificationID {
				n.IsRead = true
				return nil
			}
		}
	}
	return fmt.Errorf("notification %s not found", notificationID)
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.notifications[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

type DeviceTokenRepo struct {
	mu     sync.RWMutex
	tokens map[string][]string // userID -> tokens
}

func NewDeviceTokenRepo() *DeviceTokenRepo {
	return &DeviceTokenRepo{tokens: make(map[string][]string)}
}

func (r *DeviceTokenRepo) Add(ctx context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens[userID] {
		if t == token {
			return nil
		}
	}
	r.tokens[userID] = append(r.tokens[userID], token)
	return nil
}

func (r *DeviceTokenRepo) Remove(ctx context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.tokens[userID][:0]
	for _, t := range r.tokens[userID] {
		if t != token {
			kept = append(kept, t)
		}
	}
	r.tokens[userID] = kept
	return nil
}

func (r *DeviceTokenRepo) ListByUser(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.tokens[userID]...), nil
}
