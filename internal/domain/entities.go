package domain

import (
	"time"
)

// Auction is the shared mutable record of a single listing. CurrentBid,
// BidCount and Status are the only fields written concurrently; callers
// must hold the per-auction admission lock for any read-then-write.
type Auction struct {
	ID           string
	Title        string
	Description  string
	SellerID     string
	BasePrice    float64
	BidIncrement float64
	ReservePrice float64
	BuyNowPrice  float64
	CurrentBid   float64
	BidCount     int
	StartTime    time.Time
	EndTime      time.Time
	Status       AuctionStatus
	WinnerID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MinimumBid is the smallest amount the next bid must reach: base price
// while the auction has no bids, current bid plus increment afterwards.
func (a *Auction) MinimumBid() float64 {
	if a.CurrentBid > 0 {
		return a.CurrentBid + a.BidIncrement
	}
	return a.BasePrice
}

type AuctionStatus int

const (
	AuctionDraft AuctionStatus = iota
	AuctionScheduled
	AuctionActive
	AuctionEnded
	AuctionSold
	AuctionCancelled
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionDraft:
		return "draft"
	case AuctionScheduled:
		return "scheduled"
	case AuctionActive:
		return "active"
	case AuctionEnded:
		return "ended"
	case AuctionSold:
		return "sold"
	case AuctionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status admits no further transitions.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionSold || s == AuctionCancelled
}

// Bid is one bidder's standing bid on an auction. A bidder raising
// their own bid mutates Amount and CreatedAt in place; there is never
// more than one Bid per (auction, bidder) pair.
type Bid struct {
	ID        string
	AuctionID string
	BidderID  string
	Amount    float64
	IsWinning bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Notification is the persisted in-app record produced by the
// dispatcher's durable channel.
type Notification struct {
	ID        string
	UserID    string
	AuctionID string
	Type      EventType
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
