package domain

import (
	"context"
	"time"
)

// Repository interfaces
type AuctionRepository interface {
	Create(ctx context.Context, auction *Auction) error
	Get(ctx context.Context, auctionID string) (*Auction, error)
	// UpdateCurrentBid moves the current-bid pointer; bid count is
	// incremented only for first-time bidders.
	UpdateCurrentBid(ctx context.Context, auctionID string, amount float64, incrementCount bool) error
	// TransitionStatus flips status from -> to atomically relative to
	// other writers and returns ErrInvalidTransition when the auction
	// is no longer in the expected state. This is the single-shot
	// guard behind exactly-once resolution.
	TransitionStatus(ctx context.Context, auctionID string, from, to AuctionStatus) error
	SetWinner(ctx context.Context, auctionID, winnerID string) error
	// FindExpired returns ACTIVE auctions whose end time has passed.
	FindExpired(ctx context.Context, now time.Time) ([]*Auction, error)
	// FindStartable returns SCHEDULED auctions whose start time has passed.
	FindStartable(ctx context.Context, now time.Time) ([]*Auction, error)
}

type BidRepository interface {
	Insert(ctx context.Context, bid *Bid) error
	Update(ctx context.Context, bid *Bid) error
	// GetByBidder returns ErrBidNotFound when the bidder has no
	// standing bid on the auction.
	GetByBidder(ctx context.Context, auctionID, bidderID string) (*Bid, error)
	ListByAuction(ctx context.Context, auctionID string) ([]*Bid, error)
	// Highest returns ErrBidNotFound when the auction has no bids.
	// Ties are broken by earliest creation time.
	Highest(ctx context.Context, auctionID string) (*Bid, error)
	// SetWinning marks exactly one bid winning and clears the flag on
	// every other bid of the auction.
	SetWinning(ctx context.Context, auctionID, bidID string) error
}

type NotificationRepository interface {
	Save(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type DeviceTokenRepository interface {
	Add(ctx context.Context, userID, token string) error
	Remove(ctx context.Context, userID, token string) error
	ListByUser(ctx context.Context, userID string) ([]string, error)
}

// Dispatcher interface. Dispatch must return without waiting on
// delivery; failures stay inside the dispatcher.
type NotificationDispatcher interface {
	Dispatch(event *NotificationEvent)
}

// ConnectionRegistry tracks live websocket connections keyed by user
// ID. It is owned by the process and injected wherever live push is
// needed; there is no package-level registry.
type ConnectionRegistry interface {
	Register(userID string, conn LiveConnection)
	Unregister(userID string, conn LiveConnection)
	NotifyUser(userID string, payload interface{}) error
	ConnectedUsers() []string
}

type LiveConnection interface {
	Send(payload []byte) error
	Close() error
}

// PushSender delivers mobile push messages. Tokens reported invalid by
// the provider are returned so the caller can strip them.
type PushSender interface {
	Send(ctx context.Context, tokens []string, event *NotificationEvent) (invalid []string, err error)
}

// ExternalNotifier is the email/WhatsApp collaborator; wire formats are
// its concern, not the engine's.
type ExternalNotifier interface {
	SendMessage(ctx context.Context, userID string, event *NotificationEvent) error
}

// EventEnvelope carries a notification event between instances over the
// shared event bus. Origin lets an instance skip its own publications.
type EventEnvelope struct {
	Origin string             `json:"origin"`
	Event  *NotificationEvent `json:"event"`
}

type EventPublisher interface {
	PublishNotification(ctx context.Context, env *EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler func(env *EventEnvelope) error) error
}

// LeaderElection keeps a single sweeper active across instances.
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}
