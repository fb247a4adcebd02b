package domain

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventBidPlaced        EventType = "BID_PLACED"
	EventBidOutbid        EventType = "BID_OUTBID"
	EventAuctionWon       EventType = "AUCTION_WON"
	EventAuctionEnded     EventType = "AUCTION_ENDED"
	EventPaymentConfirmed EventType = "PAYMENT_CONFIRMED"
)

// NotificationEvent is the ephemeral payload handed to the dispatcher.
// It targets exactly one user; producers emit one event per recipient.
type NotificationEvent struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	AuctionID string    `json:"auction_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Amount    float64   `json:"amount,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HighValue reports whether the event should also go out through the
// external email/WhatsApp notifier.
func (e *NotificationEvent) HighValue() bool {
	return e.Type == EventAuctionWon || e.Type == EventPaymentConfirmed
}

// ShippingInfo is supplied by the payment gateway on capture.
type ShippingInfo struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	Instructions string `json:"instructions,omitempty"`
}

func (s *ShippingInfo) Summary() string {
	addr := s.AddressLine1
	if s.AddressLine2 != "" {
		addr += ", " + s.AddressLine2
	}
	out := fmt.Sprintf("%s, %s, %s %s, %s, phone %s", s.Name, addr, s.City, s.PostalCode, s.Country, s.Phone)
	if s.Instructions != "" {
		out += ". Delivery instructions: " + s.Instructions
	}
	return out
}

// PaymentConfirmation is the payment gateway's capture callback payload.
type PaymentConfirmation struct {
	AuctionID    string        `json:"auction_id"`
	WinnerID     string        `json:"winner_id"`
	Amount       float64       `json:"amount"`
	ShippingInfo *ShippingInfo `json:"shipping_info,omitempty"`
}

func NewBidPlacedEvent(auction *Auction, amount float64) *NotificationEvent {
	return &NotificationEvent{
		Type:      EventBidPlaced,
		UserID:    auction.SellerID,
		AuctionID: auction.ID,
		Title:     "New Bid Placed!",
		Message:   fmt.Sprintf("Someone placed a bid of $%.2f on your auction %q", amount, auction.Title),
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}

func NewOutbidEvent(auction *Auction, outbidUserID string, oldAmount, newAmount float64) *NotificationEvent {
	return &NotificationEvent{
		Type:      EventBidOutbid,
		UserID:    outbidUserID,
		AuctionID: auction.ID,
		Title:     "You've been outbid!",
		Message: fmt.Sprintf("Someone placed a higher bid of $%.2f on %q. Your bid was $%.2f.",
			newAmount, auction.Title, oldAmount),
		Amount:    newAmount,
		CreatedAt: time.Now(),
	}
}

func NewAuctionWonEvent(auction *Auction, winnerID string, amount float64) *NotificationEvent {
	return &NotificationEvent{
		Type:      EventAuctionWon,
		UserID:    winnerID,
		AuctionID: auction.ID,
		Title:     "Congratulations! You Won!",
		Message: fmt.Sprintf("You won the auction %q with a bid of $%.2f. Please complete payment within 48 hours.",
			auction.Title, amount),
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}

func NewAuctionEndedSellerEvent(auction *Auction, winnerID string, amount float64) *NotificationEvent {
	return &NotificationEvent{
		Type:      EventAuctionEnded,
		UserID:    auction.SellerID,
		AuctionID: auction.ID,
		Title:     "Your Auction Has Ended",
		Message: fmt.Sprintf("Your auction %q ended successfully. Winner: %s with a bid of $%.2f.",
			auction.Title, winnerID, amount),
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}

func NewAuctionEndedNoWinnerEvent(auction *Auction) *NotificationEvent {
	return &NotificationEvent{
		Type:      EventAuctionEnded,
		UserID:    auction.SellerID,
		AuctionID: auction.ID,
		Title:     "Your Auction Ended",
		Message: fmt.Sprintf("Your auction %q has ended without any bids. You can create a new auction or adjust your starting price.",
			auction.Title),
		CreatedAt: time.Now(),
	}
}

// NewAuctionLostEvent references the losing bidder's own highest bid,
// not the winning amount.
func NewAuctionLostEvent(auction *Auction, bidderID string, ownHighest float64) *NotificationEvent {
	return &NotificationEvent{
		Type:      EventAuctionEnded,
		UserID:    bidderID,
		AuctionID: auction.ID,
		Title:     "Auction Ended - You Didn't Win",
		Message: fmt.Sprintf("The auction %q has ended. Unfortunately, your bid of $%.2f was not the highest.",
			auction.Title, ownHighest),
		Amount:    ownHighest,
		CreatedAt: time.Now(),
	}
}

func NewPaymentConfirmedWinnerEvent(auction *Auction, winnerID string, amount float64) *NotificationEvent {
	return &NotificationEvent{
		Type:      EventPaymentConfirmed,
		UserID:    winnerID,
		AuctionID: auction.ID,
		Title:     "Winning Payment Confirmed",
		Message: fmt.Sprintf("Your payment of $%.2f for winning %q has been confirmed. The seller will ship your item soon.",
			amount, auction.Title),
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}

func NewPaymentConfirmedSellerEvent(auction *Auction, amount float64, shipping *ShippingInfo) *NotificationEvent {
	msg := fmt.Sprintf("Payment of $%.2f has been received for %q. Please prepare and ship the item within 3 business days.",
		amount, auction.Title)
	if shipping != nil {
		msg += " Shipping details: " + shipping.Summary()
	}
	return &NotificationEvent{
		Type:      EventPaymentConfirmed,
		UserID:    auction.SellerID,
		AuctionID: auction.ID,
		Title:     "Payment Received - Ship Item",
		Message:   msg,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}
