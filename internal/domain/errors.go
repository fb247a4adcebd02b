package domain

import (
	"errors"
	"fmt"
)

// Validation and lifecycle errors returned synchronously to callers.
var (
	ErrAuctionNotFound   = errors.New("auction not found")
	ErrSelfBid           = errors.New("cannot bid on your own auction")
	ErrAuctionClosed     = errors.New("auction is not open for bidding")
	ErrBidTooLow         = errors.New("bid amount too low")
	ErrStaleBid          = errors.New("bid must exceed your current bid")
	ErrInvalidTransition = errors.New("invalid auction state transition")
	ErrCancelHasBids     = errors.New("cannot cancel auction with existing bids")
	ErrBidNotFound       = errors.New("bid not found")
)

// BidTooLowError carries the exact minimum acceptable amount so the
// rejection message can echo it back to the bidder.
type BidTooLowError struct {
	Minimum float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid must be at least %.2f", e.Minimum)
}

func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}

// StaleBidError carries the bidder's own standing amount.
type StaleBidError struct {
	CurrentAmount float64
}

func (e *StaleBidError) Error() string {
	return fmt.Sprintf("new bid must be higher than your current bid of %.2f", e.CurrentAmount)
}

func (e *StaleBidError) Is(target error) bool {
	return target == ErrStaleBid
}
