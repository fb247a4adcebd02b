package domain

import (
	"fmt"
	"time"
)

// The auction lifecycle only moves forward:
//
//	DRAFT -> SCHEDULED -> ACTIVE -> ENDED -> SOLD
//
// CANCELLED is reachable from any non-terminal state while the auction
// has no bids. Repositories enforce the transition atomically with a
// compare-and-swap on the current status; ValidateTransition holds the
// business guards shared by every caller.
var allowedTransitions = map[AuctionStatus][]AuctionStatus{
	AuctionDraft:     {AuctionScheduled, AuctionActive, AuctionCancelled},
	AuctionScheduled: {AuctionActive, AuctionCancelled},
	AuctionActive:    {AuctionEnded, AuctionCancelled},
	AuctionEnded:     {AuctionSold, AuctionCancelled},
}

// ValidateTransition checks the edge and its guard conditions without
// side effects. A rejected transition leaves the auction untouched.
func ValidateTransition(a *Auction, to AuctionStatus, now time.Time) error {
	edgeOK := false
	for _, next := range allowedTransitions[a.Status] {
		if next == to {
			edgeOK = true
			break
		}
	}
	if !edgeOK {
		return fmt.Errorf("%s -> %s: %w", a.Status, to, ErrInvalidTransition)
	}

	switch to {
	case AuctionActive:
		if now.Before(a.StartTime) {
			return fmt.Errorf("start time not reached: %w", ErrInvalidTransition)
		}
	case AuctionEnded:
		if now.Before(a.EndTime) {
			return fmt.Errorf("end time not reached: %w", ErrInvalidTransition)
		}
	case AuctionSold:
		if a.WinnerID == "" {
			return fmt.Errorf("no recorded winner: %w", ErrInvalidTransition)
		}
	case AuctionCancelled:
		if a.BidCount > 0 {
			return ErrCancelHasBids
		}
	}

	return nil
}

// ApplyTransition validates and mutates the in-memory auction. The
// durable, exactly-once flip happens in the repository's guarded
// status update; this keeps the loaded copy consistent with it.
func ApplyTransition(a *Auction, to AuctionStatus, now time.Time) error {
	if err := ValidateTransition(a, to, now); err != nil {
		return err
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}
