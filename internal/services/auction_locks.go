package services

import (
	"sync"
)

// AuctionLocks hands out one mutex per auction ID so admissions and
// resolution serialize within an auction while different auctions
// proceed in parallel. Entries are never evicted; the per-auction
// footprint is one mutex and ended auctions stop being locked.
type AuctionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAuctionLocks() *AuctionLocks {
	return &AuctionLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the auction's mutex and returns its unlock function.
func (l *AuctionLocks) Lock(auctionID string) func() {
	l.mu.Lock()
	m, ok := l.locks[auctionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[auctionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
