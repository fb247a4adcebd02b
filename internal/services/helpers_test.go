package services

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"auction-engine/internal/domain"
	"auction-engine/internal/infrastructure/memory"
	"auction-engine/internal/metrics"
	"auction-engine/pkg/logger"
)

// captureDispatcher records dispatched events for assertions.
type captureDispatcher struct {
	mu     sync.Mutex
	events []*domain.NotificationEvent
}

func (d *captureDispatcher) Dispatch(event *domain.NotificationEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *captureDispatcher) all() []*domain.NotificationEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*domain.NotificationEvent(nil), d.events...)
}

func (d *captureDispatcher) byType(t domain.EventType) []*domain.NotificationEvent {
	var out []*domain.NotificationEvent
	for _, e := range d.all() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// testEngine bundles the services under test on in-memory repositories.
type testEngine struct {
	auctions   *memory.AuctionRepo
	bids       *memory.BidRepo
	locks      *AuctionLocks
	dispatcher *captureDispatcher
	resolver   *AuctionResolver
	admission  *BidAdmissionService
}

func newTestEngine() *testEngine {
	log := logger.NewNop()
	m := newTestMetrics()

	e := &testEngine{
		auctions:   memory.NewAuctionRepo(),
		bids:       memory.NewBidRepo(),
		locks:      NewAuctionLocks(),
		dispatcher: &captureDispatcher{},
	}
	ledger := NewBidLedger(e.bids, log)
	e.resolver = NewAuctionResolver(e.auctions, e.bids, e.locks, e.dispatcher, m, log)
	e.admission = NewBidAdmissionService(e.auctions, ledger, e.locks, e.dispatcher, e.resolver, m, log)
	return e
}

func activeAuction(id, sellerID string, basePrice, increment float64) *domain.Auction {
	now := time.Now()
	return &domain.Auction{
		ID:           id,
		Title:        "Vintage Camera",
		SellerID:     sellerID,
		BasePrice:    basePrice,
		BidIncrement: increment,
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(time.Hour),
		Status:       domain.AuctionActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
