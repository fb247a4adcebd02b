package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"auction-engine/internal/domain"
	"auction-engine/internal/metrics"
	"auction-engine/pkg/logger"
)

// ExpirySweeper periodically discovers auctions whose deadline has
// passed and hands each to the resolver. The sweep itself carries no
// auction business logic, so overlapping sweeps and multiple instances
// are harmless: the resolver's guarded transition makes duplicate
// discovery a no-op. It also promotes scheduled auctions whose start
// time has arrived.
type ExpirySweeper struct {
	cron       *cron.Cron
	auctions   domain.AuctionRepository
	resolver   *AuctionResolver
	leader     domain.LeaderElection
	instanceID string
	interval   time.Duration
	metrics    *metrics.Metrics
	log        logger.Logger
	now        func() time.Time
}

func NewExpirySweeper(
	auctions domain.AuctionRepository,
	resolver *AuctionResolver,
	leader domain.LeaderElection,
	instanceID string,
	interval time.Duration,
	m *metrics.Metrics,
	log logger.Logger,
) *ExpirySweeper {
	return &ExpirySweeper{
		cron:       cron.New(cron.WithSeconds()),
		auctions:   auctions,
		resolver:   resolver,
		leader:     leader,
		instanceID: instanceID,
		interval:   interval,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.log.Info("Starting expiry sweeper", "interval", s.interval)

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.Tick(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *ExpirySweeper) Stop() {
	s.log.Info("Stopping expiry sweeper")
	s.cron.Stop()
}

// Tick runs one sweep. Exported so an operator endpoint or test can
// trigger a manual check.
func (s *ExpirySweeper) Tick(ctx context.Context) {
	if s.leader != nil {
		isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
		if err != nil {
			s.log.Error("Leader check failed, skipping sweep", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	started := s.now()
	defer func() {
		s.metrics.SweepDuration.Observe(time.Since(started).Seconds())
	}()

	s.activateScheduled(ctx, started)
	s.resolveExpired(ctx, started)
}

func (s *ExpirySweeper) activateScheduled(ctx context.Context, now time.Time) {
	startable, err := s.auctions.FindStartable(ctx, now)
	if err != nil {
		s.log.Error("Failed to find startable auctions", "error", err)
		return
	}

	for _, auction := range startable {
		err := s.auctions.TransitionStatus(ctx, auction.ID, domain.AuctionScheduled, domain.AuctionActive)
		if err != nil {
			// Lost the race to a lazy activation; nothing to do.
			continue
		}
		s.log.Info("Auction activated", "auction_id", auction.ID)
	}
}

func (s *ExpirySweeper) resolveExpired(ctx context.Context, now time.Time) {
	expired, err := s.auctions.FindExpired(ctx, now)
	if err != nil {
		s.log.Error("Failed to find expired auctions", "error", err)
		return
	}

	if len(expired) > 0 {
		s.log.Info("Sweep found expired auctions", "count", len(expired))
	}

	for _, auction := range expired {
		if _, err := s.resolver.Resolve(ctx, auction); err != nil {
			s.log.Error("Failed to resolve expired auction",
				"auction_id", auction.ID, "error", err)
		}
	}
}
