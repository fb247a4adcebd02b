package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"auction-engine/internal/api/handlers"
	"auction-engine/internal/config"
	"auction-engine/internal/domain"
	"auction-engine/internal/infrastructure/mysql"
	"auction-engine/internal/infrastructure/notifier"
	"auction-engine/internal/infrastructure/push"
	redisInfra "auction-engine/internal/infrastructure/redis"
	"auction-engine/internal/infrastructure/websocket"
	"auction-engine/internal/metrics"
	"auction-engine/internal/ops"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	log.Info("Starting auction engine", "instance_id", cfg.Instance.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", "address", cfg.Redis.Address, "error", err)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Fatal("Failed to open MySQL", "error", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Failed to ping MySQL", "error", err)
	}
	log.Info("Connected to MySQL")

	// Repositories
	auctionRepo := mysql.NewAuctionRepository(db)
	bidRepo := mysql.NewBidRepository(db)
	notificationRepo := mysql.NewNotificationRepository(db)
	tokenRepo := mysql.NewDeviceTokenRepository(db)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	// Notification channels
	registry := websocket.NewRegistry(log)
	pushSender := push.NewExpoSender(cfg.Push.Endpoint, log)
	eventPublisher := redisInfra.NewEventPublisher(rdb)
	eventSubscriber := redisInfra.NewEventSubscriber(rdb, log)

	var external domain.ExternalNotifier
	if cfg.Notifier.Endpoint != "" {
		external = notifier.NewHTTPNotifier(cfg.Notifier.Endpoint, cfg.Notifier.APIKey)
	}

	dispatcher := services.NewDispatcher(
		services.DispatcherConfig{
			Workers:    cfg.Dispatcher.Workers,
			QueueSize:  cfg.Dispatcher.QueueSize,
			InstanceID: cfg.Instance.ID,
		},
		notificationRepo, registry, tokenRepo, pushSender, external, eventPublisher,
		m, log,
	)
	defer dispatcher.Close()

	// Core services
	locks := services.NewAuctionLocks()
	ledger := services.NewBidLedger(bidRepo, log)
	resolver := services.NewAuctionResolver(auctionRepo, bidRepo, locks, dispatcher, m, log)
	admission := services.NewBidAdmissionService(auctionRepo, ledger, locks, dispatcher, resolver, m, log)
	auctionService := services.NewAuctionService(auctionRepo, bidRepo, locks, log)

	// Sweeper with leader election
	leaderElection := redisInfra.NewLeaderElection(rdb, cfg.Leader.TTL)
	sweeper := services.NewExpirySweeper(
		auctionRepo, resolver, leaderElection, cfg.Instance.ID, cfg.Sweep.Interval, m, log)

	// Bus subscriber feeds remote events to local live connections.
	busCtx, busCancel := context.WithCancel(context.Background())
	defer busCancel()
	go func() {
		if err := eventSubscriber.Subscribe(busCtx, dispatcher.HandleBusEvent); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event subscriber exited", "error", err)
		}
	}()

	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became sweeper leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	if err := sweeper.Start(context.Background()); err != nil {
		log.Fatal("Failed to start sweeper", "error", err)
	}

	// Ops listener
	opsServer := ops.NewServer(cfg.Ops.Port, reg, log)
	opsServer.Start()

	// API server
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","method":"${method}","uri":"${uri}","status":${status},"error":"${error}","latency":${latency}}` + "\n",
	}))
	e.Use(middleware.Recover())

	auctionHandler := handlers.NewAuctionHandler(auctionService, log)
	bidHandler := handlers.NewBidHandler(admission, log)
	paymentHandler := handlers.NewPaymentHandler(resolver, log)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, tokenRepo, log)
	wsHandler := handlers.NewWebSocketHandler(registry, log)

	api := e.Group("/api/v1")
	api.POST("/auctions", auctionHandler.Create)
	api.GET("/auctions/:id", auctionHandler.Get)
	api.GET("/auctions/:id/bids", auctionHandler.Bids)
	api.POST("/auctions/:id/bids", bidHandler.PlaceBid)
	api.POST("/auctions/:id/cancel", auctionHandler.Cancel)
	api.POST("/payments/confirm", paymentHandler.Confirm)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)
	api.POST("/users/:id/push-tokens", notificationHandler.RegisterToken)

	e.GET("/ws", wsHandler.Connect)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "auction-engine",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting API server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("API server failed", "error", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction engine")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sweeper.Stop()
	busCancel()
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Ops server forced to shutdown", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("API server forced to shutdown", "error", err)
	}

	log.Info("Auction engine stopped")
}
