package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/cache"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/config"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/database"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata/polygon"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/repository"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/scheduler"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/service"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/yahoo"
)

func fatal(msg string, err error) {
	slog.Error(msg, slog.String("err", err.Error()))
	os.Exit(1)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load configuration", err)
	}
	logging.Setup(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			fatal("failed to create database directory", err)
		}
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		fatal("failed to open database", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		fatal("failed to migrate database", err)
	}
	slog.Info("connected to database", slog.String("path", cfg.Database.Path))

	// Cache backend
	var (
		store  cache.Cache
		memory *cache.Memory
	)
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			fatal("failed to connect to redis", err)
		}
		defer rdb.Close()
		store = cache.NewRedis(rdb, cfg.Redis.Prefix)
	default:
		memory = cache.NewMemory()
		store = memory
	}
	loader := cache.NewLoader(store)

	// Market data provider
	var provider marketdata.Provider
	switch cfg.Market.Provider {
	case config.ProviderPolygon:
		provider = polygon.New(cfg.Market.PolygonBaseURL, cfg.Market.PolygonAPIKey, cfg.Market.Timeout, cfg.Market.Debug)
	default:
		provider = yahoo.NewFinanceClient(cfg.Market.YahooBaseURL, cfg.Market.Timeout, cfg.Market.Debug)
	}
	slog.Info("market data provider selected",
		slog.String("provider", provider.Name()),
		slog.String("cache", cfg.Cache.Backend),
	)

	// Create repositories
	txManager := repository.NewTxManager(db)
	tradeRepo := repository.NewTradeRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	dividendRepo := repository.NewDividendRepository(db)
	snapshotRepo := repository.NewPriceSnapshotRepository(db)
	syncRepo := repository.NewSyncStateRepository(db)

	// Create services
	systemService := service.NewSystemService(db)
	holdingService := service.NewHoldingService(
		txManager,
		tradeRepo,
		holdingRepo,
	)
	tradeService := service.NewTradeService(
		tradeRepo,
		holdingService,
	)
	marketService := service.NewMarketService(
		provider,
		snapshotRepo,
		holdingRepo,
		loader,
		service.MarketOptions{
			PriceFreshness: cfg.PriceFreshness,
			ProfileTTL:     cfg.Cache.ProfileTTL,
			HistoryTTL:     cfg.Cache.HistoryTTL,
			Concurrency:    cfg.Market.Concurrency,
		},
	)
	scheduleService := service.NewScheduleService(
		marketService,
		loader,
		cfg.Cache.ScheduleTTL,
		cfg.Overrides,
	)
	dividendService := service.NewDividendService(
		txManager,
		dividendRepo,
		tradeRepo,
		syncRepo,
		marketService,
		cfg.Jobs.SyncInterval,
	)
	analysisService := service.NewAnalysisService(
		holdingRepo,
		dividendRepo,
		marketService,
		scheduleService,
	).WithTaxRate(cfg.TaxRate)

	// Background jobs are always registered so they can be run on demand;
	// JOBS_ENABLED only controls the cron ticks.
	jobs := scheduler.New(cfg.Jobs.Timeout)
	if err := jobs.AddJob("dividend-sync", cfg.Jobs.SyncSpec, func(ctx context.Context) error {
		_, err := dividendService.SyncAllOwners(ctx)
		return err
	}); err != nil {
		fatal("failed to schedule dividend sync", err)
	}
	if err := jobs.AddJob("price-refresh", cfg.Jobs.PriceSpec, func(ctx context.Context) error {
		n, err := marketService.RefreshPrices(ctx)
		slog.Debug("prices refreshed", slog.Int("symbols", n))
		return err
	}); err != nil {
		fatal("failed to schedule price refresh", err)
	}
	if memory != nil {
		if err := jobs.AddJob("cache-purge", "@every 1h", func(context.Context) error {
			evicted := memory.Purge()
			slog.Debug("cache purged", slog.Int("evicted", evicted), slog.Int("remaining", memory.Len()))
			return nil
		}); err != nil {
			fatal("failed to schedule cache purge", err)
		}
	}
	if cfg.Jobs.Enabled {
		jobs.Start()
	}

	// Create router
	router := api.NewRouter(
		systemService,
		tradeService,
		holdingService,
		dividendService,
		analysisService,
		marketService,
		scheduleService,
		jobs,
		cfg,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("starting server",
			slog.String("addr", cfg.Server.Addr),
			slog.String("version", service.Version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server failed to start", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	<-ctx.Done()
	slog.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("err", err.Error()))
	}
	jobs.Stop(shutdownCtx)

	slog.Info("server exited")
}
