package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/cache"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/repository"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/service"
)

// FixedClock returns a time source that always reports now.
func FixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

// Services bundles every service wired against one database and provider,
// the way cmd/server wires them.
type Services struct {
	Provider *MockProvider
	Cache    *cache.Memory
	Holdings *service.HoldingService
	Trades   *service.TradeService
	Market   *service.MarketService
	Schedule *service.ScheduleService
	Dividend *service.DividendService
	Analysis *service.AnalysisService
	System   *service.SystemService
}

// NewTestServices wires all services against db and provider with every clock
// fixed at now. A nil provider gets an empty MockProvider.
//
// Example usage:
//
//	provider := testutil.NewMockProvider().WithQuote("KO", "60")
//	svc := testutil.NewTestServices(t, db, provider, testutil.Date(2024, time.June, 1))
//	analysis, err := svc.Analysis.Analyze(ctx, ownerID)
func NewTestServices(t *testing.T, db *sql.DB, provider *MockProvider, now time.Time) *Services {
	t.Helper()
	return NewTestServicesWithOverrides(t, db, provider, now, nil)
}

// NewTestServicesWithOverrides is NewTestServices with trailing DPS overrides.
func NewTestServicesWithOverrides(t *testing.T, db *sql.DB, provider *MockProvider, now time.Time, overrides map[string]decimal.Decimal) *Services {
	t.Helper()

	if provider == nil {
		provider = NewMockProvider()
	}
	clock := FixedClock(now)

	txManager := repository.NewTxManager(db)
	tradeRepo := repository.NewTradeRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	dividendRepo := repository.NewDividendRepository(db)
	snapshotRepo := repository.NewPriceSnapshotRepository(db)
	syncRepo := repository.NewSyncStateRepository(db)

	memory := cache.NewMemory().WithClock(clock)
	loader := cache.NewLoader(memory)

	var source marketdata.Provider = provider
	holdings := service.NewHoldingService(txManager, tradeRepo, holdingRepo).WithClock(clock)
	market := service.NewMarketService(source, snapshotRepo, holdingRepo, loader, service.DefaultMarketOptions()).WithClock(clock)
	schedule := service.NewScheduleService(market, loader, 6*time.Hour, overrides).WithClock(clock)

	return &Services{
		Provider: provider,
		Cache:    memory,
		Holdings: holdings,
		Trades:   service.NewTradeService(tradeRepo, holdings).WithClock(clock),
		Market:   market,
		Schedule: schedule,
		Dividend: service.NewDividendService(txManager, dividendRepo, tradeRepo, syncRepo, market, 6*time.Hour).WithClock(clock),
		Analysis: service.NewAnalysisService(holdingRepo, dividendRepo, market, schedule).WithClock(clock),
		System:   service.NewSystemService(db),
	}
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeOwnerID generates an owner ID. Owners are plain UUIDs.
func MakeOwnerID() string {
	return MakeID()
}
