package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/cache"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/repository"
)

// MarketOptions tunes MarketService caching and fan-out.
type MarketOptions struct {
	PriceFreshness time.Duration
	ProfileTTL     time.Duration
	HistoryTTL     time.Duration
	Concurrency    int
}

// DefaultMarketOptions returns the defaults used when configuration leaves a value unset.
func DefaultMarketOptions() MarketOptions {
	return MarketOptions{
		PriceFreshness: 15 * time.Minute,
		ProfileTTL:     24 * time.Hour,
		HistoryTTL:     6 * time.Hour,
		Concurrency:    4,
	}
}

// MarketService is the single entry point to external market data.
// Quotes are persisted as price snapshots; profiles and history are cached.
type MarketService struct {
	provider     marketdata.Provider
	snapshotRepo *repository.PriceSnapshotRepository
	holdingRepo  *repository.HoldingRepository
	loader       *cache.Loader
	opts         MarketOptions
	now          func() time.Time
}

// NewMarketService creates a new MarketService.
func NewMarketService(
	provider marketdata.Provider,
	snapshotRepo *repository.PriceSnapshotRepository,
	holdingRepo *repository.HoldingRepository,
	loader *cache.Loader,
	opts MarketOptions,
) *MarketService {
	defaults := DefaultMarketOptions()
	if opts.PriceFreshness <= 0 {
		opts.PriceFreshness = defaults.PriceFreshness
	}
	if opts.ProfileTTL <= 0 {
		opts.ProfileTTL = defaults.ProfileTTL
	}
	if opts.HistoryTTL <= 0 {
		opts.HistoryTTL = defaults.HistoryTTL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}

	return &MarketService{
		provider:     provider,
		snapshotRepo: snapshotRepo,
		holdingRepo:  holdingRepo,
		loader:       loader,
		opts:         opts,
		now:          time.Now,
	}
}

// WithClock replaces the time source used for snapshot freshness.
func (s *MarketService) WithClock(now func() time.Time) *MarketService {
	s.now = now
	return s
}

// ProviderName returns the name of the configured market data provider.
func (s *MarketService) ProviderName() string {
	return s.provider.Name()
}

func quoteFromSnapshot(p model.PriceSnapshot) model.Quote {
	return model.Quote{
		Symbol:        p.Symbol,
		Price:         p.Price,
		Change:        p.Change,
		ChangePercent: p.ChangePercent,
		AsOf:          p.RefreshedAt,
	}
}

// GetQuote returns the latest price of symbol.
//
// A snapshot younger than the freshness window is served without calling the
// provider. Otherwise the provider is asked and the snapshot replaced. If the
// provider fails and a stale snapshot exists, the stale snapshot is served.
func (s *MarketService) GetQuote(ctx context.Context, symbol string) marketdata.Result[model.Quote] {
	now := s.now().UTC()

	snapshot, err := s.snapshotRepo.GetSnapshot(ctx, symbol)
	hasSnapshot := err == nil
	if err != nil && !errors.Is(err, apperrors.ErrPriceSnapshotNotFound) {
		slog.Warn("failed to read price snapshot",
			slog.String("rqID", logging.RequestID(ctx)),
			slog.String("symbol", symbol),
			slog.String("err", err.Error()),
		)
	}
	if hasSnapshot && snapshot.IsFresh(now, s.opts.PriceFreshness) {
		return marketdata.OK(quoteFromSnapshot(snapshot))
	}

	res := marketdata.Classify(s.provider.GetQuote(ctx, symbol))
	if res.IsOK() {
		res.Value.Symbol = symbol
		if err := s.snapshotRepo.UpsertSnapshot(ctx, model.PriceSnapshot{
			Symbol:        symbol,
			Price:         res.Value.Price,
			Change:        res.Value.Change,
			ChangePercent: res.Value.ChangePercent,
			RefreshedAt:   now,
		}); err != nil {
			slog.Warn("failed to store price snapshot",
				slog.String("rqID", logging.RequestID(ctx)),
				slog.String("symbol", symbol),
				slog.String("err", err.Error()),
			)
		}
		return res
	}

	if hasSnapshot {
		slog.Warn("serving stale price snapshot",
			slog.String("rqID", logging.RequestID(ctx)),
			slog.String("symbol", symbol),
			slog.String("status", res.Status.String()),
			slog.String("reason", res.Reason),
			slog.Time("refreshedAt", snapshot.RefreshedAt),
		)
		return marketdata.OK(quoteFromSnapshot(snapshot))
	}

	return res
}

// GetQuotes fetches quotes for several symbols with bounded parallelism.
// Every symbol gets an entry; failures are reported per symbol.
func (s *MarketService) GetQuotes(ctx context.Context, symbols []string) map[string]marketdata.Result[model.Quote] {
	results := make(map[string]marketdata.Result[model.Quote], len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, symbol := range symbols {
		g.Go(func() error {
			res := s.GetQuote(gctx, symbol)
			mu.Lock()
			results[symbol] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// GetProfile returns company information for symbol. Failures fall back to
// DefaultProfile, so callers always get a usable sector.
func (s *MarketService) GetProfile(ctx context.Context, symbol string) model.Profile {
	key := fmt.Sprintf("profile:%s", symbol)

	profile, err := cache.Remember(ctx, s.loader, key, s.opts.ProfileTTL, func(ctx context.Context) (model.Profile, error) {
		return s.provider.GetProfile(ctx, symbol)
	})
	if err != nil {
		if !errors.Is(err, marketdata.ErrNoData) {
			slog.Warn("profile lookup failed",
				slog.String("rqID", logging.RequestID(ctx)),
				slog.String("symbol", symbol),
				slog.String("err", err.Error()),
			)
		}
		return model.DefaultProfile(symbol)
	}

	profile.Symbol = symbol
	if profile.Name == "" {
		profile.Name = symbol
	}
	if profile.Sector == "" {
		profile.Sector = model.DefaultSector
	}
	return profile
}

// GetDividendHistory returns the raw dividend history of symbol.
// An empty history is NoData. Empty answers are cached like any other.
func (s *MarketService) GetDividendHistory(ctx context.Context, symbol string) marketdata.Result[[]model.DividendEvent] {
	key := fmt.Sprintf("dividends:%s", symbol)

	events, err := cache.Remember(ctx, s.loader, key, s.opts.HistoryTTL, func(ctx context.Context) ([]model.DividendEvent, error) {
		events, err := s.provider.GetDividendHistory(ctx, symbol)
		if errors.Is(err, marketdata.ErrNoData) {
			return []model.DividendEvent{}, nil
		}
		return events, err
	})

	res := marketdata.Classify(events, err)
	if res.IsOK() && len(res.Value) == 0 {
		return marketdata.NoData[[]model.DividendEvent]()
	}
	return res
}

// GetSplits returns the split history of symbol. A symbol that never split is
// OK with an empty list.
func (s *MarketService) GetSplits(ctx context.Context, symbol string) marketdata.Result[[]model.SplitEvent] {
	key := fmt.Sprintf("splits:%s", symbol)

	splits, err := cache.Remember(ctx, s.loader, key, s.opts.HistoryTTL, func(ctx context.Context) ([]model.SplitEvent, error) {
		splits, err := s.provider.GetSplits(ctx, symbol)
		if errors.Is(err, marketdata.ErrNoData) {
			return []model.SplitEvent{}, nil
		}
		return splits, err
	})

	return marketdata.Classify(splits, err)
}

// SearchSymbols returns up to marketdata.MaxSearchResults symbols whose ticker
// or company name matches query. A blank query matches nothing and does not
// reach the provider. Answers are cached per upper-cased query.
func (s *MarketService) SearchSymbols(ctx context.Context, query string) ([]model.SymbolMatch, error) {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return []model.SymbolMatch{}, nil
	}

	key := fmt.Sprintf("search:%s", q)
	matches, err := cache.Remember(ctx, s.loader, key, s.opts.ProfileTTL, func(ctx context.Context) ([]model.SymbolMatch, error) {
		matches, err := s.provider.SearchSymbols(ctx, q)
		if errors.Is(err, marketdata.ErrNoData) {
			return []model.SymbolMatch{}, nil
		}
		return matches, err
	})
	if err != nil {
		slog.Warn("symbol search failed",
			slog.String("rqID", logging.RequestID(ctx)),
			slog.String("query", q),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}

	if len(matches) > marketdata.MaxSearchResults {
		matches = matches[:marketdata.MaxSearchResults]
	}
	return matches, nil
}

// GetPriceHistory returns the daily closes of symbol over the last months,
// oldest first. An empty history is NoData. Answers are cached for the price
// freshness window.
func (s *MarketService) GetPriceHistory(ctx context.Context, symbol string, months int) marketdata.Result[[]model.PricePoint] {
	key := fmt.Sprintf("price-history:%s:%d", symbol, months)

	points, err := cache.Remember(ctx, s.loader, key, s.opts.PriceFreshness, func(ctx context.Context) ([]model.PricePoint, error) {
		points, err := s.provider.GetPriceHistory(ctx, symbol, months)
		if errors.Is(err, marketdata.ErrNoData) {
			return []model.PricePoint{}, nil
		}
		return points, err
	})

	res := marketdata.Classify(points, err)
	if res.IsOK() && len(res.Value) == 0 {
		return marketdata.NoData[[]model.PricePoint]()
	}
	return res
}

// RefreshPrices brings the snapshot of every held symbol up to date.
// Returns the number of symbols that have a usable quote afterwards.
func (s *MarketService) RefreshPrices(ctx context.Context) (int, error) {
	symbols, err := s.holdingRepo.ListHeldSymbols(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list held symbols: %w", err)
	}

	refreshed := 0
	for symbol, res := range s.GetQuotes(ctx, symbols) {
		if res.IsOK() {
			refreshed++
			continue
		}
		slog.Warn("price refresh failed",
			slog.String("op", "MarketService.RefreshPrices"),
			slog.String("symbol", symbol),
			slog.String("status", res.Status.String()),
			slog.String("reason", res.Reason),
		)
	}

	return refreshed, nil
}
