package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/cache"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// ScheduleService projects per-symbol dividend schedules.
type ScheduleService struct {
	market    *MarketService
	loader    *cache.Loader
	ttl       time.Duration
	overrides map[string]decimal.Decimal
	now       func() time.Time
}

// NewScheduleService creates a new ScheduleService.
//
// Parameters:
//   - market: source of dividend and split history
//   - loader: cache for computed schedules
//   - ttl: lifetime of a cached schedule
//   - overrides: trailing annual DPS per symbol that replaces the computed value
func NewScheduleService(
	market *MarketService,
	loader *cache.Loader,
	ttl time.Duration,
	overrides map[string]decimal.Decimal,
) *ScheduleService {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	if overrides == nil {
		overrides = map[string]decimal.Decimal{}
	}
	return &ScheduleService{
		market:    market,
		loader:    loader,
		ttl:       ttl,
		overrides: overrides,
		now:       time.Now,
	}
}

// WithClock replaces the time source that decides the projected year.
func (s *ScheduleService) WithClock(now func() time.Time) *ScheduleService {
	s.now = now
	return s
}

// ScheduleCacheKey returns the cache key of a symbol's schedule for year.
func ScheduleCacheKey(symbol string, year int) string {
	return fmt.Sprintf("dividend-schedule:%s:%d", symbol, year)
}

// ProjectSchedule returns the dividend schedule of symbol for the current year.
//
// OK and NoData results are cached per (symbol, year). Source errors are not
// cached so the next call retries.
func (s *ScheduleService) ProjectSchedule(ctx context.Context, symbol string) marketdata.Result[model.DividendSchedule] {
	now := s.now().UTC()
	key := ScheduleCacheKey(symbol, now.Year())

	res, err := cache.Remember(ctx, s.loader, key, s.ttl, func(ctx context.Context) (marketdata.Result[model.DividendSchedule], error) {
		res := s.compute(ctx, symbol, now)
		if res.Status == marketdata.StatusSourceError {
			return res, res.Err()
		}
		return res, nil
	})
	if err != nil && res.Status != marketdata.StatusSourceError {
		return marketdata.SourceError[model.DividendSchedule](err.Error())
	}

	if res.Status == marketdata.StatusSourceError {
		slog.Warn("dividend schedule unavailable",
			slog.String("rqID", logging.RequestID(ctx)),
			slog.String("symbol", symbol),
			slog.String("reason", res.Reason),
		)
	}
	return res
}

func (s *ScheduleService) compute(ctx context.Context, symbol string, now time.Time) marketdata.Result[model.DividendSchedule] {
	history := s.market.GetDividendHistory(ctx, symbol)
	switch history.Status {
	case marketdata.StatusNoData:
		return marketdata.NoData[model.DividendSchedule]()
	case marketdata.StatusSourceError:
		return marketdata.SourceError[model.DividendSchedule](history.Reason)
	}

	splits := s.market.GetSplits(ctx, symbol)
	if splits.Status == marketdata.StatusSourceError {
		return marketdata.SourceError[model.DividendSchedule](splits.Reason)
	}

	adjusted := AdjustForSplits(history.Value, splits.Value)
	schedule := BuildSchedule(symbol, adjusted, now)
	if dps, ok := s.overrides[symbol]; ok {
		schedule.TrailingAnnualDPS = dps
	}

	return marketdata.OK(schedule)
}
