package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/repository"
)

// AnalysisService reconciles holdings, prices, recorded dividends and projected
// schedules into the portfolio analysis view.
type AnalysisService struct {
	holdingRepo  *repository.HoldingRepository
	dividendRepo *repository.DividendRepository
	market       *MarketService
	schedules    *ScheduleService
	taxRate      decimal.Decimal
	now          func() time.Time
}

// DefaultTaxRate is the withholding rate applied to dividend income unless
// configured otherwise.
var DefaultTaxRate = decimal.RequireFromString("0.154")

// NewAnalysisService creates a new AnalysisService with the provided dependencies.
func NewAnalysisService(
	holdingRepo *repository.HoldingRepository,
	dividendRepo *repository.DividendRepository,
	market *MarketService,
	schedules *ScheduleService,
) *AnalysisService {
	return &AnalysisService{
		holdingRepo:  holdingRepo,
		dividendRepo: dividendRepo,
		market:       market,
		schedules:    schedules,
		taxRate:      DefaultTaxRate,
		now:          time.Now,
	}
}

// WithTaxRate sets the rate used for after-tax income, a fraction in [0, 1).
func (s *AnalysisService) WithTaxRate(rate decimal.Decimal) *AnalysisService {
	s.taxRate = rate
	return s
}

// WithClock replaces the time source that decides the calendar year and payout status.
func (s *AnalysisService) WithClock(now func() time.Time) *AnalysisService {
	s.now = now
	return s
}

// symbolData is everything fetched for one held symbol.
type symbolData struct {
	holding  model.Holding
	quote    marketdata.Result[model.Quote]
	profile  model.Profile
	schedule marketdata.Result[model.DividendSchedule]
}

// collect fetches market data for every holding, one symbol after another.
// Per-symbol failures are carried in the results and never abort the batch.
func (s *AnalysisService) collect(ctx context.Context, holdings []model.Holding, withQuotes bool) []symbolData {
	data := make([]symbolData, 0, len(holdings))
	for _, h := range holdings {
		d := symbolData{
			holding:  h,
			quote:    marketdata.NoData[model.Quote](),
			profile:  s.market.GetProfile(ctx, h.Symbol),
			schedule: s.schedules.ProjectSchedule(ctx, h.Symbol),
		}
		if withQuotes {
			d.quote = s.market.GetQuote(ctx, h.Symbol)
		}
		data = append(data, d)
	}
	return data
}

// Analyze builds the full analysis of the owner's portfolio.
// An owner without holdings gets an empty analysis, not an error.
func (s *AnalysisService) Analyze(ctx context.Context, ownerID string) (*model.PortfolioAnalysis, error) {
	now := s.now().UTC()

	holdings, err := s.holdingRepo.ListHoldings(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToAnalyzePortfolio, err)
	}

	data := s.collect(ctx, holdings, true)

	recorded, err := s.dividendRepo.ListDividends(ctx, ownerID, now.Year())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToAnalyzePortfolio, err)
	}

	metrics := buildDividendMetrics(data, s.taxRate)
	analysis := &model.PortfolioAnalysis{
		OwnerID:            ownerID,
		GeneratedAt:        now,
		Holdings:           holdings,
		Summary:            buildSummary(data, metrics, s.taxRate),
		SectorAllocation:   buildSectorAllocation(data),
		DividendMetrics:    metrics,
		DividendAllocation: buildDividendAllocation(metrics),
		MonthlyCalendar:    buildCalendar(now, recorded, data, s.recordedProfiles(ctx, recorded, data), s.taxRate),
	}

	slog.Info("portfolio analyzed",
		slog.String("rqID", logging.RequestID(ctx)),
		slog.String("owner", ownerID),
		slog.Int("holdings", len(holdings)),
		slog.Int("metrics", len(analysis.DividendMetrics)),
	)
	return analysis, nil
}

// MonthlyCalendar builds the dividend income calendar of the current year.
// Prices are not needed for the calendar, so no quotes are fetched.
func (s *AnalysisService) MonthlyCalendar(ctx context.Context, ownerID string) (*model.MonthlyCalendar, error) {
	now := s.now().UTC()

	holdings, err := s.holdingRepo.ListHoldings(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToAnalyzePortfolio, err)
	}

	recorded, err := s.dividendRepo.ListDividends(ctx, ownerID, now.Year())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToAnalyzePortfolio, err)
	}

	data := s.collect(ctx, holdings, false)
	calendar := buildCalendar(now, recorded, data, s.recordedProfiles(ctx, recorded, data), s.taxRate)
	return &calendar, nil
}

// recordedProfiles returns profiles for every symbol in data or recorded.
// Symbols no longer held are looked up individually.
func (s *AnalysisService) recordedProfiles(ctx context.Context, recorded []model.Dividend, data []symbolData) map[string]model.Profile {
	profiles := make(map[string]model.Profile, len(data))
	for _, d := range data {
		profiles[d.holding.Symbol] = d.profile
	}
	for _, r := range recorded {
		if _, ok := profiles[r.Symbol]; !ok {
			profiles[r.Symbol] = s.market.GetProfile(ctx, r.Symbol)
		}
	}
	return profiles
}

// currentValue is quantity times the quoted price, or the cost basis when
// there is no usable price.
func currentValue(d symbolData) decimal.Decimal {
	if d.quote.IsOK() && d.quote.Value.Price.IsPositive() {
		return d.holding.Quantity.Mul(d.quote.Value.Price)
	}
	return d.holding.CostBasis()
}

// afterTax is amount less taxRate, rounded to cents.
func afterTax(amount, taxRate decimal.Decimal) decimal.Decimal {
	return round(amount.Mul(decimal.NewFromInt(1).Sub(taxRate)))
}

// buildSummary totals investment and current value over all holdings, and the
// expected annual dividend over metrics.
// The return percentage is zero when nothing is invested.
func buildSummary(data []symbolData, metrics []model.DividendMetric, taxRate decimal.Decimal) model.PortfolioSummary {
	invested := decimal.Zero
	value := decimal.Zero
	for _, d := range data {
		invested = invested.Add(d.holding.CostBasis())
		value = value.Add(currentValue(d))
	}

	income := decimal.Zero
	for _, m := range metrics {
		income = income.Add(m.ExpectedAnnualDividend)
	}

	profit := value.Sub(invested)
	return model.PortfolioSummary{
		TotalInvestment:                round(invested),
		TotalCurrentValue:              round(value),
		TotalProfitLoss:                round(profit),
		TotalReturnPercent:             round(percentOf(profit, invested)),
		ExpectedAnnualDividend:         round(income),
		ExpectedAnnualDividendAfterTax: afterTax(income, taxRate),
		TaxRate:                        taxRate,
	}
}

// buildSectorAllocation groups current value by profile sector. Sectors and
// the holdings within them are sorted by value, largest first.
func buildSectorAllocation(data []symbolData) []model.SectorAllocation {
	bySector := make(map[string]*model.SectorAllocation)
	order := make([]string, 0)

	for _, d := range data {
		sector := d.profile.Sector
		if sector == "" {
			sector = model.DefaultSector
		}

		alloc, ok := bySector[sector]
		if !ok {
			alloc = &model.SectorAllocation{Sector: sector, Value: decimal.Zero, Holdings: []model.SectorHolding{}}
			bySector[sector] = alloc
			order = append(order, sector)
		}

		value := currentValue(d)
		alloc.Value = alloc.Value.Add(value)
		alloc.Holdings = append(alloc.Holdings, model.SectorHolding{Symbol: d.holding.Symbol, Value: round(value)})
	}

	allocations := make([]model.SectorAllocation, 0, len(order))
	for _, sector := range order {
		alloc := bySector[sector]
		sort.SliceStable(alloc.Holdings, func(i, j int) bool {
			return alloc.Holdings[i].Value.GreaterThan(alloc.Holdings[j].Value)
		})
		alloc.Value = round(alloc.Value)
		allocations = append(allocations, *alloc)
	}

	sort.SliceStable(allocations, func(i, j int) bool {
		return allocations[i].Value.GreaterThan(allocations[j].Value)
	})
	return allocations
}

// buildDividendMetrics returns the dividend outlook of every symbol with a
// schedule, sorted by current value, largest first. Symbols without dividend
// data or whose source failed are left out.
//
// The yield uses the live price when there is one. Otherwise it falls back to
// the trailing yield of the profile, which is null when the provider has none.
func buildDividendMetrics(data []symbolData, taxRate decimal.Decimal) []model.DividendMetric {
	metrics := make([]model.DividendMetric, 0, len(data))

	for _, d := range data {
		if !d.schedule.IsOK() {
			continue
		}
		schedule := d.schedule.Value
		dps := schedule.TrailingAnnualDPS

		yield := d.profile.TrailingYield
		if d.quote.IsOK() && d.quote.Value.Price.IsPositive() {
			yield = decimal.NewNullDecimal(round(percentOf(dps, d.quote.Value.Price)))
		}

		expected := dps.Mul(d.holding.Quantity)
		metrics = append(metrics, model.DividendMetric{
			Symbol:                         d.holding.Symbol,
			Profile:                        d.profile,
			Quantity:                       d.holding.Quantity,
			CurrentValue:                   round(currentValue(d)),
			DividendPerShare:               dps,
			ExpectedAnnualDividend:         round(expected),
			ExpectedAnnualDividendAfterTax: afterTax(expected, taxRate),
			DividendYield:                  yield,
			PayoutMonths:                   schedule.Months,
			GrowthRate5Y:                   schedule.GrowthRate5Y,
		})
	}

	sort.SliceStable(metrics, func(i, j int) bool {
		return metrics[i].CurrentValue.GreaterThan(metrics[j].CurrentValue)
	})
	return metrics
}

// buildDividendAllocation lists the expected annual dividend per symbol, largest
// first. Symbols expected to pay nothing are left out.
func buildDividendAllocation(metrics []model.DividendMetric) []model.DividendAllocation {
	allocation := make([]model.DividendAllocation, 0, len(metrics))
	for _, m := range metrics {
		if m.ExpectedAnnualDividend.IsPositive() {
			allocation = append(allocation, model.DividendAllocation{Symbol: m.Symbol, Value: m.ExpectedAnnualDividend})
		}
	}

	sort.SliceStable(allocation, func(i, j int) bool {
		return allocation[i].Value.GreaterThan(allocation[j].Value)
	})
	return allocation
}

type symbolMonth struct {
	symbol string
	month  time.Month
}

// buildCalendar lays out the dividend income of now's year over twelve months.
//
// Recorded dividends are placed first, by pay month, as paid. A projected
// payout is added only when no dividend is recorded for the same symbol and
// pay month, so a month never shows both. Projected payouts are scheduled when
// their pay date is after now and paid otherwise. After-tax totals apply
// taxRate to the rounded totals.
func buildCalendar(now time.Time, recorded []model.Dividend, data []symbolData, profiles map[string]model.Profile, taxRate decimal.Decimal) model.MonthlyCalendar {
	year := now.Year()
	calendar := model.MonthlyCalendar{Year: year, Total: decimal.Zero, Months: make([]model.CalendarMonth, 12)}
	for i := range calendar.Months {
		calendar.Months[i] = model.CalendarMonth{Month: i + 1, Total: decimal.Zero, Entries: []model.CalendarEntry{}}
	}

	profileOf := func(symbol string) model.Profile {
		if p, ok := profiles[symbol]; ok {
			return p
		}
		return model.DefaultProfile(symbol)
	}

	add := func(entry model.CalendarEntry) {
		m := &calendar.Months[entry.PayDate.Month()-1]
		m.Entries = append(m.Entries, entry)
		m.Total = m.Total.Add(entry.Amount)
		calendar.Total = calendar.Total.Add(entry.Amount)
	}

	confirmed := make(map[symbolMonth]bool)
	for _, r := range recorded {
		if r.PayDate.Year() != year {
			continue
		}

		quantity := decimal.Zero
		if r.AmountPerShare.Valid && r.AmountPerShare.Decimal.IsPositive() {
			quantity = r.Amount.Div(r.AmountPerShare.Decimal)
		}

		add(model.CalendarEntry{
			Symbol:         r.Symbol,
			Quantity:       quantity,
			Amount:         r.Amount,
			AmountPerShare: r.AmountPerShare,
			ExDate:         r.ExDividendDate,
			PayDate:        r.PayDate,
			Status:         model.PayoutStatusPaid,
			Recorded:       true,
			Profile:        profileOf(r.Symbol),
		})
		confirmed[symbolMonth{r.Symbol, r.PayDate.Month()}] = true
	}

	for _, d := range data {
		if !d.schedule.IsOK() {
			continue
		}
		symbol := d.holding.Symbol

		for _, p := range d.schedule.Value.Payouts {
			if p.PayDate.Year() != year || confirmed[symbolMonth{symbol, p.PayDate.Month()}] {
				continue
			}

			status := model.PayoutStatusPaid
			if p.PayDate.After(now) {
				status = model.PayoutStatusScheduled
			}

			add(model.CalendarEntry{
				Symbol:         symbol,
				Quantity:       d.holding.Quantity,
				Amount:         round(p.Amount.Mul(d.holding.Quantity)),
				AmountPerShare: decimal.NewNullDecimal(p.Amount),
				ExDate:         p.ExDate,
				PayDate:        p.PayDate,
				Status:         status,
				Estimated:      p.Estimated,
				Profile:        profileOf(symbol),
			})
		}
	}

	for i := range calendar.Months {
		m := &calendar.Months[i]
		sort.SliceStable(m.Entries, func(a, b int) bool {
			return m.Entries[a].PayDate.Before(m.Entries[b].PayDate)
		})
		m.Total = round(m.Total)
		m.TotalAfterTax = afterTax(m.Total, taxRate)
	}
	calendar.Total = round(calendar.Total)
	calendar.TotalAfterTax = afterTax(calendar.Total, taxRate)

	return calendar
}
