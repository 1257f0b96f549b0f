// Package yahoo adapts the Yahoo Finance chart API to the marketdata interfaces.
package yahoo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// DefaultBaseURL is the public Yahoo Finance query host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// FinanceClient provides methods for fetching financial data from the Yahoo Finance API.
// Yahoo reports dividends by ex-date only; pay dates are left nil.
type FinanceClient struct {
	client *resty.Client
}

// NewFinanceClient creates a new Yahoo Finance client.
//
// Parameters:
//   - baseURL: API host, usually DefaultBaseURL
//   - timeout: per-request timeout
//   - debug: enables resty request/response logging
//
// Returns:
//   - *FinanceClient: A new client instance ready for use
func NewFinanceClient(baseURL string, timeout time.Duration, debug bool) *FinanceClient {
	client := resty.New().
		SetDebug(debug).
		SetTimeout(timeout).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36").
		SetHeader("Accept", "application/json")
	return &FinanceClient{client: client}
}

// Name implements marketdata.Provider.
func (c *FinanceClient) Name() string {
	return "yahoo"
}

// queryChart executes a chart request and returns the first result.
//
// Yahoo answers unknown symbols with 404 and a chart.error object, both of
// which are reported as marketdata.ErrNoData.
//
// Parameters:
//   - ctx: request context
//   - symbol: Stock ticker symbol (e.g., "AAPL", "MSFT")
//   - params: chart query parameters (range, interval, events)
//
// Returns:
//   - Result: The first chart result
//   - error: If the HTTP request fails, Yahoo returns an error, or no results are found
func (c *FinanceClient) queryChart(ctx context.Context, symbol string, params map[string]string) (Result, error) {
	rqID := logging.RequestID(ctx)
	op := "yahoo.queryChart"

	var body Response
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		SetError(&body).
		Get("/v8/finance/chart/" + symbol)
	if err != nil {
		slog.Error("error while dialing yahoo", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return Result{}, fmt.Errorf("%s %s: %w", op, symbol, marketdata.ErrNoData)
	}
	if body.Chart.Error != nil {
		if body.Chart.Error.Code == "Not Found" {
			return Result{}, fmt.Errorf("%s %s: %w", op, symbol, marketdata.ErrNoData)
		}
		return Result{}, fmt.Errorf("yahoo error: %s", body.Chart.Error.Description)
	}
	if resp.IsError() {
		return Result{}, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode())
	}
	if len(body.Chart.Result) == 0 {
		return Result{}, fmt.Errorf("no results returned for symbol %s: %w", symbol, marketdata.ErrNoData)
	}

	return body.Chart.Result[0], nil
}

// ParseCloses extracts the non-null daily closes of a chart result in time order.
//
// Returns:
//   - []Close: closing prices with their dates (midnight UTC)
//   - error: If timestamps and close arrays have mismatched lengths
func ParseCloses(result Result) ([]Close, error) {
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}

	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("mismatched data lengths")
	}

	out := make([]Close, 0, len(closes))
	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			continue
		}
		out = append(out, Close{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Price: *closes[i],
		})
	}
	return out, nil
}

// GetQuote returns the latest close and the change against the close before it.
// When fewer than two closes are available, the meta market price is used with a zero change.
func (c *FinanceClient) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	result, err := c.queryChart(ctx, symbol, map[string]string{"range": "5d", "interval": "1d"})
	if err != nil {
		return model.Quote{}, err
	}

	closes, err := ParseCloses(result)
	if err != nil {
		return model.Quote{}, err
	}

	quote := model.Quote{Symbol: symbol, Change: decimal.Zero, ChangePercent: decimal.Zero}
	switch {
	case len(closes) >= 2:
		last, prev := closes[len(closes)-1], closes[len(closes)-2]
		quote.Price = decimal.NewFromFloat(last.Price)
		quote.AsOf = last.Date
		if prev.Price != 0 {
			prevPrice := decimal.NewFromFloat(prev.Price)
			quote.Change = quote.Price.Sub(prevPrice)
			quote.ChangePercent = quote.Change.Div(prevPrice).Mul(decimal.NewFromInt(100))
		}
	case len(closes) == 1:
		quote.Price = decimal.NewFromFloat(closes[0].Price)
		quote.AsOf = closes[0].Date
	case result.Meta.RegularMarketPrice > 0:
		quote.Price = decimal.NewFromFloat(result.Meta.RegularMarketPrice)
	default:
		return model.Quote{}, fmt.Errorf("no price for %s: %w", symbol, marketdata.ErrNoData)
	}

	return quote, nil
}

// GetProfile returns the name reported in the chart metadata and the trailing
// yield of the last year's dividends against the market price.
// Yahoo's chart API carries no sector, so the default sector is used.
func (c *FinanceClient) GetProfile(ctx context.Context, symbol string) (model.Profile, error) {
	result, err := c.queryChart(ctx, symbol, map[string]string{
		"range":    "1y",
		"interval": "1mo",
		"events":   "div",
	})
	if err != nil {
		return model.Profile{}, err
	}

	profile := model.DefaultProfile(symbol)
	if result.Meta.LongName != "" {
		profile.Name = result.Meta.LongName
	} else if result.Meta.ShortName != "" {
		profile.Name = result.Meta.ShortName
	}

	annual := decimal.Zero
	for _, d := range result.Events.Dividends {
		if d.Amount > 0 {
			annual = annual.Add(decimal.NewFromFloat(d.Amount))
		}
	}
	profile.TrailingYield = marketdata.TrailingYield(annual, decimal.NewFromFloat(result.Meta.RegularMarketPrice))
	return profile, nil
}

// GetPriceHistory returns the daily closes of the last months.
func (c *FinanceClient) GetPriceHistory(ctx context.Context, symbol string, months int) ([]model.PricePoint, error) {
	result, err := c.queryChart(ctx, symbol, map[string]string{
		"range":    fmt.Sprintf("%dmo", months),
		"interval": "1d",
	})
	if err != nil {
		return nil, err
	}

	closes, err := ParseCloses(result)
	if err != nil {
		return nil, err
	}

	points := make([]model.PricePoint, 0, len(closes))
	for _, cl := range closes {
		points = append(points, model.PricePoint{Date: cl.Date, Close: decimal.NewFromFloat(cl.Price)})
	}
	return points, nil
}

// SearchSymbols asks the Yahoo search endpoint for tickers and names matching query.
// Results without a symbol are skipped.
func (c *FinanceClient) SearchSymbols(ctx context.Context, query string) ([]model.SymbolMatch, error) {
	op := "yahoo.SearchSymbols"

	var body SearchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":           query,
			"quotesCount": strconv.Itoa(marketdata.MaxSearchResults),
			"newsCount":   "0",
		}).
		SetResult(&body).
		Get("/v1/finance/search")
	if err != nil {
		slog.Error("error while dialing yahoo", slog.String("rqID", logging.RequestID(ctx)), slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode())
	}

	matches := make([]model.SymbolMatch, 0, len(body.Quotes))
	for _, q := range body.Quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		matches = append(matches, model.SymbolMatch{Symbol: q.Symbol, Name: name, Exchange: q.Exchange})
		if len(matches) == marketdata.MaxSearchResults {
			break
		}
	}
	return matches, nil
}

// history fetches ten years of monthly bars with dividend and split events.
func (c *FinanceClient) history(ctx context.Context, symbol string) (Result, error) {
	return c.queryChart(ctx, symbol, map[string]string{
		"range":    "10y",
		"interval": "1mo",
		"events":   "div,split",
	})
}

// GetDividendHistory returns the dividends of the last ten years sorted by ex-date.
func (c *FinanceClient) GetDividendHistory(ctx context.Context, symbol string) ([]model.DividendEvent, error) {
	result, err := c.history(ctx, symbol)
	if err != nil {
		return nil, err
	}

	events := make([]model.DividendEvent, 0, len(result.Events.Dividends))
	for _, d := range result.Events.Dividends {
		if d.Amount <= 0 {
			continue
		}
		events = append(events, model.DividendEvent{
			ExDate: time.Unix(d.Date, 0).UTC().Truncate(24 * time.Hour),
			Amount: decimal.NewFromFloat(d.Amount),
		})
	}

	sort.Slice(events, func(i, j int) bool { return events[i].ExDate.Before(events[j].ExDate) })
	return events, nil
}

// GetSplits returns the splits of the last ten years sorted by date.
func (c *FinanceClient) GetSplits(ctx context.Context, symbol string) ([]model.SplitEvent, error) {
	result, err := c.history(ctx, symbol)
	if err != nil {
		return nil, err
	}

	splits := make([]model.SplitEvent, 0, len(result.Events.Splits))
	for _, s := range result.Events.Splits {
		if s.Numerator <= 0 || s.Denominator <= 0 {
			continue
		}
		splits = append(splits, model.SplitEvent{
			Date:  time.Unix(s.Date, 0).UTC().Truncate(24 * time.Hour),
			Ratio: decimal.NewFromFloat(s.Numerator).Div(decimal.NewFromFloat(s.Denominator)),
		})
	}

	sort.Slice(splits, func(i, j int) bool { return splits[i].Date.Before(splits[j].Date) })
	return splits, nil
}
