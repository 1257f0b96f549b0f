// Package polygon adapts the Polygon.io REST API to the marketdata interfaces.
package polygon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

const (
	dateLayout = "2006-01-02"
	// maxPages bounds pagination through next_url.
	maxPages = 5
)

// Client is a Polygon.io API client.
type Client struct {
	client *resty.Client
	apiKey string
	now    func() time.Time
}

// New creates a Polygon client for baseURL authenticated with apiKey.
func New(baseURL, apiKey string, timeout time.Duration, debug bool) *Client {
	client := resty.New().
		SetDebug(debug).
		SetTimeout(timeout).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	return &Client{client: client, apiKey: apiKey, now: time.Now}
}

// Name implements marketdata.Provider.
func (c *Client) Name() string {
	return "polygon"
}

// get performs a GET and decodes the body into out. A 404 maps to ErrNoData.
func (c *Client) get(ctx context.Context, op, path string, params map[string]string, out any) error {
	rqID := logging.RequestID(ctx)
	slog.Debug("polygon request start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", path))

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("apiKey", c.apiKey).
		SetResult(out).
		Get(path)
	if err != nil {
		slog.Error("error while dialing polygon", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, marketdata.ErrNoData)
	case resp.IsError():
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode())
	}

	slog.Debug("polygon request complete", slog.String("rqID", rqID), slog.String("op", op))
	return nil
}

// GetQuote returns the last close and its change against the close before it.
func (c *Client) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	to := c.now().UTC()
	from := to.AddDate(0, 0, -10)
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s", symbol, from.Format(dateLayout), to.Format(dateLayout))

	var body aggsResponse
	err := c.get(ctx, "polygon.GetQuote", path, map[string]string{
		"adjusted": "true",
		"sort":     "desc",
		"limit":    "2",
	}, &body)
	if err != nil {
		return model.Quote{}, err
	}

	if len(body.Results) == 0 {
		return model.Quote{}, fmt.Errorf("polygon.GetQuote %s: %w", symbol, marketdata.ErrNoData)
	}

	return quoteFromCloses(symbol, body), nil
}

func quoteFromCloses(symbol string, body aggsResponse) model.Quote {
	last := body.Results[0]
	quote := model.Quote{
		Symbol:        symbol,
		Price:         decimal.NewFromFloat(last.Close),
		Change:        decimal.Zero,
		ChangePercent: decimal.Zero,
		AsOf:          time.UnixMilli(last.Timestamp).UTC(),
	}

	if len(body.Results) > 1 && body.Results[1].Close != 0 {
		prev := decimal.NewFromFloat(body.Results[1].Close)
		quote.Change = quote.Price.Sub(prev)
		quote.ChangePercent = quote.Change.Div(prev).Mul(decimal.NewFromInt(100))
	}
	return quote
}

// GetProfile returns the company name, SIC-derived sector and logo.
//
// The trailing yield annualizes the latest cash dividend by its frequency and
// divides it by market cap per weighted share. It stays null when either side
// is unknown; a failed dividend lookup does not fail the profile.
func (c *Client) GetProfile(ctx context.Context, symbol string) (model.Profile, error) {
	var body tickerResponse
	if err := c.get(ctx, "polygon.GetProfile", "/v3/reference/tickers/"+symbol, nil, &body); err != nil {
		return model.Profile{}, err
	}

	profile := model.Profile{
		Symbol:  symbol,
		Name:    body.Results.Name,
		Sector:  marketdata.SectorFromSIC(body.Results.SICCode),
		LogoURL: body.Results.Branding.LogoURL,
	}
	if profile.Name == "" {
		profile.Name = symbol
	}

	if body.Results.MarketCap > 0 && body.Results.WeightedSharesOutstanding > 0 {
		price := decimal.NewFromFloat(body.Results.MarketCap).Div(decimal.NewFromFloat(body.Results.WeightedSharesOutstanding))
		annual, err := c.annualDividend(ctx, symbol)
		if err != nil {
			slog.Warn("polygon trailing yield unavailable",
				slog.String("rqID", logging.RequestID(ctx)),
				slog.String("symbol", symbol),
				slog.String("err", err.Error()),
			)
		} else if annual.IsPositive() {
			profile.TrailingYield = marketdata.TrailingYield(annual, price)
		}
	}
	return profile, nil
}

// annualDividend is the latest cash dividend times its yearly frequency.
// One-off dividends (frequency 0) annualize to zero.
func (c *Client) annualDividend(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var body dividendsResponse
	err := c.get(ctx, "polygon.annualDividend", "/v3/reference/dividends", map[string]string{
		"ticker": symbol,
		"limit":  "1",
		"order":  "desc",
		"sort":   "ex_dividend_date",
	}, &body)
	if err != nil {
		return decimal.Zero, err
	}
	if len(body.Results) == 0 {
		return decimal.Zero, nil
	}

	latest := body.Results[0]
	return decimal.NewFromFloat(latest.CashAmount).Mul(decimal.NewFromInt(int64(latest.Frequency))), nil
}

// GetPriceHistory returns the daily closes from months ago until today, oldest first.
func (c *Client) GetPriceHistory(ctx context.Context, symbol string, months int) ([]model.PricePoint, error) {
	to := c.now().UTC()
	from := to.AddDate(0, -months, 0)
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s", symbol, from.Format(dateLayout), to.Format(dateLayout))

	var body aggsResponse
	err := c.get(ctx, "polygon.GetPriceHistory", path, map[string]string{
		"adjusted": "true",
		"sort":     "asc",
		"limit":    "5000",
	}, &body)
	if err != nil {
		return nil, err
	}
	if len(body.Results) == 0 {
		return nil, fmt.Errorf("polygon.GetPriceHistory %s: %w", symbol, marketdata.ErrNoData)
	}

	points := make([]model.PricePoint, 0, len(body.Results))
	for _, r := range body.Results {
		points = append(points, model.PricePoint{
			Date:  time.UnixMilli(r.Timestamp).UTC().Truncate(24 * time.Hour),
			Close: decimal.NewFromFloat(r.Close),
		})
	}
	return points, nil
}

// SearchSymbols returns active stock tickers whose ticker or name matches query.
func (c *Client) SearchSymbols(ctx context.Context, query string) ([]model.SymbolMatch, error) {
	var body tickerSearchResponse
	err := c.get(ctx, "polygon.SearchSymbols", "/v3/reference/tickers", map[string]string{
		"search": query,
		"active": "true",
		"market": "stocks",
		"limit":  strconv.Itoa(marketdata.MaxSearchResults),
	}, &body)
	if err != nil {
		return nil, err
	}

	matches := make([]model.SymbolMatch, 0, len(body.Results))
	for _, r := range body.Results {
		if len(matches) == marketdata.MaxSearchResults {
			break
		}
		matches = append(matches, model.SymbolMatch{Symbol: r.Ticker, Name: r.Name, Exchange: r.PrimaryExchange})
	}
	return matches, nil
}

// GetDividendHistory returns every cash dividend Polygon knows for symbol.
func (c *Client) GetDividendHistory(ctx context.Context, symbol string) ([]model.DividendEvent, error) {
	params := map[string]string{
		"ticker": symbol,
		"limit":  "1000",
		"order":  "desc",
		"sort":   "ex_dividend_date",
	}

	events := []model.DividendEvent{}
	path := "/v3/reference/dividends"
	for page := 0; page < maxPages && path != ""; page++ {
		var body dividendsResponse
		if err := c.get(ctx, "polygon.GetDividendHistory", path, params, &body); err != nil {
			return nil, err
		}

		for _, r := range body.Results {
			exDate, err := time.Parse(dateLayout, r.ExDividendDate)
			if err != nil || r.CashAmount <= 0 {
				slog.Warn("skipping malformed polygon dividend",
					slog.String("rqID", logging.RequestID(ctx)),
					slog.String("symbol", symbol),
					slog.String("exDate", r.ExDividendDate),
				)
				continue
			}

			event := model.DividendEvent{ExDate: exDate, Amount: decimal.NewFromFloat(r.CashAmount)}
			if payDate, err := time.Parse(dateLayout, r.PayDate); err == nil {
				event.PayDate = &payDate
			}
			events = append(events, event)
		}

		path, params = nextPage(body.NextURL)
	}

	return events, nil
}

// GetSplits returns every split Polygon knows for symbol.
func (c *Client) GetSplits(ctx context.Context, symbol string) ([]model.SplitEvent, error) {
	params := map[string]string{
		"ticker": symbol,
		"limit":  "1000",
	}

	splits := []model.SplitEvent{}
	path := "/v3/reference/splits"
	for page := 0; page < maxPages && path != ""; page++ {
		var body splitsResponse
		if err := c.get(ctx, "polygon.GetSplits", path, params, &body); err != nil {
			return nil, err
		}

		for _, r := range body.Results {
			date, err := time.Parse(dateLayout, r.ExecutionDate)
			if err != nil || r.SplitFrom <= 0 || r.SplitTo <= 0 {
				continue
			}
			splits = append(splits, model.SplitEvent{
				Date:  date,
				Ratio: decimal.NewFromFloat(r.SplitTo).Div(decimal.NewFromFloat(r.SplitFrom)),
			})
		}

		path, params = nextPage(body.NextURL)
	}

	return splits, nil
}

// nextPage turns an absolute next_url into a path relative to the base URL.
// The cursor is part of the URL, so no further params are needed.
func nextPage(nextURL string) (string, map[string]string) {
	if nextURL == "" {
		return "", nil
	}
	if i := strings.Index(nextURL, "/v3/"); i >= 0 {
		return nextURL[i:], nil
	}
	return "", nil
}
