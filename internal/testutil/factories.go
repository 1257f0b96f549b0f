package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal and panics on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// TradeBuilder provides a fluent interface for creating test trades.
//
// Example usage:
//
//	// Simple creation with defaults (buy 10 TEST at 100)
//	trade := testutil.NewTrade(ownerID).Build(t, db)
//
//	// Customized trade
//	trade := testutil.NewTrade(ownerID).
//	    WithSymbol("AAPL").
//	    Sell("5").
//	    OnDate(testutil.Date(2024, time.March, 1)).
//	    Build(t, db)
type TradeBuilder struct {
	OwnerID   string
	Symbol    string
	Side      string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	TradeDate time.Time
}

// NewTrade creates a TradeBuilder with sensible defaults.
func NewTrade(ownerID string) *TradeBuilder {
	return &TradeBuilder{
		OwnerID:   ownerID,
		Symbol:    "TEST",
		Side:      model.SideBuy,
		Quantity:  decimal.NewFromInt(10),
		Price:     decimal.NewFromInt(100),
		TradeDate: Date(2024, time.January, 2),
	}
}

// WithSymbol sets a custom symbol.
func (b *TradeBuilder) WithSymbol(symbol string) *TradeBuilder {
	b.Symbol = symbol
	return b
}

// Buy makes the trade a purchase of quantity shares at price.
func (b *TradeBuilder) Buy(quantity, price string) *TradeBuilder {
	b.Side = model.SideBuy
	b.Quantity = Dec(quantity)
	b.Price = Dec(price)
	return b
}

// Sell makes the trade a sale of quantity shares.
func (b *TradeBuilder) Sell(quantity string) *TradeBuilder {
	b.Side = model.SideSell
	b.Quantity = Dec(quantity)
	return b
}

// WithPrice sets a custom price.
func (b *TradeBuilder) WithPrice(price string) *TradeBuilder {
	b.Price = Dec(price)
	return b
}

// OnDate sets the trade date.
func (b *TradeBuilder) OnDate(date time.Time) *TradeBuilder {
	b.TradeDate = date
	return b
}

// Model returns the trade without storing it.
func (b *TradeBuilder) Model() model.Trade {
	return model.Trade{
		OwnerID:   b.OwnerID,
		Symbol:    b.Symbol,
		Side:      b.Side,
		Quantity:  b.Quantity,
		Price:     b.Price,
		TradeDate: b.TradeDate,
		CreatedAt: b.TradeDate,
	}
}

// Build creates the trade in the database and returns it.
// Holdings are not recalculated.
func (b *TradeBuilder) Build(t *testing.T, db *sql.DB) model.Trade {
	t.Helper()

	query := `
		INSERT INTO trade (owner_id, symbol, side, quantity, price, trade_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	trade := b.Model()
	result, err := db.Exec(query,
		trade.OwnerID,
		trade.Symbol,
		trade.Side,
		trade.Quantity.String(),
		trade.Price.String(),
		trade.TradeDate.Format("2006-01-02"),
		trade.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("Failed to create test trade: %v", err)
	}

	trade.ID, err = result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read test trade id: %v", err)
	}

	return trade
}

// DividendBuilder provides a fluent interface for creating recorded dividends.
//
// Example usage:
//
//	dividend := testutil.NewDividend(ownerID, "KO").
//	    WithAmount("12.50", "0.50").
//	    PaidOn(testutil.Date(2024, time.April, 1)).
//	    Build(t, db)
type DividendBuilder struct {
	ID             string
	OwnerID        string
	Symbol         string
	Amount         decimal.Decimal
	AmountPerShare decimal.NullDecimal
	PayDate        time.Time
	ExDividendDate *time.Time
	Source         string
}

// NewDividend creates a DividendBuilder with sensible defaults.
func NewDividend(ownerID, symbol string) *DividendBuilder {
	return &DividendBuilder{
		ID:      MakeID(),
		OwnerID: ownerID,
		Symbol:  symbol,
		Amount:  decimal.NewFromInt(10),
		PayDate: Date(2024, time.March, 15),
		Source:  model.DividendSourceManual,
	}
}

// WithAmount sets the total amount and the per-share amount. An empty
// perShare leaves the per-share amount unset.
func (b *DividendBuilder) WithAmount(total, perShare string) *DividendBuilder {
	b.Amount = Dec(total)
	if perShare != "" {
		b.AmountPerShare = decimal.NewNullDecimal(Dec(perShare))
	}
	return b
}

// PaidOn sets the pay date.
func (b *DividendBuilder) PaidOn(date time.Time) *DividendBuilder {
	b.PayDate = date
	return b
}

// WithExDate sets the ex-dividend date.
func (b *DividendBuilder) WithExDate(date time.Time) *DividendBuilder {
	b.ExDividendDate = &date
	return b
}

// Build creates the dividend in the database and returns it.
func (b *DividendBuilder) Build(t *testing.T, db *sql.DB) model.Dividend {
	t.Helper()

	query := `
		INSERT INTO dividend (id, owner_id, symbol, amount, amount_per_share, pay_date, ex_dividend_date, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var perShare, exDate sql.NullString
	if b.AmountPerShare.Valid {
		perShare = sql.NullString{String: b.AmountPerShare.Decimal.String(), Valid: true}
	}
	if b.ExDividendDate != nil {
		exDate = sql.NullString{String: b.ExDividendDate.Format("2006-01-02"), Valid: true}
	}

	_, err := db.Exec(query,
		b.ID,
		b.OwnerID,
		b.Symbol,
		b.Amount.String(),
		perShare,
		b.PayDate.Format("2006-01-02"),
		exDate,
		b.Source,
		b.PayDate.Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("Failed to create test dividend: %v", err)
	}

	return model.Dividend{
		ID:             b.ID,
		OwnerID:        b.OwnerID,
		Symbol:         b.Symbol,
		Amount:         b.Amount,
		AmountPerShare: b.AmountPerShare,
		PayDate:        b.PayDate,
		ExDividendDate: b.ExDividendDate,
		Source:         b.Source,
		CreatedAt:      b.PayDate,
	}
}

// CreateSnapshot stores a price snapshot for symbol refreshed at refreshedAt.
func CreateSnapshot(t *testing.T, db *sql.DB, symbol, price string, refreshedAt time.Time) model.PriceSnapshot {
	t.Helper()

	query := `
		INSERT INTO price_snapshot (symbol, price, change, change_percent, refreshed_at)
		VALUES (?, ?, '0', '0', ?)
	`
	if _, err := db.Exec(query, symbol, price, refreshedAt.Format(time.RFC3339)); err != nil {
		t.Fatalf("Failed to create test price snapshot: %v", err)
	}

	return model.PriceSnapshot{
		Symbol:        symbol,
		Price:         Dec(price),
		Change:        decimal.Zero,
		ChangePercent: decimal.Zero,
		RefreshedAt:   refreshedAt,
	}
}
