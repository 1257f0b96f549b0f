package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/request"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// ValidTradeSide contains the allowed trade side values.
var ValidTradeSide = map[string]bool{
	model.SideBuy: true, model.SideSell: true,
}

// ValidateCreateTrade validates a trade creation request.
// Checks all required fields and validates their formats and constraints.
//
// Required fields:
//   - symbol: Ticker symbol, letters, digits, dots and dashes
//   - side: Must be one of: buy, sell
//   - quantity: Must be positive
//   - price: Must be positive
//   - tradeDate: Must be in YYYY-MM-DD format and not in the future
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateTrade(req request.CreateTradeRequest, now time.Time) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	} else if !ValidSymbol(req.Symbol) {
		errors["symbol"] = fmt.Sprintf("invalid symbol: %s", req.Symbol)
	}

	side := strings.ToLower(strings.TrimSpace(req.Side))
	if side == "" {
		errors["side"] = "side is required"
	} else if !ValidTradeSide[side] {
		errors["side"] = fmt.Sprintf("invalid side: %s", req.Side)
	}

	if !req.Quantity.IsPositive() {
		errors["quantity"] = "quantity must be positive"
	}

	if !req.Price.IsPositive() {
		errors["price"] = "price must be positive"
	}

	if strings.TrimSpace(req.TradeDate) == "" {
		errors["tradeDate"] = "tradeDate is required"
	} else if date, err := time.Parse("2006-01-02", req.TradeDate); err != nil {
		errors["tradeDate"] = "tradeDate must be in YYYY-MM-DD format"
	} else if date.After(now) {
		errors["tradeDate"] = "tradeDate cannot be in the future"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
