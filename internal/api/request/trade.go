package request

import "github.com/shopspring/decimal"

// CreateTradeRequest represents the request body for recording a trade.
// Quantity and price accept JSON numbers or strings.
type CreateTradeRequest struct {
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	TradeDate string          `json:"tradeDate"`
}
