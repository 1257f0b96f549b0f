package request

import "github.com/shopspring/decimal"

// CreateDividendRequest represents the request body for recording a received dividend.
// AmountPerShare and ExDividendDate are optional.
type CreateDividendRequest struct {
	Symbol         string              `json:"symbol"`
	Amount         decimal.Decimal     `json:"amount"`
	AmountPerShare decimal.NullDecimal `json:"amountPerShare"`
	PayDate        string              `json:"payDate"`
	ExDividendDate string              `json:"exDividendDate,omitempty"`
}
