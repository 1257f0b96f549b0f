package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/request"
)

// ValidateCreateDividend validates a manual dividend entry.
//
// Required fields:
//   - symbol: Ticker symbol
//   - amount: Must be positive
//   - payDate: Must be in YYYY-MM-DD format
//
// Optional fields (validated if provided):
//   - amountPerShare: Must be positive
//   - exDividendDate: Must be in YYYY-MM-DD format and not after payDate
func ValidateCreateDividend(req request.CreateDividendRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	} else if !ValidSymbol(req.Symbol) {
		errors["symbol"] = fmt.Sprintf("invalid symbol: %s", req.Symbol)
	}

	if !req.Amount.IsPositive() {
		errors["amount"] = "amount must be positive"
	}

	if req.AmountPerShare.Valid && !req.AmountPerShare.Decimal.IsPositive() {
		errors["amountPerShare"] = "amountPerShare must be positive"
	}

	payDate, payErr := time.Parse("2006-01-02", req.PayDate)
	if strings.TrimSpace(req.PayDate) == "" {
		errors["payDate"] = "payDate is required"
	} else if payErr != nil {
		errors["payDate"] = "payDate must be in YYYY-MM-DD format"
	}

	if req.ExDividendDate != "" {
		exDate, err := time.Parse("2006-01-02", req.ExDividendDate)
		if err != nil {
			errors["exDividendDate"] = "exDividendDate must be in YYYY-MM-DD format"
		} else if payErr == nil && exDate.After(payDate) {
			errors["exDividendDate"] = "exDividendDate cannot be after payDate"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
