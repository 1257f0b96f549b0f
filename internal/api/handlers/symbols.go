package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/response"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/service"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/validation"
)

// SymbolHandler serves per-symbol market data.
type SymbolHandler struct {
	marketService   *service.MarketService
	scheduleService *service.ScheduleService
}

// NewSymbolHandler creates a new SymbolHandler.
func NewSymbolHandler(marketService *service.MarketService, scheduleService *service.ScheduleService) *SymbolHandler {
	return &SymbolHandler{
		marketService:   marketService,
		scheduleService: scheduleService,
	}
}

// symbolParam returns the normalized {symbol} URL parameter, writing a 400
// and returning false when it is malformed.
func symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "symbol")
	if !validation.ValidSymbol(raw) {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidSymbol.Error(), raw)
		return "", false
	}
	return validation.NormalizeSymbol(raw), true
}

// Schedule handles GET requests for a symbol's projected dividend schedule.
//
// Endpoint: GET /api/symbols/{symbol}/schedule
// Response: 200 OK with DividendSchedule
// Error: 404 Not Found if the symbol has no dividend history
// Error: 502 Bad Gateway if the provider failed
func (h *SymbolHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}

	respondResult(w, symbol, h.scheduleService.ProjectSchedule(r.Context(), symbol))
}

// Quote handles GET requests for a symbol's latest price.
//
// Endpoint: GET /api/symbols/{symbol}/quote
// Response: 200 OK with Quote
// Error: 404 Not Found if the provider does not know the symbol
// Error: 502 Bad Gateway if the provider failed and no snapshot exists
func (h *SymbolHandler) Quote(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}

	respondResult(w, symbol, h.marketService.GetQuote(r.Context(), symbol))
}

// Price history range in months.
const (
	defaultHistoryMonths = 6
	maxHistoryMonths     = 60
)

// History handles GET requests for a symbol's daily closing prices.
//
// Endpoint: GET /api/symbols/{symbol}/history
// Query parameters:
//   - months: lookback in months, 1 to 60 (default 6)
//
// Response: 200 OK with []PricePoint, oldest first
// Error: 400 Bad Request if months is out of range
// Error: 404 Not Found if the provider has no prices for the symbol
// Error: 502 Bad Gateway if the provider failed
func (h *SymbolHandler) History(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}

	months := defaultHistoryMonths
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryMonths {
			response.RespondError(w, http.StatusBadRequest, "invalid months", "months must be between 1 and 60")
			return
		}
		months = n
	}

	respondResult(w, symbol, h.marketService.GetPriceHistory(r.Context(), symbol, months))
}

// Search handles GET requests for symbols matching a ticker or company name.
//
// Endpoint: GET /api/symbols/search
// Query parameters:
//   - q: search text; an empty query returns an empty list
//
// Response: 200 OK with at most 10 SymbolMatch entries
// Error: 502 Bad Gateway if the provider failed
func (h *SymbolHandler) Search(w http.ResponseWriter, r *http.Request) {
	matches, err := h.marketService.SearchSymbols(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		if errors.Is(err, apperrors.ErrSourceUnavailable) {
			response.RespondError(w, http.StatusBadGateway, apperrors.ErrSourceUnavailable.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "symbol search failed", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, matches)
}
