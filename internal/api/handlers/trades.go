package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/request"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/response"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/service"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/validation"
)

// TradeHandler handles HTTP requests for the trade ledger.
type TradeHandler struct {
	tradeService *service.TradeService
}

// NewTradeHandler creates a new TradeHandler with the provided service dependency.
func NewTradeHandler(tradeService *service.TradeService) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
	}
}

// ListTrades handles GET requests to list the owner's trades, optionally
// filtered by the symbol query parameter.
//
// Endpoint: GET /api/trades?symbol=KO
// Response: 200 OK with array of Trade
// Error: 400 Bad Request if symbol is malformed
// Error: 500 Internal Server Error if retrieval fails
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol != "" && !validation.ValidSymbol(symbol) {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidSymbol.Error(), symbol)
		return
	}

	trades, err := h.tradeService.ListTrades(r.Context(), ownerID(r), symbol)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTrades.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, trades)
}

// CreateTrade handles POST requests to record a buy or sell.
//
// Endpoint: POST /api/trades
// Request: CreateTradeRequest
// Response: 201 Created with the stored Trade
// Error: 400 Bad Request on malformed body or validation failure
// Error: 409 Conflict if a sell exceeds the shares held on its date
// Error: 500 Internal Server Error if the trade cannot be stored
func (h *TradeHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateTradeRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	trade, err := h.tradeService.CreateTrade(r.Context(), ownerID(r), req)
	if err != nil {
		if respondValidation(w, err) {
			return
		}
		if errors.Is(err, apperrors.ErrInsufficientShares) {
			response.RespondError(w, http.StatusConflict, apperrors.ErrInsufficientShares.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCreateTrade.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, trade)
}

// DeleteTrade handles DELETE requests to remove a trade.
//
// Endpoint: DELETE /api/trades/{id}
// Response: 204 No Content
// Error: 400 Bad Request if id is not a positive integer
// Error: 404 Not Found if the owner has no such trade
// Error: 500 Internal Server Error if deletion fails
func (h *TradeHandler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondError(w, http.StatusBadRequest, "invalid trade id", chi.URLParam(r, "id"))
		return
	}

	if err := h.tradeService.DeleteTrade(r.Context(), ownerID(r), id); err != nil {
		if errors.Is(err, apperrors.ErrTradeNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTradeNotFound.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToDeleteTrade.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
