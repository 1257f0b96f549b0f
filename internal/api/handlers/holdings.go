package handlers

import (
	"net/http"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/response"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/service"
)

// HoldingHandler handles HTTP requests for derived holdings.
type HoldingHandler struct {
	holdingService *service.HoldingService
}

// NewHoldingHandler creates a new HoldingHandler.
func NewHoldingHandler(holdingService *service.HoldingService) *HoldingHandler {
	return &HoldingHandler{
		holdingService: holdingService,
	}
}

// ListHoldings handles GET requests for the owner's current holdings.
//
// Endpoint: GET /api/holdings
// Response: 200 OK with array of Holding
// Error: 500 Internal Server Error if retrieval fails
func (h *HoldingHandler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.holdingService.ListHoldings(r.Context(), ownerID(r))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveHoldings.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, holdings)
}

// Recalculate rebuilds the owner's holdings from the ledger and returns them.
//
// Endpoint: POST /api/holdings/recalculate
// Response: 200 OK with array of Holding
// Error: 500 Internal Server Error if the rebuild fails; previous holdings are kept
func (h *HoldingHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	if err := h.holdingService.RecalculateHoldings(r.Context(), owner); err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRecalculate.Error(), err.Error())
		return
	}

	h.ListHoldings(w, r)
}
