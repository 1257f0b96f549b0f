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
)

// DividendHandler handles HTTP requests for dividend endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the dividendService.
type DividendHandler struct {
	dividendService *service.DividendService
}

// NewDividendHandler creates a new DividendHandler with the provided service dependency.
func NewDividendHandler(dividendService *service.DividendService) *DividendHandler {
	return &DividendHandler{
		dividendService: dividendService,
	}
}

// ListDividends handles GET requests for the owner's recorded dividends.
// The optional year query parameter filters by pay date year.
//
// Endpoint: GET /api/dividends?year=2024
// Response: 200 OK with array of Dividend
// Error: 400 Bad Request if year is not a number
// Error: 500 Internal Server Error if retrieval fails
func (h *DividendHandler) ListDividends(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1900 || y > 9999 {
			response.RespondError(w, http.StatusBadRequest, "invalid year", raw)
			return
		}
		year = y
	}

	dividends, err := h.dividendService.ListDividends(r.Context(), ownerID(r), year)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveDividends.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, dividends)
}

// CreateDividend handles POST requests to record a received dividend.
//
// Endpoint: POST /api/dividends
// Request: CreateDividendRequest
// Response: 201 Created with the stored Dividend
// Error: 400 Bad Request on malformed body or validation failure
// Error: 409 Conflict if a dividend with the same ex-date is already recorded
func (h *DividendHandler) CreateDividend(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateDividendRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	dividend, err := h.dividendService.CreateDividend(r.Context(), ownerID(r), req)
	if err != nil {
		if respondValidation(w, err) {
			return
		}
		if errors.Is(err, apperrors.ErrDuplicateDividend) {
			response.RespondError(w, http.StatusConflict, apperrors.ErrDuplicateDividend.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCreateDividend.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, dividend)
}

// DeleteDividend handles DELETE requests to remove a recorded dividend.
// The id is validated as a UUID by middleware.
//
// Endpoint: DELETE /api/dividends/{id}
// Response: 204 No Content
// Error: 404 Not Found if the owner has no such dividend
func (h *DividendHandler) DeleteDividend(w http.ResponseWriter, r *http.Request) {
	if err := h.dividendService.DeleteDividend(r.Context(), ownerID(r), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, apperrors.ErrDividendNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrDividendNotFound.Error(), "")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToDeleteDividend.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// SyncDividends back-fills the owner's dividends from provider history.
//
// Endpoint: POST /api/dividends/sync
// Response: 200 OK with DividendSyncReport
// Error: 500 Internal Server Error if the ledger cannot be read
func (h *DividendHandler) SyncDividends(w http.ResponseWriter, r *http.Request) {
	report, err := h.dividendService.SyncDividends(r.Context(), ownerID(r))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToSyncDividends.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}
