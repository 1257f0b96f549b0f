package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/middleware"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/response"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/validation"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into a T. Unknown fields and trailing
// data are rejected.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return v, errors.New("invalid JSON: unexpected data after object")
	}
	return v, nil
}

// ownerID returns the owner resolved by middleware.RequireOwner.
func ownerID(r *http.Request) string {
	return middleware.OwnerID(r.Context())
}

// respondValidation writes a 400 with per-field details when err is a
// validation error and reports whether it did.
func respondValidation(w http.ResponseWriter, err error) bool {
	var vErr *validation.Error
	if !errors.As(err, &vErr) {
		return false
	}
	response.RespondError(w, http.StatusBadRequest, "validation failed", vErr.Fields)
	return true
}

// respondResult writes a market data result: 200 with the value, 404 for no
// data, and 502 when the source failed.
func respondResult[T any](w http.ResponseWriter, symbol string, res marketdata.Result[T]) {
	switch res.Status {
	case marketdata.StatusOK:
		response.RespondJSON(w, http.StatusOK, res.Value)
	case marketdata.StatusNoData:
		response.RespondError(w, http.StatusNotFound, apperrors.ErrSymbolNotFound.Error(), symbol)
	default:
		response.RespondError(w, http.StatusBadGateway, apperrors.ErrSourceUnavailable.Error(), res.Reason)
	}
}
