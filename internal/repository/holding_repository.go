package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// HoldingRepository provides data access methods for the holding table.
// Holdings are derived data: they are only ever replaced wholesale for an owner.
type HoldingRepository struct {
	db *sql.DB
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// DeleteHoldings removes every holding of the owner.
func (r *HoldingRepository) DeleteHoldings(ctx context.Context, ownerID string) error {
	_, err := getQuerier(ctx, r.db).ExecContext(ctx, `DELETE FROM holding WHERE owner_id = ?`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete holdings: %w", err)
	}
	return nil
}

// InsertHolding stores one holding.
func (r *HoldingRepository) InsertHolding(ctx context.Context, h model.Holding) error {
	query := `
		INSERT INTO holding (owner_id, symbol, quantity, average_cost, acquired_on, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := getQuerier(ctx, r.db).ExecContext(ctx, query,
		h.OwnerID,
		h.Symbol,
		h.Quantity.String(),
		h.AverageCost.String(),
		FormatDate(h.AcquiredOn),
		FormatTimestamp(h.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding %s: %w", h.Symbol, err)
	}
	return nil
}

// ListHoldings returns the owner's holdings sorted by symbol.
func (r *HoldingRepository) ListHoldings(ctx context.Context, ownerID string) ([]model.Holding, error) {
	query := `
		SELECT owner_id, symbol, quantity, average_cost, acquired_on, updated_at
		FROM holding
		WHERE owner_id = ?
		ORDER BY symbol
	`

	rows, err := getQuerier(ctx, r.db).QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	holdings := []model.Holding{}
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}

	return holdings, nil
}

// GetHolding returns the owner's holding of symbol, or ErrHoldingNotFound.
func (r *HoldingRepository) GetHolding(ctx context.Context, ownerID, symbol string) (model.Holding, error) {
	query := `
		SELECT owner_id, symbol, quantity, average_cost, acquired_on, updated_at
		FROM holding
		WHERE owner_id = ? AND symbol = ?
	`

	h, err := scanHolding(getQuerier(ctx, r.db).QueryRowContext(ctx, query, ownerID, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Holding{}, apperrors.ErrHoldingNotFound
	}
	return h, err
}

// ListHeldSymbols returns every symbol held by any owner.
func (r *HoldingRepository) ListHeldSymbols(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, getQuerier(ctx, r.db), `SELECT DISTINCT symbol FROM holding ORDER BY symbol`)
}

func scanHolding(row rowScanner) (model.Holding, error) {
	var h model.Holding
	var acquiredOnStr, updatedAtStr string

	err := row.Scan(&h.OwnerID, &h.Symbol, &h.Quantity, &h.AverageCost, &acquiredOnStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Holding{}, err
		}
		return model.Holding{}, fmt.Errorf("failed to scan holding: %w", err)
	}

	if h.AcquiredOn, err = ParseTime(acquiredOnStr); err != nil {
		return model.Holding{}, err
	}
	if h.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.Holding{}, err
	}
	return h, nil
}
