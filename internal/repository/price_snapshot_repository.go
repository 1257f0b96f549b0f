package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// PriceSnapshotRepository stores the latest quote per symbol.
type PriceSnapshotRepository struct {
	db *sql.DB
}

// NewPriceSnapshotRepository creates a new PriceSnapshotRepository with the provided database connection.
func NewPriceSnapshotRepository(db *sql.DB) *PriceSnapshotRepository {
	return &PriceSnapshotRepository{db: db}
}

// GetSnapshot returns the stored snapshot for symbol, or ErrPriceSnapshotNotFound.
func (r *PriceSnapshotRepository) GetSnapshot(ctx context.Context, symbol string) (model.PriceSnapshot, error) {
	query := `
		SELECT symbol, price, change, change_percent, refreshed_at
		FROM price_snapshot
		WHERE symbol = ?
	`

	var p model.PriceSnapshot
	var refreshedAtStr string
	err := getQuerier(ctx, r.db).QueryRowContext(ctx, query, symbol).Scan(
		&p.Symbol,
		&p.Price,
		&p.Change,
		&p.ChangePercent,
		&refreshedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PriceSnapshot{}, apperrors.ErrPriceSnapshotNotFound
	}
	if err != nil {
		return model.PriceSnapshot{}, fmt.Errorf("failed to scan price snapshot: %w", err)
	}

	if p.RefreshedAt, err = ParseTime(refreshedAtStr); err != nil {
		return model.PriceSnapshot{}, err
	}
	return p, nil
}

// UpsertSnapshot overwrites the snapshot for the symbol.
func (r *PriceSnapshotRepository) UpsertSnapshot(ctx context.Context, p model.PriceSnapshot) error {
	query := `
		INSERT INTO price_snapshot (symbol, price, change, change_percent, refreshed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			price = excluded.price,
			change = excluded.change,
			change_percent = excluded.change_percent,
			refreshed_at = excluded.refreshed_at
	`

	_, err := getQuerier(ctx, r.db).ExecContext(ctx, query,
		p.Symbol,
		p.Price.String(),
		p.Change.String(),
		p.ChangePercent.String(),
		FormatTimestamp(p.RefreshedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price snapshot: %w", err)
	}
	return nil
}
