package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SyncStateRepository records when an owner's dividends for a symbol were last back-filled.
type SyncStateRepository struct {
	db *sql.DB
}

// NewSyncStateRepository creates a new SyncStateRepository with the provided database connection.
func NewSyncStateRepository(db *sql.DB) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

// LastSynced returns the last sync time, or nil if the pair was never synced.
func (r *SyncStateRepository) LastSynced(ctx context.Context, ownerID, symbol string) (*time.Time, error) {
	query := `SELECT last_synced_at FROM dividend_sync_state WHERE owner_id = ? AND symbol = ?`

	var lastSyncedStr string
	err := getQuerier(ctx, r.db).QueryRowContext(ctx, query, ownerID, symbol).Scan(&lastSyncedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}

	t, err := ParseTime(lastSyncedStr)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkSynced sets the last sync time of the pair.
func (r *SyncStateRepository) MarkSynced(ctx context.Context, ownerID, symbol string, at time.Time) error {
	query := `
		INSERT INTO dividend_sync_state (owner_id, symbol, last_synced_at)
		VALUES (?, ?, ?)
		ON CONFLICT (owner_id, symbol) DO UPDATE SET last_synced_at = excluded.last_synced_at
	`

	if _, err := getQuerier(ctx, r.db).ExecContext(ctx, query, ownerID, symbol, FormatTimestamp(at)); err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return nil
}
