package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// TradeRepository provides data access methods for the trade table.
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository creates a new TradeRepository with the provided database connection.
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// InsertTrade stores a new trade and sets its ID to the assigned insertion id.
func (r *TradeRepository) InsertTrade(ctx context.Context, t *model.Trade) error {
	query := `
		INSERT INTO trade (owner_id, symbol, side, quantity, price, trade_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getQuerier(ctx, r.db).ExecContext(ctx, query,
		t.OwnerID,
		t.Symbol,
		t.Side,
		t.Quantity.String(),
		t.Price.String(),
		FormatDate(t.TradeDate),
		FormatTimestamp(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read trade id: %w", err)
	}
	t.ID = id

	return nil
}

// GetTrade retrieves a single trade of the owner.
// Returns ErrTradeNotFound if the trade does not exist or belongs to another owner.
func (r *TradeRepository) GetTrade(ctx context.Context, ownerID string, id int64) (model.Trade, error) {
	query := `
		SELECT id, owner_id, symbol, side, quantity, price, trade_date, created_at
		FROM trade
		WHERE owner_id = ? AND id = ?
	`

	t, err := scanTrade(getQuerier(ctx, r.db).QueryRowContext(ctx, query, ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Trade{}, apperrors.ErrTradeNotFound
	}
	if err != nil {
		return model.Trade{}, err
	}
	return t, nil
}

// ListTrades retrieves the owner's trades in processing order: trade date
// ascending, then insertion order. An empty symbol returns all symbols.
func (r *TradeRepository) ListTrades(ctx context.Context, ownerID, symbol string) ([]model.Trade, error) {
	query := `
		SELECT id, owner_id, symbol, side, quantity, price, trade_date, created_at
		FROM trade
		WHERE owner_id = ?
		AND (? = '' OR symbol = ?)
		ORDER BY trade_date ASC, id ASC
	`

	rows, err := getQuerier(ctx, r.db).QueryContext(ctx, query, ownerID, symbol, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade table: %w", err)
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade table: %w", err)
	}

	return trades, nil
}

// ListSymbols returns the distinct symbols the owner has ever traded, sorted.
func (r *TradeRepository) ListSymbols(ctx context.Context, ownerID string) ([]string, error) {
	query := `SELECT DISTINCT symbol FROM trade WHERE owner_id = ? ORDER BY symbol`
	return queryStrings(ctx, getQuerier(ctx, r.db), query, ownerID)
}

// ListOwners returns every owner that has at least one trade.
func (r *TradeRepository) ListOwners(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT owner_id FROM trade ORDER BY owner_id`
	return queryStrings(ctx, getQuerier(ctx, r.db), query)
}

// DeleteTrade removes a trade of the owner.
// Returns ErrTradeNotFound if nothing was deleted.
func (r *TradeRepository) DeleteTrade(ctx context.Context, ownerID string, id int64) error {
	query := `DELETE FROM trade WHERE owner_id = ? AND id = ?`

	result, err := getQuerier(ctx, r.db).ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.ErrTradeNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (model.Trade, error) {
	var t model.Trade
	var tradeDateStr, createdAtStr string

	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Symbol,
		&t.Side,
		&t.Quantity,
		&t.Price,
		&tradeDateStr,
		&createdAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Trade{}, err
		}
		return model.Trade{}, fmt.Errorf("failed to scan trade: %w", err)
	}

	if t.TradeDate, err = ParseTime(tradeDateStr); err != nil {
		return model.Trade{}, err
	}
	if t.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Trade{}, err
	}

	return t, nil
}

func queryStrings(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		values = append(values, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return values, nil
}
