package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// DividendRepository provides data access methods for the dividend table.
type DividendRepository struct {
	db *sql.DB
}

// NewDividendRepository creates a new DividendRepository with the provided database connection.
func NewDividendRepository(db *sql.DB) *DividendRepository {
	return &DividendRepository{db: db}
}

const insertDividendQuery = `
	INSERT INTO dividend (id, owner_id, symbol, amount, amount_per_share, pay_date, ex_dividend_date, source, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func dividendArgs(d model.Dividend) []any {
	var perShare sql.NullString
	if d.AmountPerShare.Valid {
		perShare = sql.NullString{String: d.AmountPerShare.Decimal.String(), Valid: true}
	}
	return []any{
		d.ID,
		d.OwnerID,
		d.Symbol,
		d.Amount.String(),
		perShare,
		FormatDate(d.PayDate),
		nullDate(d.ExDividendDate),
		d.Source,
		FormatTimestamp(d.CreatedAt),
	}
}

// InsertDividend stores a dividend record.
// Returns ErrDuplicateDividend when the owner already has a record for the
// same symbol and ex-dividend date.
func (r *DividendRepository) InsertDividend(ctx context.Context, d model.Dividend) error {
	_, err := getQuerier(ctx, r.db).ExecContext(ctx, insertDividendQuery, dividendArgs(d)...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicateDividend
		}
		return fmt.Errorf("failed to insert dividend: %w", err)
	}
	return nil
}

// InsertDividendIfAbsent stores a dividend unless one already exists for the
// same owner, symbol and ex-dividend date. Reports whether a row was written.
func (r *DividendRepository) InsertDividendIfAbsent(ctx context.Context, d model.Dividend) (bool, error) {
	query := insertDividendQuery + ` ON CONFLICT (owner_id, symbol, ex_dividend_date) DO NOTHING`

	result, err := getQuerier(ctx, r.db).ExecContext(ctx, query, dividendArgs(d)...)
	if err != nil {
		return false, fmt.Errorf("failed to insert dividend: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListDividends returns the owner's dividends ordered by pay date.
// A zero year returns every year.
func (r *DividendRepository) ListDividends(ctx context.Context, ownerID string, year int) ([]model.Dividend, error) {
	query := `
		SELECT id, owner_id, symbol, amount, amount_per_share, pay_date, ex_dividend_date, source, created_at
		FROM dividend
		WHERE owner_id = ?
		AND (? = 0 OR (pay_date >= ? AND pay_date < ?))
		ORDER BY pay_date ASC, symbol ASC
	`

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	rows, err := getQuerier(ctx, r.db).QueryContext(ctx, query, ownerID, year, FormatDate(from), FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query dividend table: %w", err)
	}
	defer rows.Close()

	dividends := []model.Dividend{}
	for rows.Next() {
		d, err := scanDividend(rows)
		if err != nil {
			return nil, err
		}
		dividends = append(dividends, d)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dividend table: %w", err)
	}

	return dividends, nil
}

// DeleteDividend removes a dividend of the owner.
// Returns ErrDividendNotFound if nothing was deleted.
func (r *DividendRepository) DeleteDividend(ctx context.Context, ownerID, id string) error {
	result, err := getQuerier(ctx, r.db).ExecContext(ctx, `DELETE FROM dividend WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete dividend: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.ErrDividendNotFound
	}
	return nil
}

func scanDividend(row rowScanner) (model.Dividend, error) {
	var d model.Dividend
	var payDateStr, createdAtStr string
	var exDateStr sql.NullString

	err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Symbol,
		&d.Amount,
		&d.AmountPerShare,
		&payDateStr,
		&exDateStr,
		&d.Source,
		&createdAtStr,
	)
	if err != nil {
		return model.Dividend{}, fmt.Errorf("failed to scan dividend: %w", err)
	}

	if d.PayDate, err = ParseTime(payDateStr); err != nil {
		return model.Dividend{}, err
	}
	if d.ExDividendDate, err = parseNullTime(exDateStr); err != nil {
		return model.Dividend{}, err
	}
	if d.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Dividend{}, err
	}
	return d, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
