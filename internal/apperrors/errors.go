// Package apperrors defines the sentinel errors shared by the repository,
// service and HTTP layers. Callers wrap them with fmt.Errorf("...: %w", err)
// and match them with errors.Is.
package apperrors

import "errors"

// Domain entity errors represent missing entities in the system.
var (
	// ErrTradeNotFound indicates that a trade with the given ID does not exist for the owner.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrDividendNotFound indicates that a dividend record with the given ID does not exist for the owner.
	ErrDividendNotFound = errors.New("dividend not found")

	// ErrHoldingNotFound indicates that the owner holds no shares of the symbol.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrPriceSnapshotNotFound indicates that no price snapshot is stored for the symbol.
	ErrPriceSnapshotNotFound = errors.New("price snapshot not found")

	// ErrSymbolNotFound indicates that the market data provider knows nothing about a symbol.
	ErrSymbolNotFound = errors.New("no market data for symbol")

	// ErrJobNotFound indicates that no background job is registered under the name.
	ErrJobNotFound = errors.New("job not found")
)

// Business logic errors represent validation failures or constraint violations.
var (
	// ErrInsufficientShares indicates that a sell cannot be recorded because
	// the owner did not hold enough shares on the trade date.
	ErrInsufficientShares = errors.New("insufficient shares for sale")

	// ErrDuplicateDividend indicates that a dividend with the same owner, symbol
	// and ex-dividend date is already recorded.
	ErrDuplicateDividend = errors.New("dividend already recorded for this ex-dividend date")

	// ErrInvalidOwner indicates that the owner ID is missing or not a UUID.
	ErrInvalidOwner = errors.New("owner ID must be a valid UUID")

	// ErrInvalidSymbol indicates an empty or malformed ticker symbol.
	ErrInvalidSymbol = errors.New("symbol is required")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToRetrieveTrades    = errors.New("failed to retrieve trades")
	ErrFailedToCreateTrade       = errors.New("failed to create trade")
	ErrFailedToDeleteTrade       = errors.New("failed to delete trade")
	ErrFailedToRetrieveHoldings  = errors.New("failed to retrieve holdings")
	ErrFailedToRecalculate       = errors.New("failed to recalculate holdings")
	ErrFailedToRetrieveDividends = errors.New("failed to retrieve dividends")
	ErrFailedToCreateDividend    = errors.New("failed to create dividend")
	ErrFailedToDeleteDividend    = errors.New("failed to delete dividend")
	ErrFailedToSyncDividends     = errors.New("failed to sync dividends")
	ErrFailedToAnalyzePortfolio  = errors.New("failed to analyze portfolio")
	ErrFailedToExportReport      = errors.New("failed to export report")
	ErrFailedToGetVersionInfo    = errors.New("failed to get version information")

	// ErrSourceUnavailable indicates that the market data provider failed for a symbol.
	ErrSourceUnavailable = errors.New("market data source unavailable")
)
