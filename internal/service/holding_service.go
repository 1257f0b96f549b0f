package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/repository"
)

// ownerLocks hands out one mutex per owner. Entries are never removed; the
// number of owners is small.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *ownerLocks) lock(ownerID string) func() {
	l.mu.Lock()
	m, ok := l.locks[ownerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ownerID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// HoldingService derives holdings from the trade ledger.
type HoldingService struct {
	txManager   *repository.TxManager
	tradeRepo   *repository.TradeRepository
	holdingRepo *repository.HoldingRepository
	locks       *ownerLocks
	now         func() time.Time
}

// NewHoldingService creates a new HoldingService with the provided repository dependencies.
func NewHoldingService(
	txManager *repository.TxManager,
	tradeRepo *repository.TradeRepository,
	holdingRepo *repository.HoldingRepository,
) *HoldingService {
	return &HoldingService{
		txManager:   txManager,
		tradeRepo:   tradeRepo,
		holdingRepo: holdingRepo,
		locks:       &ownerLocks{locks: make(map[string]*sync.Mutex)},
		now:         time.Now,
	}
}

// WithClock replaces the time source used for UpdatedAt.
func (s *HoldingService) WithClock(now func() time.Time) *HoldingService {
	s.now = now
	return s
}

// ListHoldings returns the owner's current holdings ordered by symbol.
func (s *HoldingService) ListHoldings(ctx context.Context, ownerID string) ([]model.Holding, error) {
	holdings, err := s.holdingRepo.ListHoldings(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveHoldings, err)
	}
	return holdings, nil
}

// RecalculateHoldings rebuilds every holding of the owner from the trade ledger.
// The rebuild is atomic: on failure the previous holdings are left untouched.
func (s *HoldingService) RecalculateHoldings(ctx context.Context, ownerID string) error {
	return s.MutateLedger(ctx, ownerID, nil)
}

// MutateLedger runs fn and a full holding rebuild in one transaction while
// holding the owner's lock. fn may be nil. When fn or the rebuild fails the
// transaction is rolled back, so ledger writes made by fn never survive
// without matching holdings.
func (s *HoldingService) MutateLedger(ctx context.Context, ownerID string, fn func(ctx context.Context) error) error {
	unlock := s.locks.lock(ownerID)
	defer unlock()

	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if fn != nil {
			if err := fn(ctx); err != nil {
				return err
			}
		}
		return s.rebuild(ctx, ownerID)
	})
	if err != nil {
		slog.Error("holding rebuild failed",
			slog.String("rqID", logging.RequestID(ctx)),
			slog.String("op", "HoldingService.MutateLedger"),
			slog.String("owner", ownerID),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

// rebuild deletes and regenerates the owner's holdings. It must run inside a
// transaction carried by ctx.
func (s *HoldingService) rebuild(ctx context.Context, ownerID string) error {
	trades, err := s.tradeRepo.ListTrades(ctx, ownerID, "")
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToRecalculate, err)
	}

	if err := s.holdingRepo.DeleteHoldings(ctx, ownerID); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToRecalculate, err)
	}

	now := s.now().UTC()
	symbols, bySymbol := groupTradesBySymbol(trades)
	for _, symbol := range symbols {
		holding, ok := FoldHolding(ownerID, symbol, bySymbol[symbol], now)
		if !ok {
			continue
		}
		if err := s.holdingRepo.InsertHolding(ctx, holding); err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrFailedToRecalculate, err)
		}
	}

	slog.Debug("holdings rebuilt",
		slog.String("rqID", logging.RequestID(ctx)),
		slog.String("owner", ownerID),
		slog.Int("trades", len(trades)),
		slog.Int("symbols", len(symbols)),
	)
	return nil
}
