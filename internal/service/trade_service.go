package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/request"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/repository"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/validation"
)

// TradeService handles the trade ledger. Every ledger change rebuilds the
// owner's holdings in the same transaction.
type TradeService struct {
	tradeRepo      *repository.TradeRepository
	holdingService *HoldingService
	now            func() time.Time
}

// NewTradeService creates a new TradeService with the provided dependencies.
func NewTradeService(
	tradeRepo *repository.TradeRepository,
	holdingService *HoldingService,
) *TradeService {
	return &TradeService{
		tradeRepo:      tradeRepo,
		holdingService: holdingService,
		now:            time.Now,
	}
}

// WithClock replaces the time source used for CreatedAt and date validation.
func (s *TradeService) WithClock(now func() time.Time) *TradeService {
	s.now = now
	return s
}

// ListTrades returns the owner's trades in processing order. An empty symbol lists every symbol.
func (s *TradeService) ListTrades(ctx context.Context, ownerID, symbol string) ([]model.Trade, error) {
	trades, err := s.tradeRepo.ListTrades(ctx, ownerID, validation.NormalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveTrades, err)
	}
	return trades, nil
}

// CreateTrade validates and records a trade, then rebuilds the owner's holdings.
//
// A sell larger than the quantity held at the end of its trade date is rejected
// with ErrInsufficientShares and nothing is written.
//
// Returns:
//   - *model.Trade: the stored trade with its assigned ID
//   - error: a *validation.Error, ErrInsufficientShares, or a wrapped ErrFailedToCreateTrade
func (s *TradeService) CreateTrade(ctx context.Context, ownerID string, req request.CreateTradeRequest) (*model.Trade, error) {
	now := s.now().UTC()
	if err := validation.ValidateCreateTrade(req, now); err != nil {
		return nil, err
	}

	tradeDate, err := time.Parse("2006-01-02", req.TradeDate)
	if err != nil {
		return nil, err
	}

	trade := &model.Trade{
		OwnerID:   ownerID,
		Symbol:    validation.NormalizeSymbol(req.Symbol),
		Side:      strings.ToLower(strings.TrimSpace(req.Side)),
		Quantity:  req.Quantity,
		Price:     req.Price,
		TradeDate: tradeDate,
		CreatedAt: now,
	}

	err = s.holdingService.MutateLedger(ctx, ownerID, func(ctx context.Context) error {
		if !trade.IsBuy() {
			existing, err := s.tradeRepo.ListTrades(ctx, ownerID, trade.Symbol)
			if err != nil {
				return err
			}
			held := QuantityOn(existing, tradeDate.AddDate(0, 0, 1))
			if trade.Quantity.GreaterThan(held) {
				return fmt.Errorf("%w: selling %s %s but holding %s on %s",
					apperrors.ErrInsufficientShares, trade.Quantity, trade.Symbol, held, req.TradeDate)
			}
		}
		return s.tradeRepo.InsertTrade(ctx, trade)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientShares) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToCreateTrade, err)
	}

	slog.Info("trade recorded",
		slog.String("rqID", logging.RequestID(ctx)),
		slog.String("owner", ownerID),
		slog.String("symbol", trade.Symbol),
		slog.String("side", trade.Side),
		slog.String("quantity", trade.Quantity.String()),
	)
	return trade, nil
}

// DeleteTrade removes a trade of the owner and rebuilds the owner's holdings.
// Returns ErrTradeNotFound when the trade does not exist or belongs to another owner.
func (s *TradeService) DeleteTrade(ctx context.Context, ownerID string, id int64) error {
	err := s.holdingService.MutateLedger(ctx, ownerID, func(ctx context.Context) error {
		return s.tradeRepo.DeleteTrade(ctx, ownerID, id)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrTradeNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToDeleteTrade, err)
	}
	return nil
}
