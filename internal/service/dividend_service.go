package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/request"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/marketdata"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/repository"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/validation"
)

// DividendService handles recorded dividends: manual entry and the back-fill
// from provider history.
type DividendService struct {
	txManager    *repository.TxManager
	dividendRepo *repository.DividendRepository
	tradeRepo    *repository.TradeRepository
	syncRepo     *repository.SyncStateRepository
	market       *MarketService
	syncInterval time.Duration
	now          func() time.Time
}

// NewDividendService creates a new DividendService with the provided dependencies.
// syncInterval is the minimum time between two back-fills of the same owner and symbol.
func NewDividendService(
	txManager *repository.TxManager,
	dividendRepo *repository.DividendRepository,
	tradeRepo *repository.TradeRepository,
	syncRepo *repository.SyncStateRepository,
	market *MarketService,
	syncInterval time.Duration,
) *DividendService {
	return &DividendService{
		txManager:    txManager,
		dividendRepo: dividendRepo,
		tradeRepo:    tradeRepo,
		syncRepo:     syncRepo,
		market:       market,
		syncInterval: syncInterval,
		now:          time.Now,
	}
}

// WithClock replaces the time source used for the sync gate and ex-date cutoff.
func (s *DividendService) WithClock(now func() time.Time) *DividendService {
	s.now = now
	return s
}

// ListDividends returns the owner's recorded dividends paid in year, or every year when year is 0.
func (s *DividendService) ListDividends(ctx context.Context, ownerID string, year int) ([]model.Dividend, error) {
	dividends, err := s.dividendRepo.ListDividends(ctx, ownerID, year)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToRetrieveDividends, err)
	}
	return dividends, nil
}

// CreateDividend records a manually entered dividend.
// Returns ErrDuplicateDividend when the owner already has a dividend for the
// symbol on the same ex-dividend date.
func (s *DividendService) CreateDividend(ctx context.Context, ownerID string, req request.CreateDividendRequest) (*model.Dividend, error) {
	if err := validation.ValidateCreateDividend(req); err != nil {
		return nil, err
	}

	payDate, err := time.Parse("2006-01-02", req.PayDate)
	if err != nil {
		return nil, err
	}

	dividend := &model.Dividend{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Symbol:         validation.NormalizeSymbol(req.Symbol),
		Amount:         req.Amount,
		AmountPerShare: req.AmountPerShare,
		PayDate:        payDate,
		Source:         model.DividendSourceManual,
		CreatedAt:      s.now().UTC(),
	}
	if req.ExDividendDate != "" {
		exDate, err := time.Parse("2006-01-02", req.ExDividendDate)
		if err != nil {
			return nil, err
		}
		dividend.ExDividendDate = &exDate
	}

	if err := s.dividendRepo.InsertDividend(ctx, *dividend); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateDividend) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToCreateDividend, err)
	}

	return dividend, nil
}

// DeleteDividend removes a recorded dividend of the owner.
func (s *DividendService) DeleteDividend(ctx context.Context, ownerID, id string) error {
	if err := s.dividendRepo.DeleteDividend(ctx, ownerID, id); err != nil {
		if errors.Is(err, apperrors.ErrDividendNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToDeleteDividend, err)
	}
	return nil
}

// SyncDividends back-fills the owner's received dividends from provider history.
//
// Every symbol the owner ever traded is checked. A symbol synced within the
// sync interval is skipped. For each past ex-date the quantity held that day is
// replayed from the ledger, and a dividend of per-share amount times quantity is
// inserted unless one already exists for that ex-date. Each symbol commits on
// its own together with its sync time, so a failure keeps earlier symbols and
// a rerun never duplicates.
//
// Provider failures are reported per symbol in the report and do not fail the run.
func (s *DividendService) SyncDividends(ctx context.Context, ownerID string) (*model.DividendSyncReport, error) {
	rqID := logging.RequestID(ctx)
	op := "DividendService.SyncDividends"

	symbols, err := s.tradeRepo.ListSymbols(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToSyncDividends, err)
	}

	now := s.now().UTC()
	today := truncateDay(now)
	report := &model.DividendSyncReport{OwnerID: ownerID, Failed: []string{}}

	for _, symbol := range symbols {
		report.Checked++

		last, err := s.syncRepo.LastSynced(ctx, ownerID, symbol)
		if err != nil {
			return report, fmt.Errorf("%w: %w", apperrors.ErrFailedToSyncDividends, err)
		}
		if last != nil && now.Sub(*last) < s.syncInterval {
			report.Skipped++
			continue
		}

		history := s.market.GetDividendHistory(ctx, symbol)
		if history.Status == marketdata.StatusSourceError {
			slog.Warn("dividend history unavailable",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("owner", ownerID),
				slog.String("symbol", symbol),
				slog.String("reason", history.Reason),
			)
			report.Failed = append(report.Failed, symbol)
			continue
		}

		inserted, err := s.syncSymbol(ctx, ownerID, symbol, history.Value, today, now)
		if err != nil {
			slog.Error("dividend sync failed",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("owner", ownerID),
				slog.String("symbol", symbol),
				slog.String("err", err.Error()),
			)
			report.Failed = append(report.Failed, symbol)
			continue
		}
		report.Inserted += inserted
	}

	slog.Info("dividend sync finished",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("owner", ownerID),
		slog.Int("checked", report.Checked),
		slog.Int("skipped", report.Skipped),
		slog.Int("inserted", report.Inserted),
		slog.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// syncSymbol writes the dividends of one symbol and its sync time in one transaction.
func (s *DividendService) syncSymbol(
	ctx context.Context,
	ownerID, symbol string,
	events []model.DividendEvent,
	today, now time.Time,
) (int, error) {
	inserted := 0

	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		trades, err := s.tradeRepo.ListTrades(ctx, ownerID, symbol)
		if err != nil {
			return err
		}

		for _, ev := range events {
			exDate := truncateDay(ev.ExDate)
			if exDate.After(today) {
				continue
			}

			quantity := QuantityOn(trades, exDate)
			if !quantity.IsPositive() {
				continue
			}

			payDate := exDate
			if ev.PayDate != nil {
				payDate = truncateDay(*ev.PayDate)
			}

			perShare := ev.Amount
			ok, err := s.dividendRepo.InsertDividendIfAbsent(ctx, model.Dividend{
				ID:             uuid.New().String(),
				OwnerID:        ownerID,
				Symbol:         symbol,
				Amount:         perShare.Mul(quantity),
				AmountPerShare: decimal.NewNullDecimal(perShare),
				PayDate:        payDate,
				ExDividendDate: &exDate,
				Source:         model.DividendSourceSync,
				CreatedAt:      now,
			})
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
		}

		return s.syncRepo.MarkSynced(ctx, ownerID, symbol, now)
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// SyncAllOwners runs SyncDividends for every owner with trades.
// A failing owner is logged and does not stop the others.
func (s *DividendService) SyncAllOwners(ctx context.Context) ([]model.DividendSyncReport, error) {
	owners, err := s.tradeRepo.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToSyncDividends, err)
	}

	reports := make([]model.DividendSyncReport, 0, len(owners))
	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		report, err := s.SyncDividends(ctx, ownerID)
		if err != nil {
			slog.Error("owner dividend sync failed",
				slog.String("op", "DividendService.SyncAllOwners"),
				slog.String("owner", ownerID),
				slog.String("err", err.Error()),
			)
			continue
		}
		reports = append(reports, *report)
	}

	return reports, nil
}
