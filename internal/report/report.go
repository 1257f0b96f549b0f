// Package report renders a portfolio analysis as an XLSX workbook.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/logging"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/model"
)

// Sheet names of the exported workbook, in order.
const (
	SheetHoldings  = "Holdings"
	SheetDividends = "Dividends"
	SheetCalendar  = "Calendar"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	holdingsHeader  = []any{"Symbol", "Name", "Sector", "Quantity", "Average cost", "Cost basis", "Current value"}
	dividendsHeader = []any{"Symbol", "Name", "Quantity", "Dividend per share", "Expected annual", "Yield %", "Payout months", "5y growth %", "Expected after tax"}
	calendarHeader  = []any{"Month", "Symbol", "Pay date", "Ex-date", "Quantity", "Per share", "Amount", "Status", "Source"}
)

// WriteAnalysis builds the workbook for analysis and returns its bytes.
func WriteAnalysis(ctx context.Context, analysis *model.PortfolioAnalysis) ([]byte, error) {
	rqID := logging.RequestID(ctx)
	op := "report.WriteAnalysis"

	if analysis == nil {
		return nil, errors.New("empty analysis")
	}

	slog.Debug("WriteAnalysis start", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", analysis.OwnerID))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing workbook", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#cfe2f3"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	w := &writer{f: f, headerStyle: headerStyle}
	if err := w.holdings(analysis); err != nil {
		return nil, err
	}
	if err := w.dividends(analysis); err != nil {
		return nil, err
	}
	if err := w.calendar(analysis); err != nil {
		return nil, err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}
	if idx, err := f.GetSheetIndex(SheetHoldings); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while writing workbook", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("WriteAnalysis completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

type writer struct {
	f           *excelize.File
	headerStyle int
}

// sheet creates name with a styled header row.
func (w *writer) sheet(name string, header []any) error {
	if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	if err := w.f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := w.f.SetCellStyle(name, "A1", last, w.headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", name, err)
	}
	return w.f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// row writes values on the 1-based data row n (the header is row 1).
func (w *writer) row(name string, n int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n+1)
	if err != nil {
		return err
	}
	return w.f.SetSheetRow(name, cell, &values)
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func nullNum(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	return num(d.Decimal)
}

func (w *writer) holdings(a *model.PortfolioAnalysis) error {
	if err := w.sheet(SheetHoldings, holdingsHeader); err != nil {
		return err
	}

	profiles := make(map[string]model.Profile)
	values := make(map[string]decimal.Decimal)
	for _, sector := range a.SectorAllocation {
		for _, h := range sector.Holdings {
			values[h.Symbol] = h.Value
			profiles[h.Symbol] = model.Profile{Symbol: h.Symbol, Sector: sector.Sector}
		}
	}
	for _, m := range a.DividendMetrics {
		profiles[m.Symbol] = m.Profile
	}

	for i, h := range a.Holdings {
		p, ok := profiles[h.Symbol]
		if !ok {
			p = model.DefaultProfile(h.Symbol)
		}
		value, ok := values[h.Symbol]
		if !ok {
			value = h.CostBasis()
		}
		if err := w.row(SheetHoldings, i+1, []any{
			h.Symbol, p.Name, p.Sector,
			num(h.Quantity), num(h.AverageCost), num(h.CostBasis().Round(2)), num(value),
		}); err != nil {
			return err
		}
	}

	n := len(a.Holdings) + 2
	s := a.Summary
	return w.row(SheetHoldings, n, []any{"Total", "", "", "", "", num(s.TotalInvestment), num(s.TotalCurrentValue)})
}

func (w *writer) dividends(a *model.PortfolioAnalysis) error {
	if err := w.sheet(SheetDividends, dividendsHeader); err != nil {
		return err
	}

	for i, m := range a.DividendMetrics {
		var growth any = ""
		if m.GrowthRate5Y != nil {
			growth = *m.GrowthRate5Y * 100
		}
		if err := w.row(SheetDividends, i+1, []any{
			m.Symbol, m.Profile.Name, num(m.Quantity),
			num(m.DividendPerShare), num(m.ExpectedAnnualDividend), nullNum(m.DividendYield),
			fmt.Sprint(m.PayoutMonths), growth, num(m.ExpectedAnnualDividendAfterTax),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) calendar(a *model.PortfolioAnalysis) error {
	if err := w.sheet(SheetCalendar, calendarHeader); err != nil {
		return err
	}

	n := 0
	for _, month := range a.MonthlyCalendar.Months {
		for _, e := range month.Entries {
			exDate := ""
			if e.ExDate != nil {
				exDate = e.ExDate.Format("2006-01-02")
			}
			source := "projected"
			if e.Recorded {
				source = "recorded"
			} else if e.Estimated {
				source = "estimated"
			}

			n++
			if err := w.row(SheetCalendar, n, []any{
				month.Month, e.Symbol, e.PayDate.Format("2006-01-02"), exDate,
				num(e.Quantity), nullNum(e.AmountPerShare), num(e.Amount), e.Status, source,
			}); err != nil {
				return err
			}
		}
	}

	return w.row(SheetCalendar, n+2, []any{"Total", "", "", "", "", "", num(a.MonthlyCalendar.Total)})
}
