package handlers

import (
	"fmt"
	"net/http"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/response"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/report"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/service"
)

// AnalysisHandler serves the portfolio analysis, calendar and export.
type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// Analyze handles GET requests for the full portfolio analysis.
//
// Endpoint: GET /api/analysis
// Response: 200 OK with PortfolioAnalysis
// Error: 500 Internal Server Error if local data cannot be read
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.analysisService.Analyze(r.Context(), ownerID(r))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToAnalyzePortfolio.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, analysis)
}

// Calendar handles GET requests for the monthly dividend calendar.
//
// Endpoint: GET /api/analysis/calendar
// Response: 200 OK with MonthlyCalendar
func (h *AnalysisHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	calendar, err := h.analysisService.MonthlyCalendar(r.Context(), ownerID(r))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToAnalyzePortfolio.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, calendar)
}

// Export handles GET requests for the analysis as an XLSX workbook.
//
// Endpoint: GET /api/analysis/export
// Response: 200 OK with the workbook as an attachment
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.analysisService.Analyze(r.Context(), ownerID(r))
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToAnalyzePortfolio.Error(), err.Error())
		return
	}

	body, err := report.WriteAnalysis(r.Context(), analysis)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToExportReport.Error(), err.Error())
		return
	}

	filename := fmt.Sprintf("dividends-%d.xlsx", analysis.MonthlyCalendar.Year)
	response.RespondFile(w, report.ContentType, filename, body)
}
