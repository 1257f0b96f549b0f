package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/middleware"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/config"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	tradeService *service.TradeService,
	holdingService *service.HoldingService,
	dividendService *service.DividendService,
	analysisService *service.AnalysisService,
	marketService *service.MarketService,
	scheduleService *service.ScheduleService,
	jobs handlers.JobRunner,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService, jobs)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
			r.Get("/jobs", systemHandler.ListJobs)
			r.Post("/jobs/{name}/run", systemHandler.RunJob)
		})

		// Everything below is scoped to the owner in X-Owner-ID
		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireOwner)

			r.Route("/trades", func(r chi.Router) {
				tradeHandler := handlers.NewTradeHandler(tradeService)
				r.Get("/", tradeHandler.ListTrades)
				r.Post("/", tradeHandler.CreateTrade)
				r.Delete("/{id}", tradeHandler.DeleteTrade)
			})

			r.Route("/holdings", func(r chi.Router) {
				holdingHandler := handlers.NewHoldingHandler(holdingService)
				r.Get("/", holdingHandler.ListHoldings)
				r.Post("/recalculate", holdingHandler.Recalculate)
			})

			r.Route("/dividends", func(r chi.Router) {
				dividendHandler := handlers.NewDividendHandler(dividendService)
				r.Get("/", dividendHandler.ListDividends)
				r.Post("/", dividendHandler.CreateDividend)
				r.Post("/sync", dividendHandler.SyncDividends)
				r.With(custommiddleware.ValidateUUIDParam("id")).Delete("/{id}", dividendHandler.DeleteDividend)
			})

			r.Route("/analysis", func(r chi.Router) {
				analysisHandler := handlers.NewAnalysisHandler(analysisService)
				r.Get("/", analysisHandler.Analyze)
				r.Get("/calendar", analysisHandler.Calendar)
				r.Get("/export", analysisHandler.Export)
			})

			r.Route("/symbols", func(r chi.Router) {
				symbolHandler := handlers.NewSymbolHandler(marketService, scheduleService)
				r.Get("/search", symbolHandler.Search)
				r.Route("/{symbol}", func(r chi.Router) {
					r.Get("/schedule", symbolHandler.Schedule)
					r.Get("/quote", symbolHandler.Quote)
					r.Get("/history", symbolHandler.History)
				})
			})
		})
	})

	return r
}
