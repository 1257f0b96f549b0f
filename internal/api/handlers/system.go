package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/api/response"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/service"
)

// JobRunner starts background jobs on demand. *scheduler.Scheduler implements it.
type JobRunner interface {
	Jobs() []string
	Trigger(name string) (<-chan struct{}, bool)
}

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
	jobs          JobRunner
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService, jobs JobRunner) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
		jobs:          jobs,
	}
}

// JobResponse reports a job started on demand.
type JobResponse struct {
	Job    string `json:"job"`
	Status string `json:"status"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Health checks the health of the system and database connectivity
//
// Endpoint: GET /api/system/health
// Response: 200 OK with HealthResponse
// Error: 503 Service Unavailable if the database cannot be reached
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.systemService.CheckHealth(r.Context()); err != nil {
		response.RespondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    err.Error(),
		})
		return
	}

	response.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Database: "connected",
	})
}

// Version handles GET requests to retrieve the application version and the
// applied database schema version.
//
// Endpoint: GET /api/system/version
// Response: 200 OK with model.VersionInfo
// Error: 500 Internal Server Error if version check fails
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	version, err := h.systemService.CheckVersion(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetVersionInfo.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, version)
}

// ListJobs returns the names of the background jobs.
//
// Endpoint: GET /api/system/jobs
// Response: 200 OK with []string
func (h *SystemHandler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.jobs.Jobs())
}

// RunJob starts a background job now without waiting for it. A run that
// overlaps one already in progress is skipped by the scheduler.
//
// Endpoint: POST /api/system/jobs/{name}/run
// Response: 202 Accepted with JobResponse
// Error: 404 Not Found if no job has that name
func (h *SystemHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := h.jobs.Trigger(name); !ok {
		response.RespondError(w, http.StatusNotFound, apperrors.ErrJobNotFound.Error(), name)
		return
	}

	response.RespondJSON(w, http.StatusAccepted, JobResponse{Job: name, Status: "started"})
}
