// Package handlers provides HTTP handlers for pricing runs and guardrail
// dry-runs.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/pricer/internal/modules/pricing"
	"github.com/aristath/pricer/internal/modules/pricing/batch"
	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/guardrails"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
	"github.com/aristath/pricer/internal/modules/pricing/repository"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// RunService triggers pricing runs.
type RunService interface {
	RunForDate(ctx context.Context, date string) (*pricing.RunResult, error)
	RunLatest(ctx context.Context) (*pricing.RunResult, error)
	Policy() policy.Policy
}

// RecommendationReader reads stored run outputs.
type RecommendationReader interface {
	LatestRunDate(ctx context.Context) (string, error)
	GetRun(ctx context.Context, date string) (*repository.RunRecord, error)
	List(ctx context.Context, date string, limit int) ([]repository.StoredRecommendation, error)
}

// SummaryReader reads run summaries.
type SummaryReader interface {
	Get(ctx context.Context, runDate string) (*repository.StoredSummary, error)
}

// Handler handles pricing HTTP requests
type Handler struct {
	service   RunService
	recs      RecommendationReader
	summaries SummaryReader
	pipeline  *guardrails.Pipeline
	log       zerolog.Logger
}

// NewHandler creates a new pricing handler
func NewHandler(
	service RunService,
	recs RecommendationReader,
	summaries SummaryReader,
	pipeline *guardrails.Pipeline,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:   service,
		recs:      recs,
		summaries: summaries,
		pipeline:  pipeline,
		log:       log.With().Str("handler", "pricing").Logger(),
	}
}

type runRequest struct {
	Date string `json:"date"`
}

type runResponse struct {
	RunID           string        `json:"run_id"`
	RunDate         string        `json:"run_date"`
	Contexts        int           `json:"n_contexts"`
	Recommendations int           `json:"n_recommendations"`
	Skipped         int           `json:"n_skipped"`
	Failures        int           `json:"n_failures"`
	DurationMS      int64         `json:"duration_ms"`
	Summary         batch.Summary `json:"summary"`
}

// HandleTriggerRun handles POST /api/pricing/runs
// Body is optional; {"date": "YYYY-MM-DD"} prices a specific day.
func (h *Handler) HandleTriggerRun(w http.ResponseWriter, r *http.Request) {
	var request runRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	var (
		result *pricing.RunResult
		err    error
	)
	if request.Date == "" {
		result, err = h.service.RunLatest(r.Context())
	} else {
		result, err = h.service.RunForDate(r.Context(), request.Date)
	}
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	h.log.Info().
		Str("run_id", result.RunID).
		Dur("elapsed", time.Since(start)).
		Msg("Pricing run triggered via API")

	h.writeJSON(w, http.StatusCreated, runResponse{
		RunID:           result.RunID,
		RunDate:         result.RunDate,
		Contexts:        result.Contexts,
		Recommendations: len(result.Report.Recommendations),
		Skipped:         result.Report.SkippedCount(),
		Failures:        len(result.Report.Failures),
		DurationMS:      result.Report.Duration.Milliseconds(),
		Summary:         result.Report.Summary,
	})
}

// HandleGetRunSummary handles GET /api/pricing/runs/{date}/summary
func (h *Handler) HandleGetRunSummary(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	run, err := h.recs.GetRun(r.Context(), date)
	if err != nil {
		h.writeRunError(w, err)
		return
	}
	summary, err := h.summaries.Get(r.Context(), date)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":     run,
		"summary": summary,
	})
}

// HandleListRecommendations handles GET /api/pricing/recommendations
// Query: date (defaults to the latest run), limit (default 50, max 1000).
func (h *Handler) HandleListRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		latest, err := h.recs.LatestRunDate(r.Context())
		if err != nil {
			h.writeRunError(w, err)
			return
		}
		date = latest
	}

	recs, err := h.recs.List(r.Context(), date, limit)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_date":        date,
		"count":           len(recs),
		"recommendations": recs,
	})
}

// HandleGetPolicy handles GET /api/pricing/policy
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Policy())
}

type checkRequest struct {
	CandidatePrice float64               `json:"candidate_price"`
	Context        domain.PricingContext `json:"context"`
	Policy         json.RawMessage       `json:"policy,omitempty"`
}

type checkResponse struct {
	FinalPrice float64               `json:"final_price"`
	Reasons    []domain.ReasonCode   `json:"reasons"`
	Band       *guardrails.DailyBand `json:"daily_band,omitempty"`
	Policy     string                `json:"policy_version"`
}

// HandleCheckGuardrails handles POST /api/pricing/guardrails/check
// Runs one candidate price through the pipeline, optionally under a draft
// policy, without touching stored runs.
func (h *Handler) HandleCheckGuardrails(w http.ResponseWriter, r *http.Request) {
	var request checkRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	p := h.service.Policy()
	if len(request.Policy) > 0 && string(request.Policy) != "null" {
		draft, err := policy.ParseJSON(request.Policy)
		if err != nil {
			var verrs policy.ValidationErrors
			if errors.As(err, &verrs) {
				h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
					"error":  "Invalid policy",
					"errors": verrs,
				})
				return
			}
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		p = draft
	}

	if err := request.Context.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.pipeline.Apply(request.CandidatePrice, request.Context, p)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	response := checkResponse{
		FinalPrice: result.FinalPrice,
		Reasons:    result.Reasons,
		Policy:     p.Version,
	}
	if band, ok := guardrails.Band(request.Context, p); ok {
		response.Band = &band
	}
	h.writeJSON(w, http.StatusOK, response)
}

// writeRunError maps domain errors to status codes.
func (h *Handler) writeRunError(w http.ResponseWriter, err error) {
	var stageErr *domain.StageError
	switch {
	case errors.Is(err, repository.ErrNoData), errors.Is(err, repository.ErrRunNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stageErr):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  err.Error(),
			"stage":  stageErr.Stage,
			"detail": stageErr.Detail,
		})
	case errors.Is(err, domain.ErrInvalidState):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg("Pricing request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
