// Package api exposes a read-only status surface for operators.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"WeatherAlertWatch/internal/domain"
)

// OutcomeSource yields the most recent dispatched outcomes, newest first.
type OutcomeSource interface {
	Snapshot() []domain.Outcome
}

type outcomeView struct {
	EventType   string    `json:"event_type"`
	Message     string    `json:"message"`
	Identifiers []string  `json:"identifiers"`
	Renamed     []string  `json:"renamed,omitempty"`
	Succeeded   bool      `json:"succeeded"`
	Emailed     bool      `json:"emailed"`
	At          time.Time `json:"at"`
}

// NewRouter builds the chi router serving /healthz and /status.
func NewRouter(outcomes OutcomeSource, watchDir string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(15 * time.Second))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"}, logger)
	})

	router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		items := outcomes.Snapshot()
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be a non-negative integer"}, logger)
				return
			}
			if limit < len(items) {
				items = items[:limit]
			}
		}

		views := make([]outcomeView, 0, len(items))
		for _, o := range items {
			views = append(views, outcomeView{
				EventType:   string(o.EventType),
				Message:     o.Message,
				Identifiers: o.Identifiers,
				Renamed:     o.Rename,
				Succeeded:   o.Succeeded,
				Emailed:     o.SendEmail,
				At:          o.At,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"watch_dir": watchDir, "outcomes": views}, logger)
	})

	return router
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("write response failed", "error", err)
	}
}
