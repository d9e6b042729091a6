package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/progress/sinks"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// RunSource supplies run snapshots, oldest first.
type RunSource interface {
	Snapshot() []sinks.RunSnapshot
}

// ProgressHandler exposes read-only run progress endpoints.
type ProgressHandler struct {
	runs   RunSource
	logger *zap.Logger
}

// NewProgressHandler wires the run source and logger.
func NewProgressHandler(runs RunSource, logger *zap.Logger) *ProgressHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressHandler{runs: runs, logger: logger}
}

// ListRuns handles GET /v1/runs?kind=&limit=&offset=. Runs are returned
// newest first as {"runs": [...]}; 400 for invalid filters, 503 when no
// source is wired.
func (h *ProgressHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "progress source unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultRunLimit, maxRunLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("kind")))
	switch kind {
	case "", "submit", "validate":
	default:
		writeError(w, http.StatusBadRequest, "invalid kind")
		return
	}

	all := h.runs.Snapshot()
	out := make([]runDTO, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if kind != "" && all[i].Kind != kind {
			continue
		}
		out = append(out, toRunDTO(all[i]))
	}
	if offset >= len(out) {
		out = out[:0]
	} else {
		out = out[offset:min(len(out), offset+limit)]
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

// GetRun handles GET /v1/runs/{run_id}. It returns {"run": {...}}, 400 for
// malformed IDs and 404 for unknown runs.
func (h *ProgressHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "progress source unavailable")
		return
	}
	runID, err := parseRunID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, snap := range h.runs.Snapshot() {
		if snap.RunID == runID.String() {
			writeJSON(w, http.StatusOK, map[string]any{"run": toRunDTO(snap)})
			return
		}
	}
	h.logger.Debug("run not found", zap.String("run_id", runID.String()))
	writeError(w, http.StatusNotFound, "run not found")
}

func parseRunID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "run_id")
	if raw == "" {
		return uuid.UUID{}, errors.New("run_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, errors.New("invalid run_id")
	}
	return id, nil
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

type runDTO struct {
	sinks.RunSnapshot
	Finished bool    `json:"finished"`
	Progress float64 `json:"progress"`
}

func toRunDTO(s sinks.RunSnapshot) runDTO {
	dto := runDTO{RunSnapshot: s, Finished: s.FinishedAt != nil}
	if s.Total > 0 {
		dto.Progress = float64(s.Done) / float64(s.Total)
	}
	return dto
}
