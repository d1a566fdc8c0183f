package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/id/uuid"
	"github.com/JakeFAU/game-catalog/internal/logging"
)

type runAccepted struct {
	RunID  string            `json:"run_id"`
	Status catalog.RunStatus `json:"status"`
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	background := false
	if raw := r.URL.Query().Get("background"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "background must be a boolean")
			return
		}
		background = v
	}

	if background {
		if s.deps.Submitter == nil {
			s.writeError(w, http.StatusServiceUnavailable, "background runs are not configured")
			return
		}
		run, err := s.deps.Submitter.Submit(r.Context())
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, runAccepted{RunID: run.ID, Status: run.Status})
		return
	}

	if s.deps.Runner == nil {
		s.writeError(w, http.StatusServiceUnavailable, "pipeline is not configured")
		return
	}
	runID := s.recordSyncRun(r.Context())
	result, err := s.deps.Runner.Run(r.Context())
	s.finishSyncRun(r.Context(), runID, result, err)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// recordSyncRun tracks a synchronous run when a RunStore is wired. Failures
// only cost bookkeeping.
func (s *Server) recordSyncRun(ctx context.Context) string {
	if s.deps.Runs == nil || s.deps.IDs == nil || s.deps.Clock == nil {
		return ""
	}
	id, err := s.deps.IDs.NewID()
	if err != nil {
		s.logger.Warn("generate run id failed", zap.Error(err))
		return ""
	}
	run := catalog.Run{
		ID:        id,
		Status:    catalog.RunStatusRunning,
		Mode:      catalog.RunModeSync,
		Submitted: s.deps.Clock.Now(),
	}
	if err := s.deps.Runs.CreateRun(ctx, run); err != nil {
		s.logger.Warn("record sync run failed", zap.Error(err))
		return ""
	}
	if err := s.deps.Runs.UpdateRunStatus(ctx, id, catalog.RunStatusRunning, nil, ""); err != nil {
		s.logger.Warn("mark sync run running failed", logging.RunID(id), zap.Error(err))
	}
	return id
}

func (s *Server) finishSyncRun(ctx context.Context, runID string, result catalog.PipelineResult, runErr error) {
	if runID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	if runErr != nil {
		err = s.deps.Runs.UpdateRunStatus(ctx, runID, catalog.RunStatusFailed, nil, runErr.Error())
	} else {
		err = s.deps.Runs.UpdateRunStatus(ctx, runID, catalog.RunStatusSucceeded, &result, "")
	}
	if err != nil {
		s.logger.Warn("finish sync run failed", logging.RunID(runID), zap.Error(err))
	}
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		s.writeError(w, http.StatusServiceUnavailable, "run tracking is not configured")
		return
	}
	runID := chi.URLParam(r, "run_id")
	if !uuid.Valid(runID) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	run, err := s.deps.Runs.GetRun(r.Context(), runID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) dnsCheck(w http.ResponseWriter, r *http.Request) {
	if s.deps.DNS == nil {
		s.writeError(w, http.StatusServiceUnavailable, "dns diagnostics are not configured")
		return
	}
	host := strings.TrimSpace(r.URL.Query().Get("host"))
	if host == "" {
		host = s.cfg.DefaultDNSHost
	}
	if host == "" {
		s.writeError(w, http.StatusBadRequest, "host is required")
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.DNS.ResolveDebug(r.Context(), host))
}
