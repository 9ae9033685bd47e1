package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bookwright/steward/internal/governance"
	"github.com/bookwright/steward/internal/metrics"
	"github.com/bookwright/steward/internal/override"
	"github.com/bookwright/steward/internal/proposal"
	"github.com/bookwright/steward/internal/replay"
	"github.com/bookwright/steward/internal/shadow"
	"github.com/bookwright/steward/internal/sim"
)

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var cfg sim.Config
	if err := decodeBody(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	if err := s.engine.Start(cfg); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Stop(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Tick(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := parsePositiveInt(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	events := s.engine.Events(limit)
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) handleProposals(w http.ResponseWriter, r *http.Request) {
	props := s.engine.Proposals()
	writeJSON(w, http.StatusOK, map[string]any{"proposals": props, "count": len(props)})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	values := metrics.Extract(s.registry, s.engine.Events(proposal.WindowEvents))
	writeJSON(w, http.StatusOK, map[string]any{
		"tick":    s.engine.Status().Tick,
		"metrics": values,
	})
}

func (s *Server) handleDials(w http.ResponseWriter, r *http.Request) {
	snapshot := s.currentDials()
	writeJSON(w, http.StatusOK, map[string]any{
		"tick":  s.engine.Status().Tick,
		"dials": snapshot,
	})
}

func (s *Server) handleStartReplay(w http.ResponseWriter, r *http.Request) {
	var req replay.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	report, err := s.runner.Run(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.persistReplay(r.Context(), report)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetReplay(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if report, ok := s.runner.Get(runID); ok {
		writeJSON(w, http.StatusOK, report)
		return
	}
	if s.store != nil {
		report, err := s.store.ReplayReportByRun(r.Context(), runID)
		if err == nil {
			writeJSON(w, http.StatusOK, report)
			return
		}
	}
	writeError(w, http.StatusNotFound, codeNotFound, "unknown replay run "+runID)
}

// evaluateRequest optionally names a replay run and variant whose metric
// deltas feed the regression rules.
type evaluateRequest struct {
	Proposal    *proposal.Proposal `json:"proposal"`
	ReplayRunID string             `json:"replayRunId,omitempty"`
	VariantName string             `json:"variantName,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	if req.Proposal == nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "proposal is required")
		return
	}

	var deltas []replay.MetricDelta
	if req.ReplayRunID != "" {
		report, ok := s.runner.Get(req.ReplayRunID)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "unknown replay run "+req.ReplayRunID)
			return
		}
		deltas, ok = variantDeltas(report, req.VariantName)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "unknown variant "+req.VariantName)
			return
		}
	}

	tick := s.engine.Status().Tick
	decision, err := s.gov.Evaluate(governance.Context{
		Proposal:     req.Proposal,
		Tick:         &tick,
		Dials:        s.currentDials(),
		ReplayDeltas: deltas,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.rememberDecision(decision)
	s.persistDecision(r.Context(), decision)
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleSubmitOverride(w http.ResponseWriter, r *http.Request) {
	var req override.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	decision, ok := s.decisionByHash(req.DecisionHash)
	if !ok && s.store != nil {
		if d, err := s.store.DecisionByHash(r.Context(), req.DecisionHash); err == nil {
			decision, ok = d, true
		}
	}
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "unknown decision "+req.DecisionHash)
		return
	}

	rec, err := s.overrides.Submit(req, decision)
	if err != nil {
		if isOverrideRejection(err) {
			writeError(w, http.StatusUnprocessableEntity, codeOverrideRejected, err.Error())
			return
		}
		// Accepted but not durably recorded: degraded, not a rejection.
		s.logger.Warn("override persisted in memory only", "err", err, "override", rec.OverrideID)
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleOverrideTrail(w http.ResponseWriter, r *http.Request) {
	proposalID := r.PathValue("proposalId")
	trail := s.overrides.ForProposal(proposalID)
	writeJSON(w, http.StatusOK, map[string]any{"overrides": trail, "count": len(trail)})
}

func (s *Server) handleShadowCompare(w http.ResponseWriter, r *http.Request) {
	var req shadow.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	report, err := s.comparator.Compare(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// currentDials classifies the engine's recent window against the dial board.
func (s *Server) currentDials() metrics.Snapshot {
	values := metrics.Extract(s.registry, s.engine.Events(proposal.WindowEvents))
	return s.board.Snapshot(values)
}

func (s *Server) persistDecision(ctx context.Context, d governance.Decision) {
	if s.store == nil {
		return
	}
	if err := s.store.WriteDecision(ctx, d); err != nil {
		s.logger.Warn("decision not persisted", "err", err, "decision", d.DecisionHash)
	}
}

func (s *Server) persistReplay(ctx context.Context, report *replay.Report) {
	if s.store == nil {
		return
	}
	if err := s.store.WriteReplayReport(ctx, report); err != nil {
		s.logger.Warn("replay report not persisted", "err", err, "run", report.RunID)
	}
}

func variantDeltas(report *replay.Report, name string) ([]replay.MetricDelta, bool) {
	if name == "" && len(report.Variants) == 1 {
		return report.Variants[0].MetricDeltas, true
	}
	for _, v := range report.Variants {
		if v.Variant.Name == name {
			return v.MetricDeltas, true
		}
	}
	return nil, false
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("value %d is not positive", n)
	}
	return n, nil
}
