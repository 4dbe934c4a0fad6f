package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mikeboe/web-research/pkg/research"
	"github.com/mikeboe/web-research/pkg/store"
)

// RunnerFactory builds the research pipeline for one run. The supplied logger
// carries the run's log capture and must be the one the pipeline logs through.
type RunnerFactory func(logger *slog.Logger) (*research.Orchestrator, error)

type Service struct {
	Store *store.Store

	newRunner RunnerFactory
}

func NewService(st *store.Store, newRunner RunnerFactory) *Service {
	return &Service{
		Store:     st,
		newRunner: newRunner,
	}
}

type CreateRunRequest struct {
	Objective string `json:"objective"`
}

// StartResearch registers a run and kicks off the pipeline in the background.
// The returned run is still pending; callers poll GetRun for progress.
func (s *Service) StartResearch(req CreateRunRequest) *store.Run {
	run := s.Store.CreateRun(req.Objective)

	// Start background worker
	go s.runWorker(run.ID, req.Objective)

	return run
}

func (s *Service) GetRun(id uuid.UUID) (*store.Run, error) {
	return s.Store.GetRun(id)
}

func (s *Service) ListRuns() []store.Run {
	return s.Store.ListRuns(50)
}

func (s *Service) GetRunLogs(id uuid.UUID) ([]store.LogEntry, error) {
	if _, err := s.Store.GetRun(id); err != nil {
		return nil, err
	}
	return s.Store.RunLogs(id), nil
}

// CreatePlan runs the planning stage synchronously, without registering a run.
func (s *Service) CreatePlan(ctx context.Context, objective string) (*research.ResearchPlan, error) {
	orch, err := s.newRunner(slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to init pipeline: %w", err)
	}
	return orch.CreatePlan(ctx, objective), nil
}

func (s *Service) runWorker(runID uuid.UUID, objective string) {
	ctx := context.Background()

	if err := s.Store.MarkRunning(runID); err != nil {
		slog.Error("failed to mark run running", "run_id", runID, "error", err)
		return
	}

	// Capture pipeline logs on the run
	runLogger := slog.New(NewRunLogHandler(s.Store, runID))

	orch, err := s.newRunner(runLogger)
	if err != nil {
		s.failRun(runID, fmt.Sprintf("Failed to init pipeline: %v", err))
		return
	}

	// Hooks for plan and state persistence
	orch.OnPlan = func(plan *research.ResearchPlan) {
		if err := s.Store.SetRunPlan(runID, plan); err != nil {
			runLogger.Error("Failed to save plan", "error", err)
		}
	}

	var lastStage research.Stage
	orch.OnStateUpdate = func(state research.PipelineState) {
		lastStage = state.Stage
		if err := s.Store.SetRunState(runID, state); err != nil {
			runLogger.Error("Failed to save state", "error", err)
		}
	}

	output := orch.Run(ctx, objective)

	// The pipeline degrades instead of erroring; the final stage tells the
	// two outcomes apart.
	if lastStage == research.StageFailed {
		s.failRun(runID, output.Summary)
		return
	}

	if err := s.Store.CompleteRun(runID, output); err != nil {
		runLogger.Error("Failed to save research output", "error", err)
	}
}

func (s *Service) failRun(runID uuid.UUID, reason string) {
	// Log the failure
	runLogger := slog.New(NewRunLogHandler(s.Store, runID))
	runLogger.Error(reason)

	if err := s.Store.FailRun(runID, reason); err != nil {
		slog.Error("failed to mark run failed", "run_id", runID, "error", err)
	}
}
