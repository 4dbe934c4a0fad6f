package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// BrowserFactory acquires the browser for one pipeline run.
type BrowserFactory func(ctx context.Context) (Browser, error)

// Orchestrator sequences the pipeline stages and owns the browser lifecycle.
// Its contract is that Run always returns a ResearchOutput: failures of any
// stage, including browser acquisition and panics, degrade into an output
// with empty findings and a summary explaining what happened.
type Orchestrator struct {
	planner     *PlanGenerator
	extractor   *ContentExtractor
	validator   *FindingsValidator
	synthesizer *SummarySynthesizer
	newBrowser  BrowserFactory
	log         *slog.Logger
	now         func() time.Time

	// OnStateUpdate, when set, receives a snapshot after every stage change.
	OnStateUpdate func(state PipelineState)

	// OnPlan, when set, receives the plan once planning completes.
	OnPlan func(plan *ResearchPlan)
}

// NewOrchestrator wires the full pipeline over one inference client, one
// source resolver and a browser factory.
func NewOrchestrator(llm Inferencer, resolver SourceResolver, newBrowser BrowserFactory, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		planner:     NewPlanGenerator(llm, resolver, logger),
		extractor:   NewContentExtractor(llm, cfg, logger),
		validator:   NewFindingsValidator(logger),
		synthesizer: NewSummarySynthesizer(llm, logger),
		newBrowser:  newBrowser,
		log:         logger,
		now:         time.Now,
	}
}

// CreatePlan runs the planning stage alone, for callers that preview a plan
// without committing to a full run.
func (o *Orchestrator) CreatePlan(ctx context.Context, objective string) *ResearchPlan {
	return o.planner.CreatePlan(ctx, objective)
}

// Run executes the pipeline end to end for one objective.
func (o *Orchestrator) Run(ctx context.Context, objective string) (out ResearchOutput) {
	state := PipelineState{Stage: StagePlanning, Objective: objective}
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("pipeline panicked", "objective", objective, "panic", r)
			state.Stage = StageFailed
			o.report(state)
			out = o.failedOutput(objective, fmt.Errorf("internal failure: %v", r))
		}
	}()

	o.log.Info("research run starting", "objective", objective)
	o.report(state)

	plan := o.planner.CreatePlan(ctx, objective)
	if o.OnPlan != nil {
		o.OnPlan(plan)
	}
	state.QuestionCount = len(plan.Questions)
	state.SourceCount = countSources(plan)

	browser, err := o.newBrowser(ctx)
	if err != nil {
		o.log.Error("browser acquisition failed", "error", err)
		state.Stage = StageFailed
		o.report(state)
		return o.failedOutput(objective, fmt.Errorf("failed to acquire browser: %w", err))
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			o.log.Warn("browser close failed", "error", cerr)
		}
	}()

	state.Stage = StageExtracting
	o.report(state)
	findings := o.extractor.Extract(ctx, browser, plan)
	state.FindingCount = len(findings)

	state.Stage = StageValidating
	o.report(state)
	valid := o.validator.Validate(findings)
	state.ValidCount = len(valid)

	state.Stage = StageSynthesizing
	o.report(state)
	out = o.synthesizer.Synthesize(ctx, plan, valid)

	state.Stage = StageDone
	o.report(state)
	o.log.Info("research run finished", "objective", objective,
		"findings", len(out.Findings), "summary_chars", len(out.Summary))
	return out
}

func (o *Orchestrator) report(state PipelineState) {
	if o.OnStateUpdate != nil {
		o.OnStateUpdate(state)
	}
}

func (o *Orchestrator) failedOutput(objective string, err error) ResearchOutput {
	return ResearchOutput{
		Objective: objective,
		Findings:  []ContentFinding{},
		Summary:   fmt.Sprintf("Research could not be completed: %v", err),
		CreatedAt: o.now(),
	}
}

func countSources(plan *ResearchPlan) int {
	n := 0
	for _, q := range plan.Questions {
		n += len(q.Sources)
	}
	return n
}
