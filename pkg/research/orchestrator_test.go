package research

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const testObjective = "How has EU cybersecurity regulation evolved from 2018 to 2023?"

const testPlanJSON = `{
	"objective": "How has EU cybersecurity regulation evolved from 2018 to 2023?",
	"questions": [
		{"question": "What changed with NIS2?", "importance": 5},
		{"question": "How did ENISA's mandate evolve?", "importance": 4}
	],
	"depth": 2
}`

func stagesOf(states []PipelineState) []Stage {
	stages := make([]Stage, 0, len(states))
	for _, s := range states {
		stages = append(stages, s.Stage)
	}
	return stages
}

func sameStages(got, want []Stage) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestRunHappyPath(t *testing.T) {
	llm := &fakeInferencer{replies: []string{
		testPlanJSON,
		"Point about NIS2.\n\nSecond point.",
		"Point about ENISA.\n\nSecond point.",
		"Integrated regulatory history.",
	}}
	browser := &fakeBrowser{}
	factory := func(ctx context.Context) (Browser, error) { return browser, nil }

	o := NewOrchestrator(llm, &fakeResolver{}, factory, Config{}, testLogger())
	var states []PipelineState
	o.OnStateUpdate = func(s PipelineState) { states = append(states, s) }

	before := time.Now()
	out := o.Run(context.Background(), testObjective)

	if out.Objective != testObjective {
		t.Errorf("Objective = %q, want %q", out.Objective, testObjective)
	}
	if out.Summary != "Integrated regulatory history." {
		t.Errorf("Summary = %q, want the synthesis reply", out.Summary)
	}
	if len(out.Findings) != 2 {
		t.Fatalf("len(Findings) = %d, want 2", len(out.Findings))
	}
	if out.CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want not before run start %v", out.CreatedAt, before)
	}

	wantStages := []Stage{StagePlanning, StageExtracting, StageValidating, StageSynthesizing, StageDone}
	if !sameStages(stagesOf(states), wantStages) {
		t.Errorf("stages = %v, want %v", stagesOf(states), wantStages)
	}

	final := states[len(states)-1]
	if final.QuestionCount != 2 || final.SourceCount != 2 || final.FindingCount != 2 || final.ValidCount != 2 {
		t.Errorf("final state = %+v, want 2 questions, 2 sources, 2 findings, 2 valid", final)
	}

	if !browser.closed {
		t.Error("browser not closed after the run")
	}
	// plan + one analysis per source + synthesis
	if llm.promptCount() != 4 {
		t.Errorf("model calls = %d, want 4", llm.promptCount())
	}
}

func TestRunWithFailingBrowserStillReports(t *testing.T) {
	llm := &fakeInferencer{replies: []string{
		testPlanJSON,
		"No material could be gathered for this objective.",
	}}
	browser := &fakeBrowser{fail: map[string]error{
		"https://dead.test": errors.New("net::ERR_CONNECTION_REFUSED"),
	}}
	factory := func(ctx context.Context) (Browser, error) { return browser, nil }

	o := NewOrchestrator(llm, &fakeResolver{fixed: []string{"https://dead.test"}}, factory, Config{}, testLogger())
	var states []PipelineState
	o.OnStateUpdate = func(s PipelineState) { states = append(states, s) }

	out := o.Run(context.Background(), "unreachable topic")

	if len(out.Findings) != 0 {
		t.Errorf("len(Findings) = %d, want 0 when every page fails", len(out.Findings))
	}
	if out.Summary != "No material could be gathered for this objective." {
		t.Errorf("Summary = %q, want the explanatory synthesis reply", out.Summary)
	}

	wantStages := []Stage{StagePlanning, StageExtracting, StageValidating, StageSynthesizing, StageDone}
	if !sameStages(stagesOf(states), wantStages) {
		t.Errorf("stages = %v, want the full sequence even with zero findings", stagesOf(states))
	}
	if !browser.closed {
		t.Error("browser not closed after the run")
	}
}

func TestRunBrowserAcquisitionFailure(t *testing.T) {
	llm := &fakeInferencer{replies: []string{testPlanJSON}}
	factory := func(ctx context.Context) (Browser, error) {
		return nil, errors.New("chrome executable not found")
	}

	o := NewOrchestrator(llm, &fakeResolver{}, factory, Config{}, testLogger())
	var states []PipelineState
	o.OnStateUpdate = func(s PipelineState) { states = append(states, s) }

	out := o.Run(context.Background(), "any topic")

	if len(out.Findings) != 0 {
		t.Errorf("len(Findings) = %d, want 0", len(out.Findings))
	}
	if !strings.Contains(out.Summary, "failed to acquire browser") {
		t.Errorf("Summary = %q, want it to explain the browser failure", out.Summary)
	}
	if out.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero, want a stamped degraded output")
	}

	wantStages := []Stage{StagePlanning, StageFailed}
	if !sameStages(stagesOf(states), wantStages) {
		t.Errorf("stages = %v, want %v", stagesOf(states), wantStages)
	}
	// Only the planning call happened; synthesis never ran.
	if llm.promptCount() != 1 {
		t.Errorf("model calls = %d, want 1", llm.promptCount())
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	llm := &fakeInferencer{replies: []string{testPlanJSON}}
	factory := func(ctx context.Context) (Browser, error) { panic("browser driver bug") }

	o := NewOrchestrator(llm, &fakeResolver{}, factory, Config{}, testLogger())
	var states []PipelineState
	o.OnStateUpdate = func(s PipelineState) { states = append(states, s) }

	out := o.Run(context.Background(), "any topic")

	if !strings.Contains(out.Summary, "internal failure") {
		t.Errorf("Summary = %q, want it to report the internal failure", out.Summary)
	}
	if len(out.Findings) != 0 {
		t.Errorf("len(Findings) = %d, want 0", len(out.Findings))
	}
	if got := stagesOf(states); got[len(got)-1] != StageFailed {
		t.Errorf("last stage = %v, want %v", got[len(got)-1], StageFailed)
	}
}

// Exercises the planner on top of the real inference client: a primary that
// is always out of quota and a fallback that answers in prose must end in
// the single-question degraded plan, after exactly 3 primary attempts and
// 1 fallback attempt.
func TestPlanDegradesWhenPrimaryProviderExhausted(t *testing.T) {
	primary := &fakeModel{respond: alwaysErr(errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED"))}
	fallback := &fakeModel{respond: alwaysText("I would research the topic broadly, starting with official sources.")}
	client, _ := newTestClient(primary, fallback, Config{})

	plan := NewPlanGenerator(client, &fakeResolver{}, testLogger()).CreatePlan(context.Background(), "quantum error correction")

	if primary.calls() != 3 {
		t.Errorf("primary calls = %d, want 3", primary.calls())
	}
	if fallback.calls() != 1 {
		t.Errorf("fallback calls = %d, want 1", fallback.calls())
	}
	if len(plan.Questions) != 1 || plan.Questions[0].Question != "quantum error correction" {
		t.Fatalf("Questions = %+v, want the single-question degraded plan", plan.Questions)
	}
	if plan.Depth != 2 {
		t.Errorf("Depth = %d, want 2", plan.Depth)
	}
}

// A hard provider failure must not burn retries: one primary attempt, then the
// fallback, whose prose answer still lands in the degraded plan.
func TestPlanDegradesOnHardProviderFailure(t *testing.T) {
	primary := &fakeModel{respond: alwaysErr(errors.New("API key not valid"))}
	fallback := &fakeModel{respond: alwaysText("Start with survey articles, then follow their citations.")}
	client, slept := newTestClient(primary, fallback, Config{})

	plan := NewPlanGenerator(client, &fakeResolver{}, testLogger()).CreatePlan(context.Background(), "desalination costs")

	if primary.calls() != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls())
	}
	if fallback.calls() != 1 {
		t.Errorf("fallback calls = %d, want 1", fallback.calls())
	}
	if len(*slept) != 0 {
		t.Errorf("slept %d times, want 0", len(*slept))
	}
	if len(plan.Questions) != 1 || plan.Questions[0].Question != "desalination costs" {
		t.Fatalf("Questions = %+v, want the single-question degraded plan", plan.Questions)
	}
	if plan.Depth != 2 {
		t.Errorf("Depth = %d, want 2", plan.Depth)
	}
}
