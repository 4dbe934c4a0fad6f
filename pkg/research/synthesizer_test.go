package research

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSynthesizeJoinsSummaries(t *testing.T) {
	llm := &fakeInferencer{replies: []string{"integrated summary"}}
	s := NewSummarySynthesizer(llm, testLogger())

	plan := &ResearchPlan{Objective: "tidal energy", Depth: 2}
	findings := []ContentFinding{
		{Source: "https://a.test", Summary: "first summary"},
		{Source: "https://b.test", Summary: ""},
		{Source: "https://c.test", Summary: "third summary"},
	}

	out := s.Synthesize(context.Background(), plan, findings)

	if out.Summary != "integrated summary" {
		t.Errorf("Summary = %q, want the model reply", out.Summary)
	}
	if out.Objective != "tidal energy" {
		t.Errorf("Objective = %q, want %q", out.Objective, "tidal energy")
	}
	if len(out.Findings) != 3 {
		t.Errorf("len(Findings) = %d, want all 3 carried through", len(out.Findings))
	}

	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "tidal energy") {
		t.Errorf("prompt missing objective: %q", prompt)
	}
	if !strings.Contains(prompt, "first summary\n\nthird summary") {
		t.Errorf("prompt should join non-empty summaries with a blank line: %q", prompt)
	}
}

func TestSynthesizeWithNoFindings(t *testing.T) {
	llm := &fakeInferencer{replies: []string{"nothing was gathered"}}
	s := NewSummarySynthesizer(llm, testLogger())

	out := s.Synthesize(context.Background(), &ResearchPlan{Objective: "o"}, nil)

	if out.Summary != "nothing was gathered" {
		t.Errorf("Summary = %q, want the model reply", out.Summary)
	}
	if len(out.Findings) != 0 {
		t.Errorf("len(Findings) = %d, want 0", len(out.Findings))
	}
	if llm.promptCount() != 1 {
		t.Errorf("model calls = %d, want exactly 1", llm.promptCount())
	}
}

func TestSynthesizeStampsCreationTime(t *testing.T) {
	llm := &fakeInferencer{replies: []string{"s"}}
	s := NewSummarySynthesizer(llm, testLogger())
	fixed := time.Date(2024, 11, 5, 10, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	out := s.Synthesize(context.Background(), &ResearchPlan{Objective: "o"}, nil)

	if !out.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", out.CreatedAt, fixed)
	}
}
