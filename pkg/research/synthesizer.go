package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const synthesisPromptTemplate = "You are a research synthesis expert. Create a comprehensive summary from the collected findings.\n\nResearch objective: %s\n\nFindings:\n%s\n\nCreate a comprehensive summary."

// SummarySynthesizer merges validated findings into the final ResearchOutput.
type SummarySynthesizer struct {
	llm Inferencer
	log *slog.Logger
	now func() time.Time
}

func NewSummarySynthesizer(llm Inferencer, logger *slog.Logger) *SummarySynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummarySynthesizer{llm: llm, log: logger, now: time.Now}
}

// Synthesize joins the finding summaries and asks the model for one
// integrated summary. Findings without summary text contribute nothing to
// the combined prompt but stay in the output for audit. Zero findings still
// produce an output; the model is told there is nothing and says so.
func (s *SummarySynthesizer) Synthesize(ctx context.Context, plan *ResearchPlan, findings []ContentFinding) ResearchOutput {
	summaries := make([]string, 0, len(findings))
	for _, f := range findings {
		if f.Summary != "" {
			summaries = append(summaries, f.Summary)
		}
	}
	combined := strings.Join(summaries, "\n\n")

	summary := s.llm.Invoke(ctx, fmt.Sprintf(synthesisPromptTemplate, plan.Objective, combined))
	s.log.Info("synthesis finished", "findings", len(findings), "summary_chars", len(summary))

	return ResearchOutput{
		Objective: plan.Objective,
		Findings:  findings,
		Summary:   summary,
		CreatedAt: s.now(),
	}
}
