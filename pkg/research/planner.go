package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// defaultDepth is substituted when a plan arrives without a usable depth.
const defaultDepth = 2

// SourceResolver maps a search query to candidate source URLs.
type SourceResolver interface {
	Resolve(ctx context.Context, query string) []string
}

const planPromptTemplate = `You are a research planning assistant. Break the research objective below into 3 to 5 focused questions that together cover it.

Research objective: %s

Respond with only a JSON object in exactly this format:
{
  "objective": "the research objective",
  "questions": [
    {"question": "a focused research question", "importance": 3}
  ],
  "depth": 2
}

Importance is an integer from 1 (background) to 5 (critical). Depth is an integer from 1 to 3. Do not include URLs or sources; they are resolved separately. Do not include any text outside the JSON object.`

// PlanGenerator turns a free-form research objective into a ResearchPlan.
type PlanGenerator struct {
	llm      Inferencer
	resolver SourceResolver
	log      *slog.Logger
}

func NewPlanGenerator(llm Inferencer, resolver SourceResolver, logger *slog.Logger) *PlanGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanGenerator{llm: llm, resolver: resolver, log: logger}
}

// CreatePlan asks the model to decompose the objective and always returns a
// usable plan. Unparseable model output degrades to a single-question plan
// built from the objective itself; a parsed plan with no questions gets the
// same substitute question. Sources are resolved for every question here,
// replacing anything the model may have invented.
func (g *PlanGenerator) CreatePlan(ctx context.Context, objective string) *ResearchPlan {
	reply := g.llm.Invoke(ctx, fmt.Sprintf(planPromptTemplate, objective))

	plan, err := decodePlan(reply)
	if err != nil {
		g.log.Warn("plan response unusable, falling back to single-question plan",
			"objective", objective, "error", err)
		plan = &ResearchPlan{Objective: objective}
	}
	g.normalize(plan, objective)
	g.resolveSources(ctx, plan)

	g.log.Info("research plan ready", "questions", len(plan.Questions), "depth", plan.Depth)
	return plan
}

func (g *PlanGenerator) normalize(plan *ResearchPlan, objective string) {
	if strings.TrimSpace(plan.Objective) == "" {
		plan.Objective = objective
	}
	if len(plan.Questions) == 0 {
		g.log.Warn("plan carries no questions, substituting the objective", "objective", objective)
		plan.Questions = []ResearchQuestion{{Question: objective, Importance: defaultImportance}}
	}
	if plan.Depth < 1 || plan.Depth > 3 {
		plan.Depth = defaultDepth
	}
}

func (g *PlanGenerator) resolveSources(ctx context.Context, plan *ResearchPlan) {
	for i := range plan.Questions {
		query := strings.TrimSpace(plan.Objective + " " + plan.Questions[i].Question)
		plan.Questions[i].Sources = g.resolver.Resolve(ctx, query)
	}
}

// decodePlan parses model output into a strict ResearchPlan: locate a JSON
// object, repair its shape, then decode. Anything that survives decoding is
// canonical; anything that does not is reported as an error for the caller
// to degrade on.
func decodePlan(reply string) (*ResearchPlan, error) {
	raw, err := parseJSONObject(reply)
	if err != nil {
		return nil, err
	}

	buf, err := json.Marshal(RepairPlan(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode repaired plan: %w", err)
	}
	var plan ResearchPlan
	if err := json.Unmarshal(buf, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &plan, nil
}

// parseJSONObject tries the first-{ to last-} span of the reply, then the
// whole reply. Models routinely wrap the object in prose or code fences.
func parseJSONObject(reply string) (any, error) {
	var raw any
	if span, err := extractJSONSpan(reply); err == nil {
		if err := json.Unmarshal([]byte(span), &raw); err == nil {
			return raw, nil
		}
	}
	if err := json.Unmarshal([]byte(reply), &raw); err == nil {
		return raw, nil
	}
	return nil, ErrNoJSONObject
}

func extractJSONSpan(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", ErrNoJSONObject
	}
	return s[start : end+1], nil
}
