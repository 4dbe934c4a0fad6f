package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mikeboe/web-research/pkg/research"
	"github.com/mikeboe/web-research/pkg/store"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

type ResearchToolset struct {
	Store *store.Store
}

func NewResearchToolset(st *store.Store) *ResearchToolset {
	return &ResearchToolset{
		Store: st,
	}
}

func (t *ResearchToolset) Name() string {
	return "research_tools"
}

func (t *ResearchToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	listTool, err := functiontool.New[ListRunsArgs, ListRunsResp](
		functiontool.Config{
			Name:        "list_research_runs",
			Description: "List recorded research runs with their status and objective.",
		},
		t.listRunsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create list tool: %w", err)
	}

	findingsTool, err := functiontool.New[GetFindingsArgs, GetFindingsResp](
		functiontool.Config{
			Name:        "get_research_findings",
			Description: "Get the summary and findings of a research run by id.",
		},
		t.getFindingsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create findings tool: %w", err)
	}

	searchTool, err := functiontool.New[SearchFindingsArgs, SearchFindingsResp](
		functiontool.Config{
			Name:        "search_findings",
			Description: "Search the findings of all completed research runs for a phrase.",
		},
		t.searchFindingsTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search tool: %w", err)
	}

	return []tool.Tool{listTool, findingsTool, searchTool}, nil
}

// --- Tool Implementations ---

type ListRunsArgs struct {
	Limit int `json:"limit,omitempty" description:"Number of runs to return (default 10)"`
}

type ListRunsResp struct {
	Runs string `json:"runs"`
}

// Wrapper for ADK tool interface
func (t *ResearchToolset) listRunsTool(ctx tool.Context, args ListRunsArgs) (ListRunsResp, error) {
	return t.ListRuns(ctx, args)
}

// Public method using standard context
func (t *ResearchToolset) ListRuns(ctx context.Context, args ListRunsArgs) (ListRunsResp, error) {
	if args.Limit == 0 {
		args.Limit = 10
	}

	slog.Info("List research runs", "limit", args.Limit)

	runs := t.Store.ListRuns(args.Limit)
	if len(runs) == 0 {
		return ListRunsResp{Runs: "No research runs recorded yet."}, nil
	}

	var formatted []string
	for _, run := range runs {
		formatted = append(formatted, fmt.Sprintf("[ID]: %s\n[Status]: %s\n[Objective]: %s", run.ID, run.Status, run.Objective))
	}

	return ListRunsResp{Runs: strings.Join(formatted, "\n\n")}, nil
}

type GetFindingsArgs struct {
	RunID string `json:"runId" description:"The research run id"`
}

type GetFindingsResp struct {
	Findings string `json:"findings"`
}

// Wrapper for ADK tool interface
func (t *ResearchToolset) getFindingsTool(ctx tool.Context, args GetFindingsArgs) (GetFindingsResp, error) {
	return t.GetFindings(ctx, args)
}

// Public method using standard context
func (t *ResearchToolset) GetFindings(ctx context.Context, args GetFindingsArgs) (GetFindingsResp, error) {
	id, err := uuid.Parse(args.RunID)
	if err != nil {
		return GetFindingsResp{}, fmt.Errorf("invalid run id: %w", err)
	}

	slog.Info("Get research findings", "run_id", id)

	run, err := t.Store.GetRun(id)
	if err != nil {
		return GetFindingsResp{}, fmt.Errorf("failed to get run: %w", err)
	}

	if run.Output == nil {
		return GetFindingsResp{Findings: fmt.Sprintf("Run %s has no results yet (status: %s).", run.ID, run.Status)}, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[Objective]: %s\n[Summary]: %s", run.Output.Objective, run.Output.Summary))
	for _, f := range run.Output.Findings {
		sb.WriteString(fmt.Sprintf("\n\n[Source]: %s\n[Finding]: %s", f.Source, f.Summary))
		for _, kp := range f.KeyPoints {
			sb.WriteString(fmt.Sprintf("\n- %s", kp.Text))
		}
	}

	return GetFindingsResp{Findings: sb.String()}, nil
}

type SearchFindingsArgs struct {
	Query string `json:"query" description:"The phrase to look for in stored findings"`
	TopK  int    `json:"topK,omitempty" description:"Number of results to return (default 5)"`
}

type SearchFindingsResp struct {
	Results string `json:"results"`
}

// Wrapper for ADK tool interface
func (t *ResearchToolset) searchFindingsTool(ctx tool.Context, args SearchFindingsArgs) (SearchFindingsResp, error) {
	return t.SearchFindings(ctx, args)
}

// Public method using standard context. Matching is a case-insensitive
// substring scan over summaries and key points of completed runs.
func (t *ResearchToolset) SearchFindings(ctx context.Context, args SearchFindingsArgs) (SearchFindingsResp, error) {
	if args.TopK == 0 {
		args.TopK = 5
	}

	slog.Info("Search findings", "query", args.Query, "topK", args.TopK)

	needle := strings.ToLower(strings.TrimSpace(args.Query))
	if needle == "" {
		return SearchFindingsResp{Results: "Empty query."}, nil
	}

	var matches []string
	for _, run := range t.Store.ListRuns(0) {
		if run.Output == nil {
			continue
		}
		for _, f := range run.Output.Findings {
			if !findingMatches(f, needle) {
				continue
			}
			matches = append(matches, fmt.Sprintf("[Run]: %s\n[Source]: %s\n[Content]: %s", run.ID, f.Source, f.Summary))
		}
	}

	if len(matches) == 0 {
		return SearchFindingsResp{Results: "No stored findings match the query."}, nil
	}
	if len(matches) > args.TopK {
		matches = matches[:args.TopK]
	}

	return SearchFindingsResp{Results: strings.Join(matches, "\n\n")}, nil
}

func findingMatches(f research.ContentFinding, needle string) bool {
	if strings.Contains(strings.ToLower(f.Summary), needle) {
		return true
	}
	for _, kp := range f.KeyPoints {
		if strings.Contains(strings.ToLower(kp.Text), needle) {
			return true
		}
	}
	return false
}
