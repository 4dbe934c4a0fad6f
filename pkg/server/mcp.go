package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mikeboe/web-research/pkg/store"
)

// MCPVersion is the MCP server version.
const MCPVersion = "1.0.0"

// StartResearchInput is the input schema for the start_research tool.
type StartResearchInput struct {
	Objective string `json:"objective" jsonschema:"the research objective to investigate"`
}

// StartResearchOutput reports the run the tool registered.
type StartResearchOutput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// GetResearchInput is the input schema for the get_research tool.
type GetResearchInput struct {
	ID string `json:"id" jsonschema:"the run id returned by start_research"`
}

// RunOutput is the tool-facing view of a research run.
type RunOutput struct {
	ID        string          `json:"id"`
	Objective string          `json:"objective"`
	Status    string          `json:"status"`
	Stage     string          `json:"stage,omitempty"`
	Error     string          `json:"error,omitempty"`
	Summary   string          `json:"summary,omitempty"`
	Findings  []FindingOutput `json:"findings,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// FindingOutput is one extracted finding of a completed run.
type FindingOutput struct {
	Source    string   `json:"source"`
	Title     string   `json:"title,omitempty"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points,omitempty"`
}

// ListResearchInput is the input schema for the list_research tool.
type ListResearchInput struct{}

// ListResearchOutput lists recent runs, newest first.
type ListResearchOutput struct {
	Runs  []RunSummary `json:"runs"`
	Count int          `json:"count"`
}

// RunSummary is one row of a run listing.
type RunSummary struct {
	ID        string `json:"id"`
	Objective string `json:"objective"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type mcpTools struct {
	svc *Service
}

// NewMCPServer exposes the research service over the Model Context Protocol.
func NewMCPServer(svc *Service) *mcp.Server {
	impl := &mcp.Implementation{
		Name:    "web-research",
		Version: MCPVersion,
	}
	server := mcp.NewServer(impl, nil)

	t := &mcpTools{svc: svc}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_research",
		Description: "Start a background research run for an objective. Poll get_research with the returned id.",
	}, t.handleStartResearch)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_research",
		Description: "Get the status, progress and results of a research run.",
	}, t.handleGetResearch)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_research",
		Description: "List recent research runs, newest first.",
	}, t.handleListResearch)

	return server
}

// NewMCPHandler wraps the MCP server in its streamable HTTP transport so it
// can be mounted on a route.
func NewMCPHandler(svc *Service) http.Handler {
	server := NewMCPServer(svc)
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return server
	}, nil)
}

func (t *mcpTools) handleStartResearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StartResearchInput,
) (*mcp.CallToolResult, StartResearchOutput, error) {
	run := t.svc.StartResearch(CreateRunRequest{Objective: input.Objective})
	return nil, StartResearchOutput{ID: run.ID.String(), Status: run.Status}, nil
}

func (t *mcpTools) handleGetResearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetResearchInput,
) (*mcp.CallToolResult, RunOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("invalid run id %q: %w", input.ID, err)
	}

	run, err := t.svc.GetRun(id)
	if err != nil {
		return nil, RunOutput{}, err
	}
	return nil, runOutput(run), nil
}

func (t *mcpTools) handleListResearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListResearchInput,
) (*mcp.CallToolResult, ListResearchOutput, error) {
	runs := t.svc.ListRuns()
	out := ListResearchOutput{
		Runs:  make([]RunSummary, len(runs)),
		Count: len(runs),
	}
	for i := range runs {
		out.Runs[i] = RunSummary{
			ID:        runs[i].ID.String(),
			Objective: runs[i].Objective,
			Status:    runs[i].Status,
			CreatedAt: runs[i].CreatedAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func runOutput(run *store.Run) RunOutput {
	out := RunOutput{
		ID:        run.ID.String(),
		Objective: run.Objective,
		Status:    run.Status,
		Error:     run.Error,
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
	}
	if run.State != nil {
		out.Stage = string(run.State.Stage)
	}
	if run.Output != nil {
		out.Summary = run.Output.Summary
		out.Findings = make([]FindingOutput, len(run.Output.Findings))
		for i, f := range run.Output.Findings {
			fo := FindingOutput{Source: f.Source, Summary: f.Summary}
			if f.Metadata != nil {
				fo.Title = f.Metadata.Title
			}
			for _, kp := range f.KeyPoints {
				fo.KeyPoints = append(fo.KeyPoints, kp.Text)
			}
			out.Findings[i] = fo
		}
	}
	return out
}
