package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Page is the rendered-document view the extractor works from.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Browser loads pages for extraction. Implementations drive a real browser;
// tests substitute fakes.
type Browser interface {
	OpenPage(ctx context.Context, url string) (*Page, error)
	Close() error
}

const analysisPromptTemplate = "Extract the key information from this webpage content relevant to the following question. Question: %s\n\nContent: %s"

// findingConfidence is the fixed confidence attached to a finding that was
// produced by model analysis rather than scored individually.
const findingConfidence = 0.8

// ContentExtractor visits every (question, source) pair of a plan and distills
// each page into a ContentFinding.
type ContentExtractor struct {
	llm Inferencer
	cfg Config
	log *slog.Logger
}

func NewContentExtractor(llm Inferencer, cfg Config, logger *slog.Logger) *ContentExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentExtractor{llm: llm, cfg: cfg.withDefaults(), log: logger}
}

// Extract walks the plan sequentially, one page and one analysis at a time.
// A source that fails to load or analyze is logged and skipped; whatever was
// gathered so far is always returned, including on context cancellation.
func (e *ContentExtractor) Extract(ctx context.Context, b Browser, plan *ResearchPlan) []ContentFinding {
	findings := make([]ContentFinding, 0)
	for _, q := range plan.Questions {
		for _, source := range q.Sources {
			if ctx.Err() != nil {
				e.log.Warn("extraction canceled", "error", ctx.Err())
				return findings
			}
			finding, err := e.extractOne(ctx, b, q.Question, source)
			if err != nil {
				e.log.Warn("skipping source", "question", q.Question, "source", source, "error", err)
				continue
			}
			findings = append(findings, *finding)
		}
	}
	e.log.Info("extraction finished", "findings", len(findings))
	return findings
}

func (e *ContentExtractor) extractOne(ctx context.Context, b Browser, question, source string) (*ContentFinding, error) {
	pageCtx, cancel := context.WithTimeout(ctx, e.cfg.BrowserTimeout)
	page, err := b.OpenPage(pageCtx, source)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	analysis := e.llm.Invoke(ctx, fmt.Sprintf(analysisPromptTemplate, question, page.Text))

	return &ContentFinding{
		Source: source,
		Metadata: &ContentMetadata{
			Title:       page.Title,
			URL:         source,
			ContentType: "text",
		},
		KeyPoints:  splitKeyPoints(analysis, e.cfg.KeyPointLimit),
		Summary:    truncateRunes(analysis, e.cfg.SummaryCharLimit),
		Confidence: findingConfidence,
		RawContent: truncateRunes(page.Text, e.cfg.RawContentLimit),
	}, nil
}

// splitKeyPoints keeps the first limit blank-line-separated segments of the
// analysis, dropping empty ones. Confidence decreases with position since the
// model is asked to lead with what matters most.
func splitKeyPoints(analysis string, limit int) []KeyPoint {
	segments := strings.Split(analysis, "\n\n")
	if len(segments) > limit {
		segments = segments[:limit]
	}

	points := make([]KeyPoint, 0, len(segments))
	for _, segment := range segments {
		text := strings.TrimSpace(segment)
		if text == "" {
			continue
		}
		points = append(points, KeyPoint{
			Text:       text,
			Confidence: positionConfidence(len(points)),
		})
	}
	return points
}

func positionConfidence(position int) float64 {
	c := 0.9 - 0.1*float64(position)
	if c < 0.1 {
		return 0.1
	}
	return c
}
