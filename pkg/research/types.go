package research

import "time"

// Config holds the pipeline tuning knobs. Zero values are replaced by the
// defaults from DefaultConfig, so a partially filled Config is safe to use.
type Config struct {
	MaxRetries         int           // primary inference attempts before fallback
	BaseDelay          time.Duration // fixed part of the quota backoff wait
	MaxJitter          time.Duration // upper bound of the uniform jitter addition
	MinRequestInterval time.Duration // pacing between provider requests
	PromptCharLimit    int           // prompt truncation cap, in runes
	KeyPointLimit      int           // key points kept per finding
	SummaryCharLimit   int           // finding summary cap, in runes
	RawContentLimit    int           // audit excerpt cap, in runes
	SourceLimit        int           // resolved sources kept per question
	BrowserTimeout     time.Duration // per-page navigation budget
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:         3,
		BaseDelay:          2 * time.Second,
		MaxJitter:          5 * time.Second,
		MinRequestInterval: 3 * time.Second,
		PromptCharLimit:    30000,
		KeyPointLimit:      3,
		SummaryCharLimit:   500,
		RawContentLimit:    1500,
		SourceLimit:        3,
		BrowserTimeout:     30 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxJitter <= 0 {
		c.MaxJitter = def.MaxJitter
	}
	if c.MinRequestInterval <= 0 {
		c.MinRequestInterval = def.MinRequestInterval
	}
	if c.PromptCharLimit <= 0 {
		c.PromptCharLimit = def.PromptCharLimit
	}
	if c.KeyPointLimit <= 0 {
		c.KeyPointLimit = def.KeyPointLimit
	}
	if c.SummaryCharLimit <= 0 {
		c.SummaryCharLimit = def.SummaryCharLimit
	}
	if c.RawContentLimit <= 0 {
		c.RawContentLimit = def.RawContentLimit
	}
	if c.SourceLimit <= 0 {
		c.SourceLimit = def.SourceLimit
	}
	if c.BrowserTimeout <= 0 {
		c.BrowserTimeout = def.BrowserTimeout
	}
	return c
}

// ResearchQuestion is a single weighted sub-question of a plan. Sources are
// resolved by the search step, never by the model.
type ResearchQuestion struct {
	Question   string   `json:"question"`
	Sources    []string `json:"sources"`
	Importance int      `json:"importance"`
}

// ResearchPlan is the structured decomposition of a research objective.
// A plan always carries at least one question and a depth between 1 and 3.
type ResearchPlan struct {
	Objective string             `json:"objective"`
	Questions []ResearchQuestion `json:"questions"`
	Depth     int                `json:"depth"`
}

// ContentMetadata describes the provenance of an extracted finding.
type ContentMetadata struct {
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	Date        string `json:"date,omitempty"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// KeyPoint is one distilled statement taken from a source.
type KeyPoint struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// ContentFinding is the distilled result of analyzing one source for one
// question. Metadata is a pointer so that "metadata present" is a nil check.
type ContentFinding struct {
	Source     string           `json:"source"`
	Metadata   *ContentMetadata `json:"metadata,omitempty"`
	KeyPoints  []KeyPoint       `json:"key_points"`
	Summary    string           `json:"summary,omitempty"`
	Confidence float64          `json:"confidence"`
	RawContent string           `json:"raw_content,omitempty"`
}

// ResearchOutput is the terminal artifact of a pipeline run. It is never
// mutated after creation; degraded runs are expressed through content
// (empty findings, explanatory summary), not through a distinct type.
type ResearchOutput struct {
	Objective string           `json:"objective"`
	Findings  []ContentFinding `json:"findings"`
	Summary   string           `json:"summary"`
	CreatedAt time.Time        `json:"created_at"`
}

// Stage identifies the pipeline phase a run is currently in.
type Stage string

const (
	StagePlanning     Stage = "planning"
	StageExtracting   Stage = "extracting"
	StageValidating   Stage = "validating"
	StageSynthesizing Stage = "synthesizing"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// PipelineState is a progress snapshot reported through the orchestrator's
// OnStateUpdate hook.
type PipelineState struct {
	Stage         Stage  `json:"stage"`
	Objective     string `json:"objective"`
	QuestionCount int    `json:"question_count"`
	SourceCount   int    `json:"source_count"`
	FindingCount  int    `json:"finding_count"`
	ValidCount    int    `json:"valid_count"`
}
