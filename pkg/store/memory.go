package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/web-research/pkg/research"
)

// Run statuses, served verbatim in API responses.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

var ErrNotFound = errors.New("not found")

// Run is one research request and its lifecycle state.
type Run struct {
	ID        uuid.UUID                `json:"id"`
	Objective string                   `json:"objective"`
	Status    string                   `json:"status"`
	Plan      *research.ResearchPlan   `json:"plan,omitempty"`
	State     *research.PipelineState  `json:"state,omitempty"`
	Output    *research.ResearchOutput `json:"output,omitempty"`
	Error     string                   `json:"error,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// LogEntry is one captured log record of a run. IDs count from 1 per run.
type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store keeps runs, run logs and chat history in memory. All methods are safe
// for concurrent use. Contents vanish on restart; callers that need the
// results durably write the ResearchOutput out themselves.
type Store struct {
	mu            sync.RWMutex
	runs          map[uuid.UUID]*Run
	runOrder      []uuid.UUID
	logs          map[uuid.UUID][]LogEntry
	conversations map[uuid.UUID]*Conversation
	messages      map[uuid.UUID][]Message
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		runs:          make(map[uuid.UUID]*Run),
		logs:          make(map[uuid.UUID][]LogEntry),
		conversations: make(map[uuid.UUID]*Conversation),
		messages:      make(map[uuid.UUID][]Message),
		now:           time.Now,
	}
}

func (s *Store) CreateRun(objective string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	run := &Run{
		ID:        uuid.New(),
		Objective: objective,
		Status:    RunPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.runs[run.ID] = run
	s.runOrder = append(s.runOrder, run.ID)

	out := *run
	return &out
}

func (s *Store) GetRun(id uuid.UUID) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	out := *run
	return &out, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns everything.
func (s *Store) ListRuns(limit int) []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.runOrder) {
		limit = len(s.runOrder)
	}
	runs := make([]Run, 0, limit)
	for i := len(s.runOrder) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, *s.runs[s.runOrder[i]])
	}
	return runs
}

func (s *Store) MarkRunning(id uuid.UUID) error {
	return s.updateRun(id, func(r *Run) { r.Status = RunRunning })
}

func (s *Store) SetRunPlan(id uuid.UUID, plan *research.ResearchPlan) error {
	return s.updateRun(id, func(r *Run) { r.Plan = plan })
}

func (s *Store) SetRunState(id uuid.UUID, state research.PipelineState) error {
	return s.updateRun(id, func(r *Run) { r.State = &state })
}

func (s *Store) CompleteRun(id uuid.UUID, output research.ResearchOutput) error {
	return s.updateRun(id, func(r *Run) {
		r.Status = RunCompleted
		r.Output = &output
	})
}

func (s *Store) FailRun(id uuid.UUID, reason string) error {
	return s.updateRun(id, func(r *Run) {
		r.Status = RunFailed
		r.Error = reason
	})
}

func (s *Store) updateRun(id uuid.UUID, fn func(*Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	fn(run)
	run.UpdatedAt = s.now()
	return nil
}

// AppendRunLog records one log line for a run. Log capture must never fail
// the worker, so unknown run IDs are accepted silently.
func (s *Store) AppendRunLog(runID uuid.UUID, ts time.Time, level, message string, metadata json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.logs[runID]
	s.logs[runID] = append(entries, LogEntry{
		ID:        len(entries) + 1,
		Timestamp: ts,
		Level:     level,
		Message:   message,
		Metadata:  metadata,
	})
}

func (s *Store) RunLogs(runID uuid.UUID) []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LogEntry(nil), s.logs[runID]...)
}

func (s *Store) CreateConversation() *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := &Conversation{
		ID:        uuid.New(),
		Title:     "New Conversation",
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[conv.ID] = conv

	out := *conv
	return &out
}

func (s *Store) GetConversation(id uuid.UUID) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	out := *conv
	return &out, nil
}

// ListConversations returns all conversations, most recently active first.
func (s *Store) ListConversations() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		convs = append(convs, *c)
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].UpdatedAt.After(convs[j].UpdatedAt) })
	return convs
}

func (s *Store) SetConversationTitle(id uuid.UUID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	conv.Title = title
	return nil
}

// AppendMessage adds a message to a conversation and bumps its activity
// timestamp.
func (s *Store) AppendMessage(conversationID uuid.UUID, role, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	msg := Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      s.now(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	conv.UpdatedAt = msg.CreatedAt

	out := msg
	return &out, nil
}

// History returns a conversation's messages in insertion order. Unknown
// conversations yield an empty history.
func (s *Store) History(conversationID uuid.UUID) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages[conversationID]...)
}
