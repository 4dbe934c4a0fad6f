package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mikeboe/web-research/pkg/store"
)

// RunLogHandler is a slog.Handler that captures records on a research run
type RunLogHandler struct {
	Store *store.Store
	RunID uuid.UUID
}

func NewRunLogHandler(st *store.Store, runID uuid.UUID) *RunLogHandler {
	return &RunLogHandler{
		Store: st,
		RunID: runID,
	}
}

func (h *RunLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true // Log everything
}

func (h *RunLogHandler) Handle(ctx context.Context, r slog.Record) error {
	// Extract attributes to JSON
	attrs := make(map[string]interface{})
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		// Fallback for marshal error
		metaJSON = []byte("{}")
	}

	h.Store.AppendRunLog(h.RunID, r.Time, r.Level.String(), r.Message, metaJSON)
	return nil
}

func (h *RunLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// For simplicity in this implementation, we won't support WithAttrs fully
	// creating a new handler chain, as we just want the base functionality.
	// A full implementation would merge attributes.
	return h
}

func (h *RunLogHandler) WithGroup(name string) slog.Handler {
	return h
}
