package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/mikeboe/web-research/pkg/store"
)

func TestRunLogHandlerCapturesRecords(t *testing.T) {
	st := store.NewStore()
	run := st.CreateRun("objective")

	logger := slog.New(NewRunLogHandler(st, run.ID))
	logger.Info("research run starting", "objective", "objective")
	logger.Warn("skipping source", "source", "https://a.test", "attempt", 2)

	logs := st.RunLogs(run.ID)
	if len(logs) != 2 {
		t.Fatalf("len(RunLogs()) = %d, want 2", len(logs))
	}

	if logs[0].Level != "INFO" || logs[0].Message != "research run starting" {
		t.Errorf("logs[0] = %s %q, want INFO %q", logs[0].Level, logs[0].Message, "research run starting")
	}
	if logs[1].Level != "WARN" {
		t.Errorf("logs[1].Level = %q, want WARN", logs[1].Level)
	}

	var meta map[string]any
	if err := json.Unmarshal(logs[1].Metadata, &meta); err != nil {
		t.Fatalf("metadata does not decode: %v", err)
	}
	if meta["source"] != "https://a.test" {
		t.Errorf(`metadata["source"] = %v, want %q`, meta["source"], "https://a.test")
	}
	if meta["attempt"] != float64(2) {
		t.Errorf(`metadata["attempt"] = %v, want 2`, meta["attempt"])
	}
}

func TestRunLogHandlerLogsAllLevels(t *testing.T) {
	st := store.NewStore()
	run := st.CreateRun("objective")
	h := NewRunLogHandler(st, run.ID)

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(LevelDebug) = false, want true")
	}

	logger := slog.New(h)
	logger.Debug("page loaded")
	logger.Error("fallback model failed")

	logs := st.RunLogs(run.ID)
	if len(logs) != 2 {
		t.Fatalf("len(RunLogs()) = %d, want 2", len(logs))
	}
	if logs[0].Level != "DEBUG" || logs[1].Level != "ERROR" {
		t.Errorf("levels = %q, %q, want DEBUG and ERROR", logs[0].Level, logs[1].Level)
	}
}

func TestRunLogHandlerUnknownRun(t *testing.T) {
	st := store.NewStore()
	logger := slog.New(NewRunLogHandler(st, uuid.New()))

	// Capture must never fail the worker, even when the run was never created.
	logger.Info("orphaned record")
}
