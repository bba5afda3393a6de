package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerDefaultsToNop(t *testing.T) {
	SetLogger(nil)
	if Logger() == nil {
		t.Fatal("Logger returned nil")
	}
	Logger().Info("discarded")
}

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Logger().Debug("compiled", zap.String("file", "counter.hits"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("observed %d entries, want 1", len(entries))
	}
	if entries[0].Message != "compiled" {
		t.Errorf("message = %q, want %q", entries[0].Message, "compiled")
	}
	if got := entries[0].ContextMap()["file"]; got != "counter.hits" {
		t.Errorf("file field = %v, want counter.hits", got)
	}
}

func TestNew(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		l, err := New(verbose)
		if err != nil {
			t.Fatalf("New(%v) failed: %v", verbose, err)
		}
		if got := l.Core().Enabled(zap.DebugLevel); got != verbose {
			t.Errorf("New(%v) debug enabled = %v", verbose, got)
		}
	}
}
