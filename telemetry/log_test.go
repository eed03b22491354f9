package telemetry

import "testing"

func TestNewLoggerFallsBackOnInvalidLevel(t *testing.T) {
	entry := NewLogger("not-a-level", "relay")
	if entry.Logger.Level.String() != "info" {
		t.Fatalf("expected fallback to info level, got %s", entry.Logger.Level.String())
	}
	if entry.Data["component"] != "relay" {
		t.Fatalf("expected component field to be set")
	}
}

func TestNewLoggerHonorsValidLevel(t *testing.T) {
	entry := NewLogger("debug", "collector")
	if entry.Logger.Level.String() != "debug" {
		t.Fatalf("expected debug level, got %s", entry.Logger.Level.String())
	}
}
