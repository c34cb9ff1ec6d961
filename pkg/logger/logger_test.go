package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsAreCarried(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Level: zerolog.DebugLevel, Output: &buf})

	ctx := logg.WithBookingID(context.Background(), "b-1")
	ctx = logg.WithForm(ctx, "passport")
	logg.Info(ctx, "booking.submit")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["booking_id"] != "b-1" || entry["form"] != "passport" {
		t.Fatalf("expected context fields in entry, got %v", entry)
	}
	if entry["service"] != "api" || entry["message"] != "booking.submit" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	logg.Error(context.Background(), "audit.write_failed", errors.New("sink down"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["error"] != "sink down" {
		t.Fatalf("expected error field, got %v", entry["error"])
	}
	if _, ok := entry["stack"]; !ok {
		t.Fatal("expected stack on error entries")
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := ParseLevel("nope"); got != zerolog.InfoLevel {
		t.Fatalf("expected info, got %v", got)
	}
	if got := ParseLevel(" DEBUG "); got != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %v", got)
	}
}
