package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devlink-protocol/devlink-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.dlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func TestExportToJSONL(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	events := []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "conn-1",
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message: &log.MessageEvent{
				Type: log.MessageTypeRequest,
				ID:   1,
				Verb: "PUT",
				Path: "/v1/message",
			},
		},
		{
			Timestamp:    ts.Add(time.Second),
			ConnectionID: "conn-1",
			Direction:    log.DirectionIn,
			Layer:        log.LayerTransport,
			Category:     log.CategoryControl,
			Control:      &log.ControlEvent{Type: log.ControlPing},
		},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSONL lines, got %d", len(lines))
	}

	// Each line must be valid JSON
	for i, line := range lines {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
		}
	}
}

func TestExportToCSV(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	events := []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "conn-1",
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			DeviceID:     "3f8c2a1e-9b4d-4c6f-8a2e-1d5b7c9e0f31",
			Message: &log.MessageEvent{
				Type: log.MessageTypeRequest,
				ID:   7,
			},
		},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	output := string(data)
	if !strings.Contains(output, "timestamp,connection_id,direction") {
		t.Errorf("expected CSV header, got: %s", output)
	}
	if !strings.Contains(output, "conn-1") {
		t.Errorf("expected connection ID in output, got: %s", output)
	}
	if !strings.Contains(output, "3f8c2a1e-9b4d-4c6f-8a2e-1d5b7c9e0f31") {
		t.Errorf("expected device ID in output, got: %s", output)
	}
	if !strings.Contains(output, "REQUEST") {
		t.Errorf("expected event type in output, got: %s", output)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, []log.Event{{Timestamp: time.Now()}})

	err := RunExport(path, "xml", "")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExportMissingFile(t *testing.T) {
	err := RunExport(filepath.Join(t.TempDir(), "missing.dlog"), "jsonl", "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
