package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "planner", "debug")
	log.WithField("task", "t1").Debug("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if entry["service"] != "planner" || entry["message"] != "hello" || entry["level"] != "debug" || entry["task"] != "t1" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatal("missing ts field")
	}
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "planner", "chatty")
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug entry written at info level: %s", buf.String())
	}
}
