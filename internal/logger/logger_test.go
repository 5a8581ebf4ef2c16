package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: DEBUG},
		{in: "", want: INFO},
		{in: "INFO", want: INFO},
		{in: "warning", want: WARN},
		{in: " error ", want: ERROR},
		{in: "loud", want: INFO, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_JSONFieldsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, MinLevel: DEBUG, JSON: true}).Component("STATIC")

	l.WithField("path", "a/b.txt").Info("served %d bytes", 5)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["component"] != "STATIC" {
		t.Fatalf("expected component STATIC, got %v", entry["component"])
	}
	if entry["path"] != "a/b.txt" {
		t.Fatalf("expected path field, got %v", entry["path"])
	}
	if entry["message"] != "served 5 bytes" {
		t.Fatalf("unexpected message %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Fatalf("unexpected level %v", entry["level"])
	}
}

func TestLogger_MinLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, MinLevel: WARN, JSON: true})

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("expected warn line, got %q", out)
	}
}

func TestLogger_ConsoleWriterWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, MinLevel: INFO, UseColor: false})

	l.Error("boom")

	out := buf.String()
	if !strings.Contains(out, "boom") {
		t.Fatalf("expected message in console output, got %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Fatalf("expected no ANSI escapes, got %q", out)
	}
}

func TestInit_ReplacesDefaultLogger(t *testing.T) {
	var first, second bytes.Buffer
	comp := WithComponent("CONFIG")

	Init(Config{Output: &first, MinLevel: INFO, JSON: true})
	comp.Info("loaded")

	Init(Config{Output: &second, MinLevel: ERROR, JSON: true})
	comp.Info("suppressed")
	comp.Error("failed")

	t.Cleanup(func() { Init(Config{Output: os.Stdout, MinLevel: INFO}) })

	if !strings.Contains(first.String(), "loaded") {
		t.Fatalf("first logger missed entry: %q", first.String())
	}
	if strings.Contains(second.String(), "suppressed") {
		t.Fatalf("replacement logger kept old level: %q", second.String())
	}
	if !strings.Contains(second.String(), `"message":"failed"`) {
		t.Fatalf("replacement logger missed entry: %q", second.String())
	}
}
