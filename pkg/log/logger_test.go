package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(WarnLevel), WithFormatter(&TextFormatter{}), WithOutput(NewWriterOutput(&buf)))
	l.Info("dropped")
	l.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info should be gated below warn: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn should pass: %q", out)
	}
}

func TestWithFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(DebugLevel), WithFormatter(&TextFormatter{}), WithOutput(NewWriterOutput(&buf)))
	l = l.With(Component("store"), Str("ns", "default"))
	l.Info("opened", Int("keys", 3))
	out := buf.String()
	for _, want := range []string{"component=store", "ns=default", "keys=3", "opened"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(InfoLevel), WithFormatter(&JSONFormatter{}), WithOutput(NewWriterOutput(&buf)))
	l.Info("hello", Str("k", "v"))
	var obj map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &obj); err != nil {
		t.Fatalf("not json: %v (%q)", err, buf.String())
	}
	if obj["msg"] != "hello" || obj["level"] != "INFO" || obj["k"] != "v" {
		t.Fatalf("unexpected object: %v", obj)
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel("warn"); err != nil || lvl != WarnLevel {
		t.Fatalf("warn: %v %v", lvl, err)
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if lvl, err := ParseLevel(""); err != nil || lvl != InfoLevel {
		t.Fatalf("empty should default to info")
	}
}
