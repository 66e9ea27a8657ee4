package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestPrettyHandler_RendersAttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false))
	log.With("component", "sweep").Info("sweep.fail", "target", "sessions")

	got := buf.String()
	for _, want := range []string{"lvl=[INFO]", "msg=sweep.fail", "component=sweep", "target=sessions"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Fatalf("uncolored output contains escapes: %q", got)
	}
}

func TestPrettyHandler_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false))
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %q", buf.String())
	}
}

func TestPrettyHandler_ColorsRequestFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, true))
	log.Error("http.request", "status", 503, "status_class", "5xx", "duration_ms", int64(1200))

	got := buf.String()
	for _, want := range []string{
		ansiRed + "[ERROR]" + ansiReset,
		"status=" + ansiRed + "503" + ansiReset,
		"class=" + ansiRed + "5xx" + ansiReset,
		"duration=" + ansiRed + "1200ms" + ansiReset,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output %q missing %q", got, want)
		}
	}
}

func TestPrettyHandler_GroupsPrefixKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, false))
	log.WithGroup("db").Info("pool", slog.Group("conns", "max", 10), "note", "two words")

	got := buf.String()
	for _, want := range []string{"db.conns.max=10", `db.note="two words"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("output %q missing %q", got, want)
		}
	}
}
