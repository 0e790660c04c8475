package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestStartNestsSpans(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	ctx, root := Start(context.Background(), "build")
	if root.TraceID == "" {
		t.Fatal("root span has no trace id")
	}
	_, child := Start(ctx, "tokenize")
	child.SetAttr("documents", 2)
	child.End()
	if child.TraceID != root.TraceID {
		t.Errorf("child trace id %q, want %q", child.TraceID, root.TraceID)
	}
	if TraceIDFromContext(ctx) != root.TraceID {
		t.Errorf("TraceIDFromContext mismatch")
	}
	if buf.Len() != 0 {
		t.Errorf("child span should not log on its own")
	}
	root.End()

	out := buf.String()
	if strings.Count(out, "msg=span") != 2 {
		t.Errorf("expected two span records, got:\n%s", out)
	}
	if !strings.Contains(out, "documents=2") {
		t.Errorf("child attribute missing:\n%s", out)
	}
}

func TestWithLoggingDisabled(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	_, span := Start(WithLogging(context.Background(), false), "quiet")
	span.End()
	if buf.Len() != 0 {
		t.Errorf("logging disabled but got %q", buf.String())
	}
	if TraceIDFromContext(context.Background()) != "" {
		t.Error("empty context should have no trace id")
	}
}
