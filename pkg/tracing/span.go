// Package tracing records timed spans for index builds and searches. Spans
// travel in a context, nest into trees and are written to slog when the
// root span ends.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type contextKey struct{}

// Span represents a timed operation within a trace.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any

	mu      sync.Mutex
	root    bool
	enabled bool
}

// NewTraceID returns a fresh random trace id.
func NewTraceID() string {
	return uuid.NewString()
}

// Start opens a span named name. When ctx already carries a span the new one
// becomes its child and shares its trace id; otherwise a root span with a
// new trace id is created. A root span logs its whole tree on End unless
// logging was disabled with WithLogging.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{
		Name:      name,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
		enabled:   loggingEnabled(ctx),
	}
	if parent := SpanFromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.Children = append(parent.Children, span)
		parent.mu.Unlock()
	} else {
		span.TraceID = NewTraceID()
		span.root = true
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// End records the span's end time and, for a root span, logs the tree.
func (s *Span) End() {
	s.mu.Lock()
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	s.mu.Unlock()
	if s.root && s.enabled {
		s.Log()
	}
}

// SetAttr attaches a key-value attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// SpanFromContext extracts the current Span from ctx, or nil if none.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(contextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// TraceIDFromContext returns the trace id of the span in ctx, or "".
func TraceIDFromContext(ctx context.Context) string {
	if span := SpanFromContext(ctx); span != nil {
		return span.TraceID
	}
	return ""
}

type loggingKey struct{}

// WithLogging turns span logging on or off for spans started from ctx.
// Logging is on by default.
func WithLogging(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, loggingKey{}, enabled)
}

func loggingEnabled(ctx context.Context) bool {
	enabled, ok := ctx.Value(loggingKey{}).(bool)
	return !ok || enabled
}

// Log writes the span tree to slog, one record per span.
func (s *Span) Log() {
	s.logRecursive(slog.Default().With("component", "tracing"), 0)
}

func (s *Span) logRecursive(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
		"depth", depth,
	}
	for k, v := range s.Attrs {
		attrs = append(attrs, k, v)
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	logger.Info("span", attrs...)
	for _, child := range children {
		child.logRecursive(logger, depth+1)
	}
}
