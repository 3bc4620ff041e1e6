// Package trace carries request-scoped tracing metadata.
// A Trace is started when a request enters the server, travels on the request
// context for the request lifetime, and is handed to a Reporter once the
// response has been written.
package trace

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Trace holds the identifying metadata of a single request.
type Trace struct {
	ID        string
	SessionID string
	Method    string
	Path      string
	Status    int
	StartedAt time.Time
	EndedAt   time.Time

	// Extra holds application-provided metadata, populated by the
	// configured extra builder.
	Extra map[string]any
}

// Duration returns the elapsed time between start and finish.
// It returns zero until Finish has been called.
func (t *Trace) Duration() time.Duration {
	if t.EndedAt.IsZero() {
		return 0
	}
	return t.EndedAt.Sub(t.StartedAt)
}

// Start creates a trace for a request that begins now.
func Start(method, path string) *Trace {
	return &Trace{
		ID:        uuid.NewString(),
		Method:    method,
		Path:      path,
		StartedAt: time.Now(),
	}
}

// Finish marks the trace complete with the response status.
func (t *Trace) Finish(status int) {
	t.Status = status
	t.EndedAt = time.Now()
}

// SetExtra records a single application metadata entry.
func (t *Trace) SetExtra(key string, value any) {
	if t.Extra == nil {
		t.Extra = make(map[string]any)
	}
	t.Extra[key] = value
}

// Reporter receives finished traces. Implementations must be safe for
// concurrent use; they are invoked from request goroutines.
type Reporter interface {
	Report(ctx context.Context, t *Trace)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, t *Trace)

func (f ReporterFunc) Report(ctx context.Context, t *Trace) { f(ctx, t) }

// NewLogReporter returns a Reporter that writes finished traces to the logger.
func NewLogReporter(logger *zap.Logger) Reporter {
	log := logger.Named("trace")
	return ReporterFunc(func(_ context.Context, t *Trace) {
		log.Info("Request finished",
			zap.String("trace_id", t.ID),
			zap.String("session_id", t.SessionID),
			zap.String("method", t.Method),
			zap.String("path", t.Path),
			zap.Int("status", t.Status),
			zap.Duration("duration", t.Duration()),
			zap.Any("extra", t.Extra),
		)
	})
}

type contextKey struct{}

// NewContext returns a context carrying the trace.
func NewContext(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// From extracts the trace from the context, if present.
func From(ctx context.Context) (*Trace, bool) {
	t, ok := ctx.Value(contextKey{}).(*Trace)
	return t, ok
}
