package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span represents a named operation within a request, such as a session
// rotation, whose duration and outcome are logged when it ends.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child span from ctx, enriching the logger with the span
// name and identifiers. The request id doubles as the trace id.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)
	parentSpanID := spanIDFromContext(ctx)
	spanID := uuid.NewString()

	logger = logger.With(
		slog.String("span_id", spanID),
		slog.String("span_name", name),
	)
	if parentSpanID != "" {
		logger = logger.With(slog.String("parent_span_id", parentSpanID))
	}

	ctx = WithLogger(ctx, logger)
	ctx = context.WithValue(ctx, spanIDKey, spanID)

	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// End logs the span duration. A non-nil err is recorded as the span outcome.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.logger.Warn("span failed", slog.Duration("duration", time.Since(s.start)), slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("span completed", slog.Duration("duration", time.Since(s.start)))
}
