package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent names the subsystem that emitted a record.
	FieldComponent = "component"
	// FieldTimelineID identifies the timeline an edit belongs to.
	FieldTimelineID = "timeline_id"
	// FieldObjectID identifies the media object being edited.
	FieldObjectID = "object_id"
	// FieldCorrelationID ties together the records of one CLI invocation.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact states the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey string

const (
	timelineIDKey    contextKey = "timeline_id"
	objectIDKey      contextKey = "object_id"
	correlationIDKey contextKey = "correlation_id"
)

// WithTimelineID annotates ctx with a timeline identifier.
func WithTimelineID(ctx context.Context, id string) context.Context {
	return withString(ctx, timelineIDKey, id)
}

// WithObjectID annotates ctx with a media object identifier.
func WithObjectID(ctx context.Context, id string) context.Context {
	return withString(ctx, objectIDKey, id)
}

// WithCorrelationID annotates ctx with a correlation identifier.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return withString(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation identifier if present.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, correlationIDKey)
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// ContextFields extracts the standard identifiers carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	fields := make([]slog.Attr, 0, 3)
	for _, entry := range []struct {
		key   contextKey
		field string
	}{
		{timelineIDKey, FieldTimelineID},
		{objectIDKey, FieldObjectID},
		{correlationIDKey, FieldCorrelationID},
	} {
		if v, ok := stringFrom(ctx, entry.key); ok {
			fields = append(fields, slog.String(entry.field, v))
		}
	}
	return fields
}

// WithContext returns logger augmented with the identifiers found in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
