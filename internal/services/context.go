package services

import "context"

type contextKey string

const (
	jobSeqKey     contextKey = "job_seq"
	stageKey      contextKey = "stage"
	requestIDKey  contextKey = "request_id"
	generationKey contextKey = "generation"
)

// WithJobSeq annotates context with the download job sequence number.
func WithJobSeq(ctx context.Context, seq int64) context.Context {
	return context.WithValue(ctx, jobSeqKey, seq)
}

// JobSeqFromContext extracts the job sequence number if present.
func JobSeqFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(jobSeqKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithGeneration annotates context with the worker generation identifier.
func WithGeneration(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, generationKey, id)
}

// GenerationFromContext returns the worker generation identifier if present.
func GenerationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(generationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
