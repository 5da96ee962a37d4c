package api

import (
	"context"

	"batchdl/internal/jobs"
)

// QueueReader abstracts job store interactions needed for API queries.
type QueueReader interface {
	List(ctx context.Context) ([]*jobs.Job, error)
	GetBySeq(ctx context.Context, seq int64) (*jobs.Job, error)
	Count(ctx context.Context) (int, error)
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns queued jobs in admission order.
func (s *QueueService) List(ctx context.Context) ([]JobView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return FromJobs(list), nil
}

// Length returns the number of queued jobs.
func (s *QueueService) Length(ctx context.Context) (int, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.Count(ctx)
}

// Describe fetches a single job. It returns nil, nil when absent.
func (s *QueueService) Describe(ctx context.Context, seq int64) (*JobView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetBySeq(ctx, seq)
	if err != nil || job == nil {
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}
