package workflow_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/notifications"
	"batchdl/internal/pipeline"
	"batchdl/internal/stage"
	"batchdl/internal/testsupport"
	"batchdl/internal/workflow"
)

type alertRecorder struct {
	mu     sync.Mutex
	alerts []string
	ready  []string
}

func (a *alertRecorder) NotifyDownloadReady(_ context.Context, recipient notifications.Recipient, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ready = append(a.ready, recipient.Address+" "+url)
	return nil
}

func (a *alertRecorder) NotifyPipelineError(_ context.Context, err error, label string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, label+": "+err.Error())
	return nil
}

func (a *alertRecorder) TestNotification(context.Context) error { return nil }

func (a *alertRecorder) alertCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

type stubStage struct {
	execute func(ctx context.Context, job *jobs.Job) error
	calls   atomic.Int32
}

func (s *stubStage) Execute(ctx context.Context, job *jobs.Job) error {
	s.calls.Add(1)
	return s.execute(ctx, job)
}

func (s *stubStage) HealthCheck(context.Context) stage.Health { return stage.Healthy("stub") }

func deleting(store *jobs.Store) *stubStage {
	return &stubStage{execute: func(ctx context.Context, job *jobs.Job) error {
		_, err := store.Delete(ctx, job.Seq)
		return err
	}}
}

func insertJob(t *testing.T, store *jobs.Store, filename string) *jobs.Job {
	t.Helper()
	job := &jobs.Job{
		Requestor:   "u1",
		Format:      jobs.FormatANVL,
		Compression: jobs.CompressionGzip,
		ToHarvest:   []string{"u1"},
		Filename:    filename,
		Stage:       jobs.StageCreate,
	}
	if err := store.Insert(context.Background(), job); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return job
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func queueEmpty(t *testing.T, store *jobs.Store) func() bool {
	return func() bool {
		n, err := store.Count(context.Background())
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		return n == 0
	}
}

func TestStartProcessesQueueAndStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	handler := deleting(store)

	proc := workflow.NewProcessor(cfg, store, &alertRecorder{}, logging.NewNop(), workflow.WithIdleSleep(10*time.Millisecond))
	proc.ConfigureStages(pipeline.StageSet{jobs.StageCreate: handler})
	if err := proc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := proc.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}

	insertJob(t, store, "first")
	insertJob(t, store, "second")
	waitFor(t, "queue to drain", queueEmpty(t, store))

	status := proc.Status(context.Background())
	if !status.Running || status.Generation == "" || status.LastJob == nil || status.LastJob.Filename != "second" {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.StageHealth) != len(jobs.Stages()) {
		t.Fatalf("expected health for every stage, got %+v", status.StageHealth)
	}

	proc.Stop()
	if status := proc.Status(context.Background()); status.Running || status.Generation != "" {
		t.Fatalf("expected stopped status, got %+v", status)
	}
	if handler.calls.Load() != 2 {
		t.Fatalf("expected 2 executions, got %d", handler.calls.Load())
	}
}

func TestStartRequiresStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	proc := workflow.NewProcessor(cfg, store, nil, logging.NewNop())
	if err := proc.Start(context.Background()); err == nil {
		t.Fatal("expected error without stages")
	}
	if err := proc.Drain(context.Background()); err == nil {
		t.Fatal("expected Drain error without stages")
	}
}

func TestFailureRetriesAndAlertsOncePerMessage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	recorder := &alertRecorder{}
	failing := &stubStage{execute: func(context.Context, *jobs.Job) error {
		return errors.New("registry unreachable")
	}}

	proc := workflow.NewProcessor(cfg, store, recorder, logging.NewNop(), workflow.WithIdleSleep(5*time.Millisecond))
	proc.ConfigureStages(pipeline.StageSet{jobs.StageCreate: failing})
	job := insertJob(t, store, "stuck")
	if err := proc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "repeated attempts", func() bool { return failing.calls.Load() >= 3 })
	proc.Stop()

	if n := recorder.alertCount(); n != 1 {
		t.Fatalf("expected a single alert for a repeated failure, got %d", n)
	}
	status := proc.Status(context.Background())
	if status.LastError != "registry unreachable" {
		t.Fatalf("unexpected last error %q", status.LastError)
	}
	if status.QueueLength != 1 {
		t.Fatalf("expected failed job to stay queued, got %d", status.QueueLength)
	}
	stored, err := store.GetBySeq(context.Background(), job.Seq)
	if err != nil || stored == nil || stored.Stage != jobs.StageCreate {
		t.Fatalf("expected job unchanged, got %+v %v", stored, err)
	}
}

func TestRestartRetiresRunningGeneration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	started := make(chan string, 1)
	blocking := &stubStage{execute: func(ctx context.Context, _ *jobs.Job) error {
		tok := stage.TokenFromContext(ctx)
		started <- tok.ID
		<-tok.Done()
		return stage.ErrCancelled
	}}

	proc := workflow.NewProcessor(cfg, store, &alertRecorder{}, logging.NewNop(), workflow.WithIdleSleep(10*time.Millisecond))
	proc.ConfigureStages(pipeline.StageSet{jobs.StageCreate: blocking})
	insertJob(t, store, "reload")
	if err := proc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var firstGen string
	select {
	case firstGen = <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("blocking stage never started")
	}

	replacement := deleting(store)
	if err := proc.Restart(context.Background(), pipeline.StageSet{jobs.StageCreate: replacement}); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	waitFor(t, "new generation to finish the job", queueEmpty(t, store))

	status := proc.Status(context.Background())
	if status.Generation == "" || status.Generation == firstGen {
		t.Fatalf("expected a new generation, got %q (old %q)", status.Generation, firstGen)
	}
	if status.LastError != "" {
		t.Fatalf("retirement must not record an error, got %q", status.LastError)
	}
	proc.Stop()

	if blocking.calls.Load() != 1 || replacement.calls.Load() != 1 {
		t.Fatalf("unexpected calls: old %d new %d", blocking.calls.Load(), replacement.calls.Load())
	}
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	boom := errors.New("boom")
	var seen []string
	handler := &stubStage{execute: func(ctx context.Context, job *jobs.Job) error {
		seen = append(seen, job.Filename)
		if job.Filename == "bad" {
			return boom
		}
		_, err := store.Delete(ctx, job.Seq)
		return err
	}}

	proc := workflow.NewProcessor(cfg, store, nil, logging.NewNop())
	proc.ConfigureStages(pipeline.StageSet{jobs.StageCreate: handler})
	insertJob(t, store, "good")
	insertJob(t, store, "bad")
	insertJob(t, store, "later")

	if err := proc.Drain(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(seen) != 2 || seen[0] != "good" || seen[1] != "bad" {
		t.Fatalf("unexpected processing order %v", seen)
	}
	if n, _ := store.Count(context.Background()); n != 2 {
		t.Fatalf("expected 2 jobs left, got %d", n)
	}
}

func TestDispatchWithoutHandlerFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	proc := workflow.NewProcessor(cfg, store, nil, logging.NewNop())
	proc.ConfigureStages(pipeline.StageSet{jobs.StageHarvest: deleting(store)})
	insertJob(t, store, "orphan")
	if err := proc.Drain(context.Background()); err == nil {
		t.Fatal("expected error for stage without handler")
	}
}
