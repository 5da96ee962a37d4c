package pipeline_test

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"sync"
	"testing"

	"batchdl/internal/compress"
	"batchdl/internal/config"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/notifications"
	"batchdl/internal/pipeline"
	"batchdl/internal/registry"
	"batchdl/internal/testsupport"
)

// goGzip compresses in-process so tests do not depend on a system gzip.
type goGzip struct{}

func (goGzip) Compress(_ context.Context, input, output string) error {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()
	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		return err
	}
	return zw.Close()
}

type sentMail struct {
	recipient notifications.Recipient
	url       string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordingNotifier) NotifyDownloadReady(_ context.Context, recipient notifications.Recipient, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMail{recipient: recipient, url: url})
	return nil
}

func (r *recordingNotifier) NotifyPipelineError(context.Context, error, string) error { return nil }

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

type fixture struct {
	cfg      *config.Config
	store    *jobs.Store
	reg      *registry.Store
	notifier *recordingNotifier
	layout   pipeline.Layout
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	return &fixture{
		cfg:      cfg,
		store:    testsupport.MustOpenStore(t, cfg),
		reg:      testsupport.MustOpenRegistry(t, cfg),
		notifier: &recordingNotifier{},
		layout:   pipeline.NewLayout(cfg),
	}
}

func (f *fixture) deps() pipeline.Dependencies {
	return pipeline.Dependencies{
		Config:      f.cfg,
		Store:       f.store,
		Source:      f.reg,
		Directory:   f.reg,
		Compressors: compress.Set{Gzip: goGzip{}},
		Notifier:    f.notifier,
		Logger:      logging.NewNop(),
	}
}

func (f *fixture) stages(modify ...func(*pipeline.Dependencies)) pipeline.StageSet {
	d := f.deps()
	for _, m := range modify {
		m(&d)
	}
	return pipeline.NewStageSet(d)
}

func (f *fixture) put(t *testing.T, owner, id string, metadata map[string]string) {
	t.Helper()
	if err := f.reg.PutIdentifier(context.Background(), registry.Record{Identifier: id, Owner: owner, Metadata: metadata}); err != nil {
		t.Fatalf("PutIdentifier failed: %v", err)
	}
}

func (f *fixture) insert(t *testing.T, job *jobs.Job) *jobs.Job {
	t.Helper()
	if job.Compression == "" {
		job.Compression = jobs.CompressionGzip
	}
	if job.Requestor == "" {
		job.Requestor = "u1"
	}
	if err := f.store.Insert(context.Background(), job); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return job
}

func (f *fixture) reload(t *testing.T, seq int64) *jobs.Job {
	t.Helper()
	job, err := f.store.GetBySeq(context.Background(), seq)
	if err != nil {
		t.Fatalf("GetBySeq failed: %v", err)
	}
	return job
}

// runUntil executes stages for the job until it reaches stop or is deleted.
func (f *fixture) runUntil(t *testing.T, set pipeline.StageSet, seq int64, stop jobs.Stage) *jobs.Job {
	t.Helper()
	for {
		job := f.reload(t, seq)
		if job == nil || job.Stage == stop {
			return job
		}
		handler, ok := set.For(job.Stage)
		if !ok {
			t.Fatalf("no handler for %s", job.Stage)
		}
		if err := handler.Execute(context.Background(), job); err != nil {
			t.Fatalf("%s failed: %v", job.Stage, err)
		}
	}
}
