package jobs_test

import (
	"context"
	"testing"

	"batchdl/internal/jobs"
	"batchdl/internal/testsupport"
)

func newJob(filename string) *jobs.Job {
	return &jobs.Job{
		RawRequest:  "format=csv&column=_id",
		Requestor:   "user-1",
		Format:      jobs.FormatCSV,
		Compression: jobs.CompressionGzip,
		Columns:     []string{"_id", "_mappedTitle"},
		Constraints: map[string]jobs.Value{"status": jobs.Strings([]string{"public"}), "exported": jobs.Bool(true)},
		Options:     map[string]jobs.Value{jobs.OptionConvertTimestamps: jobs.Bool(true)},
		Notify:      []string{"Jane Doe <jane@example.org>"},
		ToHarvest:   []string{"user-1", "user-2"},
		Filename:    filename,
	}
}

func TestInsertAndGetBySeq(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newJob("abcd1234")
	if err := store.Insert(ctx, job); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if job.Seq == 0 {
		t.Fatal("expected sequence to be assigned")
	}
	if job.Stage != jobs.StageCreate {
		t.Fatalf("expected create stage, got %s", job.Stage)
	}

	fetched, err := store.GetBySeq(ctx, job.Seq)
	if err != nil {
		t.Fatalf("GetBySeq failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected job to be found")
	}
	if fetched.Filename != "abcd1234" || fetched.Format != jobs.FormatCSV || fetched.Requestor != "user-1" {
		t.Fatalf("unexpected job: %#v", fetched)
	}
	if len(fetched.Columns) != 2 || fetched.Columns[1] != "_mappedTitle" {
		t.Fatalf("unexpected columns: %v", fetched.Columns)
	}
	if !fetched.Constraints["status"].Equal(jobs.Strings([]string{"public"})) {
		t.Fatalf("unexpected constraints: %v", fetched.Constraints)
	}
	if !fetched.OptionBool(jobs.OptionConvertTimestamps) {
		t.Fatal("expected convertTimestamps option")
	}
	if len(fetched.ToHarvest) != 2 || fetched.ToHarvest[1] != "user-2" {
		t.Fatalf("unexpected owners: %v", fetched.ToHarvest)
	}
	if fetched.RequestTime.IsZero() {
		t.Fatal("expected request time")
	}

	missing, err := store.GetBySeq(ctx, job.Seq+100)
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing job, got %#v, %v", missing, err)
	}
}

func TestOldestFollowsAdmissionOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if job, err := store.Oldest(ctx); err != nil || job != nil {
		t.Fatalf("expected empty queue, got %#v, %v", job, err)
	}
	first := newJob("first")
	second := newJob("second")
	for _, job := range []*jobs.Job{first, second} {
		if err := store.Insert(ctx, job); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	oldest, err := store.Oldest(ctx)
	if err != nil {
		t.Fatalf("Oldest failed: %v", err)
	}
	if oldest.Seq != first.Seq {
		t.Fatalf("expected seq %d, got %d", first.Seq, oldest.Seq)
	}

	if ok, err := store.Delete(ctx, first.Seq); err != nil || !ok {
		t.Fatalf("Delete failed: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, first.Seq); err != nil || ok {
		t.Fatalf("expected second delete to report false, got %v %v", ok, err)
	}
	oldest, err = store.Oldest(ctx)
	if err != nil || oldest == nil || oldest.Seq != second.Seq {
		t.Fatalf("expected second job next, got %#v %v", oldest, err)
	}

	count, err := store.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d %v", count, err)
	}
	names, err := store.Filenames(ctx)
	if err != nil || len(names) != 1 || names[0] != "second" {
		t.Fatalf("unexpected filenames %v %v", names, err)
	}
}

func TestUpdatePersistsProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newJob("progress")
	if err := store.Insert(ctx, job); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	job.Stage = jobs.StageHarvest
	job.CurrentIndex = 1
	job.LastID = "ark:/13030/fk4zz"
	job.FileSize = 4096
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetBySeq(ctx, job.Seq)
	if err != nil {
		t.Fatalf("GetBySeq failed: %v", err)
	}
	if fetched.Stage != jobs.StageHarvest || fetched.CurrentIndex != 1 || fetched.LastID != "ark:/13030/fk4zz" || fetched.FileSize != 4096 {
		t.Fatalf("unexpected progress: %#v", fetched)
	}

	ghost := newJob("ghost")
	ghost.Seq = 9999
	if err := store.Update(ctx, ghost); err == nil {
		t.Fatal("expected error updating missing job")
	}
}

func TestInsertRejectsDuplicateFilename(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.Insert(ctx, newJob("dup")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, newJob("dup")); err == nil {
		t.Fatal("expected unique constraint error")
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %#v", health)
	}
}
