package submission_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"batchdl/internal/filenames"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/registry"
	"batchdl/internal/submission"
	"batchdl/internal/testsupport"
)

type fixture struct {
	store   *jobs.Store
	reg     *registry.Store
	encoder *submission.Encoder
	alice   registry.User
	bob     registry.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	f := &fixture{
		store: store,
		reg:   reg,
		alice: registry.User{ID: "ark:/99166/alice", Username: "alice", Group: "lab", GroupAdmin: true},
		bob:   registry.User{ID: "ark:/99166/bob", Username: "bob", Group: "lab"},
	}
	for _, u := range []registry.User{f.alice, f.bob, {ID: "ark:/99166/carol", Username: "carol", Group: "other"}, {ID: "anon", Username: registry.AnonymousName}} {
		if err := reg.AddUser(ctx, u); err != nil {
			t.Fatalf("AddUser failed: %v", err)
		}
	}
	for _, g := range []registry.Group{{ID: "g1", Name: "lab"}, {ID: "g2", Name: "other"}} {
		if err := reg.AddGroup(ctx, g); err != nil {
			t.Fatalf("AddGroup failed: %v", err)
		}
	}
	f.encoder = submission.NewEncoder(cfg, store, reg, filenames.New(cfg.Download.SecretKey), logging.NewNop())
	return f
}

func values(pairs ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Add(pairs[i], pairs[i+1])
	}
	return v
}

func TestSubmitRejectsInvalidRequests(t *testing.T) {
	cases := []struct {
		name   string
		params url.Values
		want   string
	}{
		{"invalid status", values("format", "csv", "column", "_id", "status", "bogus"), "error: bad request - parameter 'status': invalid parameter value"},
		{"unknown parameter", values("format", "csv", "bad\tname", "x"), "error: bad request - invalid parameter: bad name"},
		{"not repeatable", values("format", "csv", "format", "xml"), "error: bad request - parameter is not repeatable: format"},
		{"empty column", values("format", "csv", "column", "  "), "error: bad request - parameter 'column': empty value"},
		{"bad timestamp", values("format", "anvl", "createdAfter", "yesterday"), "error: bad request - parameter 'createdAfter': invalid timestamp"},
		{"bad boolean", values("format", "anvl", "crossref", "true"), "error: bad request - parameter 'crossref': invalid parameter value"},
		{"padded format", values("format", " anvl "), "error: bad request - parameter 'format': invalid parameter value"},
		{"padded status", values("format", "anvl", "status", "public\t"), "error: bad request - parameter 'status': invalid parameter value"},
		{"padded boolean", values("format", "anvl", "exported", "yes "), "error: bad request - parameter 'exported': invalid parameter value"},
		{"no such user", values("format", "anvl", "owner", "nobody"), "error: bad request - parameter 'owner': no such user"},
		{"anonymous owner", values("format", "anvl", "owner", registry.AnonymousName), "error: bad request - parameter 'owner': no such user"},
		{"no such group", values("format", "anvl", "ownergroup", "nobody"), "error: bad request - parameter 'ownergroup': no such group"},
		{"missing format", values("column", "_id"), "error: bad request - missing required parameter: format"},
		{"csv without columns", values("format", "csv"), "error: bad request - format 'csv' requires at least one column"},
		{"columns with xml", values("format", "xml", "column", "_id"), "error: bad request - parameter is incompatible with format: column"},
		{"sorted precedence", values("type", "bogus", "compression", "rar", "format", "csv"), "error: bad request - parameter 'compression': invalid parameter value"},
		{"forbidden owner", values("format", "anvl", "owner", "carol"), "error: forbidden"},
		{"forbidden group", values("format", "anvl", "ownergroup", "other"), "error: forbidden"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			resp := f.encoder.Submit(context.Background(), f.alice, tc.params)
			if got := resp.String(); got != tc.want {
				t.Fatalf("Submit = %q, want %q", got, tc.want)
			}
			if n, err := f.encoder.QueueLength(context.Background()); err != nil || n != 0 {
				t.Fatalf("expected no job created, got %d (%v)", n, err)
			}
		})
	}
}

func TestSubmitQueuesJob(t *testing.T) {
	f := newFixture(t)
	params := values(
		"format", "csv",
		"column", "_id",
		"column", "_mappedTitle",
		"owner", "bob",
		"ownergroup", "lab",
		"createdAfter", "2020-01-01T00:00:00Z",
		"updatedBefore", "1700000000",
		"status", "public",
		"status", "unavailable",
		"permanence", "real",
		"exported", "yes",
		"convertTimestamps", "yes",
		"notify", "Jane Doe <jane@example.org>",
	)
	resp := f.encoder.Submit(context.Background(), f.alice, params)
	if resp.Status != submission.StatusSuccess {
		t.Fatalf("expected success, got %q", resp.String())
	}
	if !strings.HasPrefix(resp.String(), "success: https://ezid.example.org/download/") || !strings.HasSuffix(resp.URL, ".csv.gz") {
		t.Fatalf("unexpected response %q", resp.String())
	}

	job, err := f.store.GetBySeq(context.Background(), resp.Seq)
	if err != nil || job == nil {
		t.Fatalf("GetBySeq failed: %v", err)
	}
	if job.Stage != jobs.StageCreate || job.Requestor != f.alice.ID || job.Compression != jobs.CompressionGzip {
		t.Fatalf("unexpected job header: %+v", job)
	}
	if strings.Join(job.ToHarvest, ",") != "ark:/99166/bob,ark:/99166/alice" {
		t.Fatalf("unexpected owners %v", job.ToHarvest)
	}
	if strings.Join(job.Columns, ",") != "_id,_mappedTitle" {
		t.Fatalf("unexpected columns %v", job.Columns)
	}
	if !strings.HasSuffix(resp.URL, job.Filename+".csv.gz") {
		t.Fatalf("url %q does not name job file %q", resp.URL, job.Filename)
	}
	if v, _ := job.Constraints["createdAfter"].AsInt(); v != 1577836800 {
		t.Fatalf("unexpected createdAfter %d", v)
	}
	if v, _ := job.Constraints["updatedBefore"].AsInt(); v != 1700000000 {
		t.Fatalf("unexpected updatedBefore %d", v)
	}
	if !job.Constraints["status"].Equal(jobs.Strings([]string{"public", "unavailable"})) {
		t.Fatalf("unexpected status constraint %v", job.Constraints["status"])
	}
	if b, _ := job.Constraints["exported"].AsBool(); !b {
		t.Fatal("expected exported constraint true")
	}
	if _, ok := job.Constraints["convertTimestamps"]; ok {
		t.Fatal("convertTimestamps must be an option, not a constraint")
	}
	if !job.OptionBool(jobs.OptionConvertTimestamps) {
		t.Fatal("expected convertTimestamps option")
	}
	if len(job.Notify) != 1 || job.Notify[0] != "Jane Doe <jane@example.org>" {
		t.Fatalf("unexpected notify %v", job.Notify)
	}
	if job.RawRequest != params.Encode() {
		t.Fatalf("unexpected raw request %q", job.RawRequest)
	}
}

func TestSubmitDefaults(t *testing.T) {
	f := newFixture(t)
	resp := f.encoder.Submit(context.Background(), f.bob, values("format", "xml", "compression", "zip"))
	if resp.Status != submission.StatusSuccess || !strings.HasSuffix(resp.URL, ".zip") {
		t.Fatalf("unexpected response %q", resp.String())
	}
	job, _ := f.store.GetBySeq(context.Background(), resp.Seq)
	if len(job.ToHarvest) != 1 || job.ToHarvest[0] != f.bob.ID {
		t.Fatalf("expected requestor as default owner, got %v", job.ToHarvest)
	}
	if len(job.Columns) != 0 || len(job.Notify) != 0 || len(job.Constraints) != 0 {
		t.Fatalf("expected empty defaults, got %+v", job)
	}
	if job.OptionBool(jobs.OptionConvertTimestamps) {
		t.Fatal("expected convertTimestamps false by default")
	}

	second := f.encoder.Submit(context.Background(), f.bob, values("format", "anvl"))
	if second.Seq <= resp.Seq {
		t.Fatalf("expected increasing sequence, got %d after %d", second.Seq, resp.Seq)
	}
	if n, _ := f.encoder.QueueLength(context.Background()); n != 2 {
		t.Fatalf("expected queue length 2, got %d", n)
	}
}

type failingQueue struct{}

func (failingQueue) Insert(context.Context, *jobs.Job) error { return errors.New("disk full") }
func (failingQueue) Count(context.Context) (int, error)     { return 0, nil }

func TestSubmitInternalError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	encoder := submission.NewEncoder(cfg, failingQueue{}, reg, filenames.New("s"), logging.NewNop())
	resp := encoder.Submit(context.Background(), registry.User{ID: "u1", Username: "u"}, values("format", "anvl"))
	if resp.String() != "error: internal server error" {
		t.Fatalf("unexpected response %q", resp.String())
	}
}

func TestReconfigureChangesDefaults(t *testing.T) {
	f := newFixture(t)
	cfg := testsupport.NewConfig(t)
	cfg.Server.BaseURL = "https://other.example.org"
	cfg.Download.DefaultCompression = "zip"
	f.encoder.Reconfigure(cfg)

	resp := f.encoder.Submit(context.Background(), f.bob, values("format", "anvl"))
	if !strings.HasPrefix(resp.URL, "https://other.example.org/download/") || !strings.HasSuffix(resp.URL, ".zip") {
		t.Fatalf("unexpected url %q", resp.URL)
	}
}
