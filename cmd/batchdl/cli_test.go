package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"batchdl/internal/config"
	"batchdl/internal/testsupport"
)

const passthroughGzip = "while IFS= read -r line; do printf '%s\\n' \"$line\"; done\n"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithScript("gzip", passthroughGzip), testsupport.WithStubbedBinaries("zip"))
	env := &cliTestEnv{cfg: cfg, configPath: filepath.Join(testsupport.BaseDir(cfg), "config.toml")}
	env.writeConfig(t)
	return env
}

func (e *cliTestEnv) writeConfig(t *testing.T) {
	t.Helper()
	data, err := toml.Marshal(e.cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(e.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", e.configPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v failed: %v\nstderr: %s", args, err, stderr)
	}
	return out
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func seedRegistry(t *testing.T, env *cliTestEnv) {
	t.Helper()
	env.mustRun(t, "registry", "add-group", "g1", "lab")
	out := env.mustRun(t, "registry", "add-user", "ark:/99166/alice", "alice", "--group", "lab", "--group-admin")
	requireContains(t, out, "User alice saved")
	env.mustRun(t, "registry", "add-user", "ark:/99166/bob", "bob", "--group", "lab")

	records := strings.Join([]string{
		`{"identifier":"ark:/13030/a","owner":"ark:/99166/alice","metadata":{"_p":"erc","erc.what":"Alpha"}}`,
		`{"identifier":"ark:/13030/b","owner":"ark:/99166/bob","metadata":{"_p":"erc","erc.what":"Beta"}}`,
	}, "\n")
	importPath := filepath.Join(testsupport.BaseDir(env.cfg), "records.jsonl")
	if err := os.WriteFile(importPath, []byte(records), 0o644); err != nil {
		t.Fatalf("write import file: %v", err)
	}
	requireContains(t, env.mustRun(t, "registry", "import", importPath), "Imported 2 record(s)")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	requireContains(t, env.mustRun(t, "config", "validate"), "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	requireContains(t, env.mustRun(t, "config", "init", "--path", target), "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestSubmitProcessAndQueue(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRegistry(t, env)

	out := env.mustRun(t, "submit", "--user", "alice", "format=csv", "column=_id", "column=_mappedTitle", "ownergroup=lab")
	requireContains(t, out, "success: https://ezid.example.org/download/")
	url := strings.TrimSpace(strings.TrimPrefix(out, "success: "))
	published := filepath.Join(env.cfg.Paths.PublicDir, filepath.Base(url))

	if got := strings.TrimSpace(env.mustRun(t, "queue", "length")); got != "1" {
		t.Fatalf("expected queue length 1, got %q", got)
	}
	list := env.mustRun(t, "queue", "list")
	requireContains(t, list, strings.TrimSuffix(filepath.Base(url), ".csv.gz"))
	requireContains(t, list, "create")

	requireContains(t, env.mustRun(t, "process"), "Processed 1 job(s)")
	data, err := os.ReadFile(published)
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	want := "_id,_mappedTitle\r\nark:/13030/a,Alpha\r\nark:/13030/b,Beta\r\n"
	if strings.ReplaceAll(string(data), "\r", "") != strings.ReplaceAll(want, "\r", "") {
		t.Fatalf("unexpected published contents %q", data)
	}
	requireContains(t, env.mustRun(t, "queue", "list"), "Queue is empty")

	sidecar, err := os.ReadFile(strings.TrimSuffix(published, ".csv.gz") + ".request")
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if string(sidecar) != "alice\nformat=csv&column=_id&column=_mappedTitle&ownergroup=lab\n" {
		t.Fatalf("unexpected sidecar %q", sidecar)
	}
}

func TestSubmitRejectsBadRequest(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRegistry(t, env)

	out, _, err := env.run(t, "submit", "--user", "alice", "format=csv")
	if err == nil {
		t.Fatal("expected rejected request to fail")
	}
	requireContains(t, out, "error: bad request - format 'csv' requires at least one column")

	if _, _, err := env.run(t, "submit", "--user", "nobody", "format=anvl"); err == nil {
		t.Fatal("expected unknown user to fail")
	}
	if _, _, err := env.run(t, "submit", "--user", "alice", "format"); err == nil {
		t.Fatal("expected malformed parameter to fail")
	}
}

func TestQueueRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRegistry(t, env)
	env.mustRun(t, "submit", "--user", "bob", "format=anvl")

	requireContains(t, env.mustRun(t, "queue", "remove", "1", "99"), "Removed job 1")
	if got := strings.TrimSpace(env.mustRun(t, "queue", "length")); got != "0" {
		t.Fatalf("expected empty queue, got %q", got)
	}
	if _, _, err := env.run(t, "queue", "remove", "abc"); err == nil {
		t.Fatal("expected invalid sequence to fail")
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "status")
	requireContains(t, out, "not running")
	requireContains(t, out, "0 job(s)")
	requireContains(t, out, "== Stages ==")
	requireContains(t, out, "gzip")
}

func TestLogsPrintsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.cfg.Paths.LogDir, "batchdl.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	out := env.mustRun(t, "logs", "-n", "2")
	if out != "two\nthree\n" {
		t.Fatalf("unexpected logs output %q", out)
	}
}

func TestTestNotify(t *testing.T) {
	env := setupCLITestEnv(t)
	requireContains(t, env.mustRun(t, "test-notify"), "Notification not sent")

	bodies := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies <- r.Header.Get("Title") + "|" + string(data)
	}))
	defer server.Close()

	env.cfg.Notifications.NtfyTopic = server.URL
	env.writeConfig(t)
	requireContains(t, env.mustRun(t, "test-notify"), "Test notification sent")
	got := <-bodies
	if !strings.HasSuffix(got, "- Test|Notification system test") {
		t.Fatalf("unexpected ntfy request %q", got)
	}
}
