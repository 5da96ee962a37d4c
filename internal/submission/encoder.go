package submission

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"batchdl/internal/config"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/pipeline"
	"batchdl/internal/registry"
)

// Queue stores admitted jobs.
type Queue interface {
	Insert(ctx context.Context, job *jobs.Job) error
	Count(ctx context.Context) (int, error)
}

// Directory resolves users and groups named in a request.
type Directory interface {
	UserByUsername(ctx context.Context, username string) (*registry.User, error)
	GroupByName(ctx context.Context, name string) (*registry.Group, error)
	GroupMembers(ctx context.Context, name string) ([]registry.User, error)
}

// Allocator issues unique download filenames.
type Allocator interface {
	Allocate(requestor string) string
}

// Encoder turns validated requests into queued jobs. It is safe for
// concurrent use by HTTP handlers.
type Encoder struct {
	queue  Queue
	dir    Directory
	names  Allocator
	logger *slog.Logger

	mu                 sync.RWMutex
	baseURL            string
	defaultCompression jobs.Compression
}

// NewEncoder constructs an encoder using the server and download settings in cfg.
func NewEncoder(cfg *config.Config, queue Queue, dir Directory, names Allocator, logger *slog.Logger) *Encoder {
	e := &Encoder{
		queue:  queue,
		dir:    dir,
		names:  names,
		logger: logging.NewComponentLogger(logger, "submission"),
	}
	e.Reconfigure(cfg)
	return e
}

// Reconfigure applies reloaded settings to future submissions.
func (e *Encoder) Reconfigure(cfg *config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.baseURL = cfg.Server.BaseURL
	e.defaultCompression = jobs.Compression(cfg.Download.DefaultCompression)
	if e.defaultCompression == "" {
		e.defaultCompression = jobs.CompressionGzip
	}
}

// QueueLength returns the number of jobs waiting or in progress.
func (e *Encoder) QueueLength(ctx context.Context) (int, error) {
	return e.queue.Count(ctx)
}

// Submit validates params on behalf of requestor and enqueues a job. The
// recorded raw request is params in encoded, key-sorted form.
func (e *Encoder) Submit(ctx context.Context, requestor registry.User, params url.Values) Response {
	return e.submit(ctx, requestor, params, params.Encode())
}

// SubmitEncoded parses a form-encoded request body and submits it, keeping
// raw byte-for-byte as the job's recorded request.
func (e *Encoder) SubmitEncoded(ctx context.Context, requestor registry.User, raw string) Response {
	params, err := url.ParseQuery(raw)
	if err != nil {
		return badRequest("malformed form body")
	}
	return e.submit(ctx, requestor, params, raw)
}

func (e *Encoder) submit(ctx context.Context, requestor registry.User, params url.Values, raw string) Response {
	logger := logging.WithContext(ctx, e.logger)

	validated, resp, err := e.validate(ctx, params)
	if err != nil {
		return e.internal(logger, "validate request", err)
	}
	if resp != nil {
		return *resp
	}

	formatValues, ok := validated["format"]
	if !ok {
		return badRequest("missing required parameter: format")
	}
	format := jobs.Format(mustString(formatValues[0]))

	e.mu.RLock()
	baseURL := e.baseURL
	compression := e.defaultCompression
	e.mu.RUnlock()
	if v, ok := validated["compression"]; ok {
		compression = jobs.Compression(mustString(v[0]))
	}

	columns := stringsOf(validated["column"])
	switch {
	case format == jobs.FormatCSV && len(columns) == 0:
		return badRequest("format 'csv' requires at least one column")
	case format != jobs.FormatCSV && len(columns) > 0:
		return badRequest("parameter is incompatible with format: column")
	}
	if columns == nil {
		columns = []string{}
	}

	toHarvest, allowed, err := e.owners(ctx, requestor, validated)
	if err != nil {
		return e.internal(logger, "expand owner groups", err)
	}
	if !allowed {
		return forbidden
	}

	notify := stringsOf(validated["notify"])
	if notify == nil {
		notify = []string{}
	}
	convert := false
	if v, ok := validated["convertTimestamps"]; ok {
		convert, _ = v[0].value.AsBool()
	}

	job := &jobs.Job{
		RawRequest:  raw,
		Requestor:   requestor.ID,
		Format:      format,
		Compression: compression,
		Columns:     columns,
		Constraints: constraints(validated),
		Options:     map[string]jobs.Value{jobs.OptionConvertTimestamps: jobs.Bool(convert)},
		Notify:      notify,
		ToHarvest:   toHarvest,
		Filename:    e.names.Allocate(requestor.ID),
		Stage:       jobs.StageCreate,
	}
	if err := e.queue.Insert(ctx, job); err != nil {
		return e.internal(logger, "insert job", err)
	}

	downloadURL := pipeline.DownloadURL(baseURL, job.Filename, job.Suffix())
	logger.Info("download request queued",
		logging.String(logging.FieldEventType, "request_queued"),
		logging.Int64(logging.FieldJobSeq, job.Seq),
		logging.String(logging.FieldFilename, job.Filename),
		logging.String("requestor", requestor.Username),
		logging.Int("owners", len(toHarvest)),
	)
	return Response{Status: StatusSuccess, URL: downloadURL, Seq: job.Seq}
}

func (e *Encoder) validate(ctx context.Context, params url.Values) (map[string][]parsed, *Response, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	validated := make(map[string][]parsed, len(names))
	for _, name := range names {
		values := params[name]
		if len(values) == 0 {
			continue
		}
		spec, ok := paramTable[name]
		if !ok {
			r := badRequest("invalid parameter: " + strings.Join(strings.Fields(name), " "))
			return nil, &r, nil
		}
		if !spec.repeatable && len(values) > 1 {
			r := badRequest("parameter is not repeatable: " + name)
			return nil, &r, nil
		}
		for _, raw := range values {
			p, reason, err := spec.validate(ctx, e.dir, raw)
			if err != nil {
				return nil, nil, fmt.Errorf("parameter %s: %w", name, err)
			}
			if reason != "" {
				r := badRequest(fmt.Sprintf("parameter '%s': %s", name, reason))
				return nil, &r, nil
			}
			validated[name] = append(validated[name], p)
		}
	}
	return validated, nil, nil
}

// owners authorizes explicit owners and groups and returns the identifiers
// to harvest in request order without duplicates.
func (e *Encoder) owners(ctx context.Context, requestor registry.User, validated map[string][]parsed) ([]string, bool, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, p := range validated["owner"] {
		if !registry.CanDownloadOwner(requestor, *p.user) {
			return nil, false, nil
		}
		add(p.user.ID)
	}
	for _, p := range validated["ownergroup"] {
		if !registry.CanDownloadGroup(requestor, *p.group) {
			return nil, false, nil
		}
		members, err := e.dir.GroupMembers(ctx, p.group.Name)
		if err != nil {
			return nil, false, err
		}
		for _, m := range members {
			add(m.ID)
		}
	}
	if len(out) == 0 {
		out = []string{requestor.ID}
	}
	return out, true, nil
}

func (e *Encoder) internal(logger *slog.Logger, operation string, err error) Response {
	logging.ErrorWithContext(logger, "download request failed", "request_failed",
		logging.String("operation", operation),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the job and registry databases"),
		logging.String(logging.FieldImpact, "request rejected with internal server error"),
	)
	return internalError
}

var constraintParams = []string{
	"createdAfter", "createdBefore", "updatedAfter", "updatedBefore",
	"crossref", "exported", "permanence",
}

var setParams = []string{"profile", "status", "type"}

func constraints(validated map[string][]parsed) map[string]jobs.Value {
	out := make(map[string]jobs.Value)
	for _, name := range constraintParams {
		if v, ok := validated[name]; ok {
			out[name] = v[0].value
		}
	}
	for _, name := range setParams {
		if v, ok := validated[name]; ok {
			out[name] = jobs.Strings(stringsOf(v))
		}
	}
	return out
}

func stringsOf(values []parsed) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, mustString(v))
	}
	return out
}

func mustString(p parsed) string {
	s, _ := p.value.AsString()
	return s
}
