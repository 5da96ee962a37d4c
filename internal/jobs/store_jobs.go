package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "seq, request_time, raw_request, requestor, format, compression, columns_json, constraints_json, options_json, notify_json, to_harvest_json, current_index, last_id, file_size, filename, stage"

// Insert stores a new job and assigns its sequence number.
func (s *Store) Insert(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.Filename == "" {
		return errors.New("job filename is required")
	}
	if job.Stage == "" {
		job.Stage = StageCreate
	}
	if job.RequestTime.IsZero() {
		job.RequestTime = time.Now().UTC()
	}
	enc, err := encodeFields(job)
	if err != nil {
		return err
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO download_jobs (
            request_time, raw_request, requestor, format, compression,
            columns_json, constraints_json, options_json, notify_json, to_harvest_json,
            current_index, last_id, file_size, filename, stage
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.RequestTime.UTC().Format(time.RFC3339Nano),
		job.RawRequest,
		job.Requestor,
		string(job.Format),
		string(job.Compression),
		enc.columns,
		enc.constraints,
		enc.options,
		enc.notify,
		enc.toHarvest,
		job.CurrentIndex,
		job.LastID,
		job.FileSize,
		job.Filename,
		string(job.Stage),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	job.Seq = seq
	return nil
}

// GetBySeq fetches a job by sequence number. It returns nil, nil when absent.
func (s *Store) GetBySeq(ctx context.Context, seq int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM download_jobs WHERE seq = ?`, seq)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Oldest returns the pending job with the smallest sequence number, or nil, nil
// when the queue is empty.
func (s *Store) Oldest(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM download_jobs ORDER BY seq LIMIT 1`)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("oldest job: %w", err)
	}
	return job, nil
}

// Update persists the mutable progress fields of a job in one statement.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE download_jobs
         SET current_index = ?, last_id = ?, file_size = ?, stage = ?
         WHERE seq = ?`,
		job.CurrentIndex,
		job.LastID,
		job.FileSize,
		string(job.Stage),
		job.Seq,
	)
	if err != nil {
		return fmt.Errorf("update job %d: %w", job.Seq, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update job %d: %w", job.Seq, sql.ErrNoRows)
	}
	return nil
}

// Delete removes a job. It reports whether a row was deleted.
func (s *Store) Delete(ctx context.Context, seq int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM download_jobs WHERE seq = ?`, seq)
	if err != nil {
		return false, fmt.Errorf("delete job %d: %w", seq, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete job rows affected: %w", err)
	}
	return n > 0, nil
}

// List returns all jobs in processing order.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM download_jobs ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Count returns the number of queued jobs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM download_jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

// Filenames returns the filename of every queued job.
func (s *Store) Filenames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT filename FROM download_jobs`)
	if err != nil {
		return nil, fmt.Errorf("list filenames: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("job database connection unavailable")
	}
	return s.db.PingContext(ensureContext(ctx))
}

type encodedFields struct {
	columns     string
	constraints string
	options     string
	notify      string
	toHarvest   string
}

func encodeFields(job *Job) (encodedFields, error) {
	var out encodedFields
	pairs := []struct {
		name  string
		value Value
		dst   *string
	}{
		{"columns", Strings(job.Columns), &out.columns},
		{"constraints", Map(job.Constraints), &out.constraints},
		{"options", Map(job.Options), &out.options},
		{"notify", Strings(job.Notify), &out.notify},
		{"to_harvest", Strings(job.ToHarvest), &out.toHarvest},
	}
	for _, p := range pairs {
		data, err := json.Marshal(p.value)
		if err != nil {
			return out, fmt.Errorf("encode %s: %w", p.name, err)
		}
		*p.dst = string(data)
	}
	return out, nil
}

func decodeStrings(name, raw string) ([]string, error) {
	var v Value
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	items, ok := v.AsStrings()
	if !ok {
		return nil, fmt.Errorf("decode %s: %w: expected list of strings", name, ErrInvalidValue)
	}
	return items, nil
}

func decodeMap(name, raw string) (map[string]Value, error) {
	var v Value
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	m, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("decode %s: %w: expected map", name, ErrInvalidValue)
	}
	return m, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job            Job
		requestTimeRaw string
		format         string
		compression    string
		columnsRaw     string
		constraintsRaw string
		optionsRaw     string
		notifyRaw      string
		toHarvestRaw   string
		stageRaw       string
	)
	if err := scanner.Scan(
		&job.Seq,
		&requestTimeRaw,
		&job.RawRequest,
		&job.Requestor,
		&format,
		&compression,
		&columnsRaw,
		&constraintsRaw,
		&optionsRaw,
		&notifyRaw,
		&toHarvestRaw,
		&job.CurrentIndex,
		&job.LastID,
		&job.FileSize,
		&job.Filename,
		&stageRaw,
	); err != nil {
		return nil, err
	}

	job.Format = Format(format)
	job.Compression = Compression(compression)
	if t, err := time.Parse(time.RFC3339Nano, requestTimeRaw); err == nil {
		job.RequestTime = t
	}
	stage, err := ParseStage(stageRaw)
	if err != nil {
		return nil, fmt.Errorf("job %d: %w", job.Seq, err)
	}
	job.Stage = stage

	if job.Columns, err = decodeStrings("columns", columnsRaw); err != nil {
		return nil, fmt.Errorf("job %d: %w", job.Seq, err)
	}
	if job.Notify, err = decodeStrings("notify", notifyRaw); err != nil {
		return nil, fmt.Errorf("job %d: %w", job.Seq, err)
	}
	if job.ToHarvest, err = decodeStrings("to_harvest", toHarvestRaw); err != nil {
		return nil, fmt.Errorf("job %d: %w", job.Seq, err)
	}
	if job.Constraints, err = decodeMap("constraints", constraintsRaw); err != nil {
		return nil, fmt.Errorf("job %d: %w", job.Seq, err)
	}
	if job.Options, err = decodeMap("options", optionsRaw); err != nil {
		return nil, fmt.Errorf("job %d: %w", job.Seq, err)
	}
	return &job, nil
}
