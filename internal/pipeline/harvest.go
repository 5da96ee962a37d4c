package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"batchdl/internal/filter"
	"batchdl/internal/formats"
	"batchdl/internal/jobs"
	"batchdl/internal/logging"
	"batchdl/internal/mapping"
	"batchdl/internal/services"
	"batchdl/internal/stage"
)

// Harvester appends every matching record of each owner to the work file,
// checkpointing after each page.
type Harvester struct {
	base
	source     Source
	pageSize   int
	classifier *mapping.Classifier
}

func (h *Harvester) Execute(ctx context.Context, job *jobs.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	path := h.layout.WorkFile(job)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return h.fail(services.ErrNotFound, job, "stat work file", err)
		}
		return h.fail(services.ErrStorage, job, "stat work file", err)
	}
	if info.Size() < job.FileSize {
		return h.fail(services.ErrStorage, job, "verify work file",
			fmt.Errorf("work file is short: %d bytes on disk, %d checkpointed", info.Size(), job.FileSize))
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return h.fail(services.ErrStorage, job, "open work file", err)
	}
	defer file.Close()
	if err := file.Truncate(job.FileSize); err != nil {
		return h.fail(services.ErrStorage, job, "truncate work file", err)
	}
	if _, err := file.Seek(job.FileSize, io.SeekStart); err != nil {
		return h.fail(services.ErrStorage, job, "seek work file", err)
	}

	writer, err := formats.New(job.Format, job.Columns)
	if err != nil {
		return h.fail(services.ErrValidation, job, "select format", err)
	}
	out := formats.NewOutput(file, job.FileSize)
	convert := job.OptionBool(jobs.OptionConvertTimestamps)

	start := job.CurrentIndex
	for i := start; i < len(job.ToHarvest); i++ {
		if i > start {
			job.CurrentIndex = i
			job.LastID = ""
			if err := h.save(ctx, job); err != nil {
				return err
			}
		}
		owner := job.ToHarvest[i]
		written, err := h.harvestOwner(ctx, job, owner, writer, out, convert)
		if err != nil {
			return err
		}
		logger.Info("owner harvested",
			logging.String(logging.FieldEventType, "owner_harvested"),
			logging.String("owner", owner),
			logging.Int("records_written", written),
		)
	}

	if err := stage.Checkpoint(ctx); err != nil {
		return err
	}
	if err := writer.Epilogue(out); err != nil {
		return h.fail(services.ErrStorage, job, "write epilogue", err)
	}
	if err := out.Sync(); err != nil {
		return h.fail(services.ErrStorage, job, "sync work file", err)
	}
	job.FileSize = out.Offset()
	return h.advance(ctx, job, jobs.StageCompress)
}

func (h *Harvester) harvestOwner(ctx context.Context, job *jobs.Job, owner string, writer formats.Writer, out *formats.Output, convert bool) (int, error) {
	written := 0
	for {
		if err := stage.Checkpoint(ctx); err != nil {
			return written, err
		}
		page, err := h.source.Harvest(ctx, owner, job.LastID, h.pageSize)
		if err != nil {
			return written, h.fail(services.ErrStorage, job, "harvest "+owner, err)
		}
		if len(page) == 0 {
			return written, nil
		}
		for _, rec := range page {
			if err := stage.Checkpoint(ctx); err != nil {
				return written, err
			}
			record := mapping.Normalize(rec.Metadata)
			if !filter.Matches(rec.Identifier, record, job.Constraints, h.classifier) {
				continue
			}
			if convert {
				mapping.ConvertTimestamps(record)
			}
			if err := writer.Record(out, rec.Identifier, record); err != nil {
				return written, h.fail(services.ErrStorage, job, "write record", err)
			}
			written++
		}
		if err := stage.Checkpoint(ctx); err != nil {
			return written, err
		}
		if err := out.Sync(); err != nil {
			return written, h.fail(services.ErrStorage, job, "sync work file", err)
		}
		job.LastID = page[len(page)-1].Identifier
		job.FileSize = out.Offset()
		if err := h.save(ctx, job); err != nil {
			return written, err
		}
	}
}

func (h *Harvester) HealthCheck(context.Context) stage.Health {
	if h.source == nil {
		return stage.Unhealthy(string(h.name), "identifier source not configured")
	}
	return directoryHealth(string(h.name), "Work directory", h.layout.WorkDir)
}
