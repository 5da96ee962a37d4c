// Package workflow drives queued download jobs through the pipeline stages.
//
// A Processor runs a single worker loop per generation. The loop polls the
// job store for the oldest job, dispatches it to the handler for its stage,
// and polls again immediately on success. When the queue is empty, or after
// a failure, it sleeps for download.idle_sleep before polling again. Failed
// jobs stay at their stage and are retried indefinitely; operators receive an
// alert whenever the failure message changes.
//
// Restart begins a new generation, which retires the running loop at its
// next checkpoint, so configuration reloads never run two workers against the
// same job. Drain runs the same dispatch logic on the caller's goroutine until
// the queue is empty and backs the "batchdl process" command.
package workflow
