// Package pipeline implements the six download stages.
//
// Each handler performs one stage for a job and persists the job's next stage
// before returning. Handlers call stage.Checkpoint between units of work and
// return stage.ErrCancelled, without persisting anything, once their worker
// generation is retired. Failures are wrapped with services.Wrap and leave the
// job at its current stage so the processor retries it.
//
//	create -> harvest -> compress -> delete -> move -> notify -> (record deleted)
package pipeline
