// Package api defines the wire-format types shared by the daemon HTTP server
// and the batchdl CLI. It translates job records and worker status into
// transport-friendly DTOs so clients never depend on internal types.
//
// # Key Types
//
// JobView: transport representation of a queued download job, including
// harvest progress and the encoded constraints.
//
// WorkflowStatus: worker running state, generation, queue length, stage
// health, and the last job dispatched.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Stages, formats, and compression modes are
// exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
// Constraints are passed through as json.RawMessage in the same encoding the
// job store persists.
package api
