// Package daemon coordinates the long-running batchdl process.
//
// It wires configuration, the job store, the request encoder, and the stage
// processor into a single lifecycle with flock-based locking to prevent
// multiple instances per data directory. The daemon serves the HTTP surface
// (download requests, published files, status, and queue views), prunes
// published downloads past their retention period, and applies configuration
// reloads by restarting the worker generation.
//
// Keep orchestration logic here: stage behaviour lives in internal/pipeline
// and the worker loop in internal/workflow.
package daemon
