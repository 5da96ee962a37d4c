// Package services defines shared utilities consumed by the download pipeline
// stage handlers.
//
// Key responsibilities:
//   - Context helpers that stamp job sequence numbers, stage names, worker
//     generations, and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so stage failures carry a
//     category and an operator hint.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
