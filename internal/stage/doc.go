// Package stage defines the contract between the stage processor and the
// pipeline handlers, plus the generation tokens used for cooperative
// cancellation.
package stage
