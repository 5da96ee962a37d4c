// Package logs reads the daemon's run logs for the `batchdl logs` command.
//
// Last prints the trailing lines of a file with bounded memory. Follow then
// polls from the returned offset and restarts from the top when the file is
// truncated or replaced by a new run.
package logs
