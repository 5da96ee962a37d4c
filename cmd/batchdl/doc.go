// Command batchdl runs and administers the batch download pipeline.
//
// "batchdl daemon" serves download requests and runs the worker. The other
// subcommands operate on the local job store and registry directly, so they
// work whether or not the daemon is running; "batchdl status" prefers the
// daemon's HTTP API when it is reachable.
package main
