// Package daemonrun wires configuration, storage, the stage processor, and the
// daemon into a running process with signal handling and configuration reload.
package daemonrun
