// Package preflight provides readiness checks for the filesystem paths and
// external services batchdl depends on.
//
// The pipeline handlers use CheckDirectoryAccess for their health reports,
// and the CLI "batchdl status" command runs RunAll to display every check.
package preflight
