// Package deps reports whether the external tools batchdl shells out to are
// installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"batchdl/internal/config"
)

// Requirement defines an external binary the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the compression tools configured in cfg. The tool for
// the default compression is required; the other is optional because only
// jobs that ask for it use it.
func Requirements(cfg *config.Config) []Requirement {
	gzipCmd := strings.TrimSpace(cfg.Download.GzipCommand)
	zipCmd := strings.TrimSpace(cfg.Download.ZipCommand)
	defaultZip := strings.EqualFold(cfg.Download.DefaultCompression, "zip")
	return []Requirement{
		{Name: "gzip", Command: gzipCmd, Description: "Compresses gzip downloads", Optional: defaultZip},
		{Name: "zip", Command: zipCmd, Description: "Compresses zip downloads", Optional: !defaultZip},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if resolved, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
				status.Command = resolved
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
