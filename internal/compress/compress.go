// Package compress turns a finished work file into its archive using the
// system gzip and zip tools.
package compress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"batchdl/internal/config"
	"batchdl/internal/jobs"
)

var commandContext = exec.CommandContext

// Compressor writes the compressed form of input to output.
type Compressor interface {
	Compress(ctx context.Context, input, output string) error
}

// Gzip streams the input through a gzip-compatible filter.
type Gzip struct {
	Command string
}

// Compress runs the command with stdin bound to input and stdout to output.
// Any stderr output counts as failure.
func (g Gzip) Compress(ctx context.Context, input, output string) error {
	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	var stderr bytes.Buffer
	cmd := commandContext(ctx, binary(g.Command, "gzip")) //nolint:gosec
	cmd.Stdin = in
	cmd.Stdout = out
	cmd.Stderr = &stderr
	cmd.Env = []string{}

	runErr := cmd.Run()
	if err := checkResult("gzip", runErr, stderr.String()); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("fsync output: %w", err)
	}
	return nil
}

// Zip archives the input as a single junk-path entry.
type Zip struct {
	Command string
}

// Compress runs "zip -jq output input". Any console output counts as failure.
func (z Zip) Compress(ctx context.Context, input, output string) error {
	var combined bytes.Buffer
	cmd := commandContext(ctx, binary(z.Command, "zip"), "-jq", output, input) //nolint:gosec
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	cmd.Env = []string{}
	return checkResult("zip", cmd.Run(), combined.String())
}

// Set selects a compressor per job compression type.
type Set struct {
	Gzip Compressor
	Zip  Compressor
}

// NewSet builds the executable compressors named in cfg.
func NewSet(cfg *config.Config) Set {
	return Set{
		Gzip: Gzip{Command: cfg.Download.GzipCommand},
		Zip:  Zip{Command: cfg.Download.ZipCommand},
	}
}

// For returns the compressor for mode.
func (s Set) For(mode jobs.Compression) (Compressor, error) {
	var c Compressor
	switch mode {
	case jobs.CompressionGzip:
		c = s.Gzip
	case jobs.CompressionZip:
		c = s.Zip
	default:
		return nil, fmt.Errorf("unsupported compression %q", mode)
	}
	if c == nil {
		return nil, fmt.Errorf("no compressor configured for %s", mode)
	}
	return c, nil
}

// Binaries returns the executables the set depends on.
func (s Set) Binaries() []string {
	var out []string
	if g, ok := s.Gzip.(Gzip); ok {
		out = append(out, binary(g.Command, "gzip"))
	}
	if z, ok := s.Zip.(Zip); ok {
		out = append(out, binary(z.Command, "zip"))
	}
	return out
}

func binary(command, fallback string) string {
	if c := strings.TrimSpace(command); c != "" {
		return c
	}
	return fallback
}

func checkResult(tool string, runErr error, raw string) error {
	output := strings.TrimSpace(raw)
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			if output != "" {
				return fmt.Errorf("%s exited with status %d: %s", tool, exitErr.ExitCode(), output)
			}
			return fmt.Errorf("%s exited with status %d", tool, exitErr.ExitCode())
		}
		return fmt.Errorf("run %s: %w", tool, runErr)
	}
	if raw != "" {
		return fmt.Errorf("%s reported: %q", tool, output)
	}
	return nil
}
