package pipeline

import (
	"path/filepath"
	"strings"

	"batchdl/internal/config"
	"batchdl/internal/jobs"
)

// SidecarExtension names the audit file written beside each published download.
const SidecarExtension = ".request"

// Layout maps a job to the files it owns.
type Layout struct {
	WorkDir   string
	PublicDir string
}

// NewLayout reads the working and public directories from cfg.
func NewLayout(cfg *config.Config) Layout {
	return Layout{WorkDir: cfg.Paths.WorkDir, PublicDir: cfg.Paths.PublicDir}
}

// WorkFile is the uncompressed file records are harvested into.
func (l Layout) WorkFile(job *jobs.Job) string {
	return filepath.Join(l.WorkDir, job.Filename+"."+job.Format.Extension())
}

// CompressedFile is the archive produced in the working directory.
func (l Layout) CompressedFile(job *jobs.Job) string {
	return filepath.Join(l.WorkDir, job.Filename+"."+job.Suffix())
}

// PublicFile is the published download.
func (l Layout) PublicFile(job *jobs.Job) string {
	return filepath.Join(l.PublicDir, job.Filename+"."+job.Suffix())
}

// Sidecar is the audit record of who requested the download.
func (l Layout) Sidecar(job *jobs.Job) string {
	return filepath.Join(l.PublicDir, job.Filename+SidecarExtension)
}

// DownloadURL returns the public URL of a download.
func DownloadURL(baseURL, filename, suffix string) string {
	return strings.TrimRight(baseURL, "/") + "/download/" + filename + "." + suffix
}
