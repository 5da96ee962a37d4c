package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Stage is a job's current pipeline phase. Stages advance strictly forward.
type Stage string

const (
	StageCreate   Stage = "create"
	StageHarvest  Stage = "harvest"
	StageCompress Stage = "compress"
	StageDelete   Stage = "delete"
	StageMove     Stage = "move"
	StageNotify   Stage = "notify"
)

var stageOrder = []Stage{StageCreate, StageHarvest, StageCompress, StageDelete, StageMove, StageNotify}

// Stages returns every stage in pipeline order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ParseStage converts a stored stage name into a Stage.
func ParseStage(raw string) (Stage, error) {
	candidate := Stage(strings.ToLower(strings.TrimSpace(raw)))
	for _, stage := range stageOrder {
		if stage == candidate {
			return stage, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", raw)
}

// Format is the output encoding of a download.
type Format string

const (
	FormatANVL Format = "anvl"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

// Extension returns the work file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXML:
		return "xml"
	default:
		return "txt"
	}
}

// Compression is the archive type of a published download.
type Compression string

const (
	CompressionGzip Compression = "gzip"
	CompressionZip  Compression = "zip"
)

// Suffix returns the public file suffix for a format and compression pair.
// Gzip appends ".gz" to the format extension; zip replaces it.
func Suffix(format Format, compression Compression) string {
	if compression == CompressionZip {
		return "zip"
	}
	return format.Extension() + ".gz"
}

// Job is one batch download request and its pipeline progress.
type Job struct {
	Seq          int64
	RequestTime  time.Time
	RawRequest   string
	Requestor    string
	Format       Format
	Compression  Compression
	Columns      []string
	Constraints  map[string]Value
	Options      map[string]Value
	Notify       []string
	ToHarvest    []string
	CurrentIndex int
	LastID       string
	FileSize     int64
	Filename     string
	Stage        Stage
}

// Suffix returns the public file suffix for the job.
func (j *Job) Suffix() string {
	return Suffix(j.Format, j.Compression)
}

// OptionBool reports a boolean processing option, false when unset.
func (j *Job) OptionBool(name string) bool {
	if j == nil || j.Options == nil {
		return false
	}
	v, ok := j.Options[name]
	if !ok {
		return false
	}
	b, _ := v.AsBool()
	return b
}

// OptionConvertTimestamps is the option that rewrites epoch timestamps as text.
const OptionConvertTimestamps = "convertTimestamps"
