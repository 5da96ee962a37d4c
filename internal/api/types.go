package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobView describes a queued job in a transport-friendly format.
type JobView struct {
	Seq          int64           `json:"seq"`
	RequestTime  string          `json:"requestTime,omitempty"`
	Requestor    string          `json:"requestor"`
	Format       string          `json:"format"`
	Compression  string          `json:"compression"`
	Stage        string          `json:"stage"`
	Filename     string          `json:"filename"`
	Columns      []string        `json:"columns,omitempty"`
	Owners       []string        `json:"owners"`
	CurrentIndex int             `json:"currentIndex"`
	LastID       string          `json:"lastId,omitempty"`
	FileSize     int64           `json:"fileSize"`
	Notify       []string        `json:"notify,omitempty"`
	Constraints  json.RawMessage `json:"constraints,omitempty"`
}

// WorkflowStatus summarizes worker execution state.
type WorkflowStatus struct {
	Running     bool          `json:"running"`
	Generation  string        `json:"generation,omitempty"`
	QueueLength int           `json:"queueLength"`
	LastError   string        `json:"lastError,omitempty"`
	LastJob     *JobView      `json:"lastJob,omitempty"`
	StageHealth []StageHealth `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// QueueListResponse wraps a collection of jobs for API responses.
type QueueListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// QueueLengthResponse reports the number of queued jobs.
type QueueLengthResponse struct {
	Length int `json:"length"`
}
