package api

import (
	"encoding/json"

	"batchdl/internal/deps"
	"batchdl/internal/jobs"
	"batchdl/internal/stage"
	"batchdl/internal/workflow"
)

// FromJob converts a job record to its API representation.
func FromJob(job *jobs.Job) JobView {
	if job == nil {
		return JobView{}
	}
	view := JobView{
		Seq:          job.Seq,
		Requestor:    job.Requestor,
		Format:       string(job.Format),
		Compression:  string(job.Compression),
		Stage:        string(job.Stage),
		Filename:     job.Filename,
		Columns:      append([]string(nil), job.Columns...),
		Owners:       append([]string(nil), job.ToHarvest...),
		CurrentIndex: job.CurrentIndex,
		LastID:       job.LastID,
		FileSize:     job.FileSize,
		Notify:       append([]string(nil), job.Notify...),
	}
	if !job.RequestTime.IsZero() {
		view.RequestTime = job.RequestTime.UTC().Format(dateTimeFormat)
	}
	if len(job.Constraints) > 0 {
		if raw, err := json.Marshal(job.Constraints); err == nil {
			view.Constraints = raw
		}
	}
	return view
}

// FromJobs converts a batch of job records, preserving order.
func FromJobs(list []*jobs.Job) []JobView {
	if len(list) == 0 {
		return nil
	}
	out := make([]JobView, 0, len(list))
	for _, job := range list {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts a workflow status summary into its API form.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:     summary.Running,
		Generation:  summary.Generation,
		QueueLength: summary.QueueLength,
		LastError:   summary.LastError,
		StageHealth: FromStageHealth(summary.StageHealth),
	}
	if summary.LastJob != nil {
		view := FromJob(summary.LastJob)
		status.LastJob = &view
	}
	return status
}

// FromStageHealth preserves pipeline order.
func FromStageHealth(health []stage.Health) []StageHealth {
	out := make([]StageHealth, 0, len(health))
	for _, h := range health {
		out = append(out, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromDependencies converts dependency check results.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}
