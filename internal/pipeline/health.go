package pipeline

import (
	"batchdl/internal/preflight"
	"batchdl/internal/stage"
)

func directoryHealth(stageName, label, dir string) stage.Health {
	result := preflight.CheckDirectoryAccess(label, dir)
	if !result.Passed {
		return stage.Unhealthy(stageName, result.Detail)
	}
	return stage.Healthy(stageName)
}
