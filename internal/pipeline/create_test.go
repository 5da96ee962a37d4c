package pipeline_test

import (
	"context"
	"testing"

	"batchdl/internal/jobs"
	"batchdl/internal/testsupport"
)

func TestCreateWritesPrologue(t *testing.T) {
	cases := []struct {
		format  jobs.Format
		columns []string
		want    string
	}{
		{jobs.FormatANVL, nil, ""},
		{jobs.FormatCSV, []string{"_id", "_mappedTitle"}, "_id,_mappedTitle\r\n"},
		{jobs.FormatXML, nil, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<records>"},
	}
	for _, tc := range cases {
		t.Run(string(tc.format), func(t *testing.T) {
			f := newFixture(t)
			workFile := f.layout.WorkFile(&jobs.Job{Filename: "abc", Format: tc.format})
			testsupport.WriteFile(t, workFile, 64)

			job := f.insert(t, &jobs.Job{Filename: "abc", Format: tc.format, Columns: tc.columns, ToHarvest: []string{"u1"}})
			handler, _ := f.stages().For(jobs.StageCreate)
			if err := handler.Execute(context.Background(), job); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}

			if got := testsupport.ReadFile(t, workFile); got != tc.want {
				t.Fatalf("unexpected prologue %q", got)
			}
			stored := f.reload(t, job.Seq)
			if stored.Stage != jobs.StageHarvest || stored.FileSize != int64(len(tc.want)) {
				t.Fatalf("unexpected stored job: stage %s size %d", stored.Stage, stored.FileSize)
			}
		})
	}
}
