package filter_test

import (
	"testing"

	"batchdl/internal/filter"
	"batchdl/internal/jobs"
	"batchdl/internal/mapping"
)

func TestMatches(t *testing.T) {
	classifier := mapping.NewClassifier([]string{"ark:/99999/fk4"})
	record := map[string]string{
		"_created":  "1000",
		"_updated":  "2000",
		"_crossref": "yes | registered",
		"_export":   "yes",
		"_profile":  "datacite",
		"_status":   "unavailable | withdrawn",
	}

	cases := []struct {
		name        string
		identifier  string
		record      map[string]string
		constraints map[string]jobs.Value
		want        bool
	}{
		{"no constraints", "ark:/1/a", record, nil, true},
		{"unavailable passes unavailable", "ark:/1/a", record, map[string]jobs.Value{"status": jobs.Strings([]string{"unavailable"})}, true},
		{"unavailable fails public", "ark:/1/a", record, map[string]jobs.Value{"status": jobs.Strings([]string{"public"})}, false},
		{"created after inclusive", "ark:/1/a", record, map[string]jobs.Value{"createdAfter": jobs.Int(1000)}, true},
		{"created after fails", "ark:/1/a", record, map[string]jobs.Value{"createdAfter": jobs.Int(1001)}, false},
		{"created before exclusive", "ark:/1/a", record, map[string]jobs.Value{"createdBefore": jobs.Int(1000)}, false},
		{"updated window", "ark:/1/a", record, map[string]jobs.Value{"updatedAfter": jobs.Int(1500), "updatedBefore": jobs.Int(2500)}, true},
		{"missing timestamp fails", "ark:/1/a", map[string]string{}, map[string]jobs.Value{"updatedAfter": jobs.Int(0)}, false},
		{"unparseable timestamp fails", "ark:/1/a", map[string]string{"_created": "2020-01-01T00:00:00Z"}, map[string]jobs.Value{"createdBefore": jobs.Int(9999999999)}, false},
		{"crossref yes", "ark:/1/a", record, map[string]jobs.Value{"crossref": jobs.Bool(true)}, true},
		{"crossref absent is no", "ark:/1/a", map[string]string{}, map[string]jobs.Value{"crossref": jobs.Bool(false)}, true},
		{"exported no", "ark:/1/a", record, map[string]jobs.Value{"exported": jobs.Bool(false)}, false},
		{"permanence test", "ark:/99999/fk4x", record, map[string]jobs.Value{"permanence": jobs.String("test")}, true},
		{"permanence real on test id", "ark:/99999/fk4x", record, map[string]jobs.Value{"permanence": jobs.String("real")}, false},
		{"permanence real", "doi:10.1/x", record, map[string]jobs.Value{"permanence": jobs.String("real")}, true},
		{"profile member", "ark:/1/a", record, map[string]jobs.Value{"profile": jobs.Strings([]string{"erc", "datacite"})}, true},
		{"profile non member", "ark:/1/a", record, map[string]jobs.Value{"profile": jobs.Strings([]string{"dc"})}, false},
		{"type scheme", "doi:10.1/x", record, map[string]jobs.Value{"type": jobs.Strings([]string{"doi"})}, true},
		{"type scheme mismatch", "ark:/1/a", record, map[string]jobs.Value{"type": jobs.Strings([]string{"doi", "urn"})}, false},
		{"all must pass", "ark:/1/a", record, map[string]jobs.Value{"exported": jobs.Bool(true), "type": jobs.Strings([]string{"doi"})}, false},
		{"unknown constraint fails closed", "ark:/1/a", record, map[string]jobs.Value{"bogus": jobs.Bool(true)}, false},
		{"wrong value kind fails", "ark:/1/a", record, map[string]jobs.Value{"createdAfter": jobs.String("1000")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := filter.Matches(tc.identifier, tc.record, tc.constraints, classifier); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}
