package mapping_test

import (
	"testing"

	"batchdl/internal/mapping"
)

func TestNormalizeRenamesInternalKeys(t *testing.T) {
	raw := map[string]string{
		"_o":      "u1",
		"_g":      "g1",
		"_c":      "1400000000",
		"_u":      "1500000000",
		"_t":      "https://example.org/",
		"_p":      "erc",
		"_cr":     "yes | successfully registered",
		"_s":      "shadow",
		"erc.who": "Doe, Jane",
	}
	got := mapping.Normalize(raw)
	want := map[string]string{
		"_owner":      "u1",
		"_ownergroup": "g1",
		"_created":    "1400000000",
		"_updated":    "1500000000",
		"_target":     "https://example.org/",
		"_profile":    "erc",
		"_crossref":   "yes | successfully registered",
		"_status":     "public",
		"_export":     "yes",
		"erc.who":     "Doe, Jane",
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected keys: %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s: got %q want %q", k, got[k], v)
		}
	}
}

func TestNormalizeStatusAndExport(t *testing.T) {
	cases := []struct {
		is, x      string
		status     string
		exportFlag string
	}{
		{"", "", "public", "yes"},
		{"R", "no", "reserved", "no"},
		{"U", "", "unavailable", "yes"},
		{"U|withdrawn by author", "", "unavailable | withdrawn by author", "yes"},
	}
	for _, tc := range cases {
		raw := map[string]string{}
		if tc.is != "" {
			raw["_is"] = tc.is
		}
		if tc.x != "" {
			raw["_x"] = tc.x
		}
		got := mapping.Normalize(raw)
		if got["_status"] != tc.status || got["_export"] != tc.exportFlag {
			t.Fatalf("Normalize(%v) = status %q export %q", raw, got["_status"], got["_export"])
		}
	}
}

func TestConvertTimestamps(t *testing.T) {
	record := map[string]string{"_created": "0", "_updated": "bogus"}
	mapping.ConvertTimestamps(record)
	if record["_created"] != "1970-01-01T00:00:00Z" {
		t.Fatalf("unexpected created: %q", record["_created"])
	}
	if record["_updated"] != "bogus" {
		t.Fatalf("expected unparseable value unchanged, got %q", record["_updated"])
	}
}

func TestMapByProfile(t *testing.T) {
	erc := mapping.Map(map[string]string{"_profile": "erc", "erc.who": "Jane", "erc.what": "Notes", "erc.when": "2001"})
	if erc.Creator != "Jane" || erc.Title != "Notes" || erc.Date != "2001" {
		t.Fatalf("unexpected erc mapping: %+v", erc)
	}

	dc := mapping.Map(map[string]string{"_profile": "dc", "dc.creator": "A", "dc.title": "B", "dc.publisher": "C", "dc.date": "D", "dc.type": "E"})
	if dc != (mapping.Display{Creator: "A", Title: "B", Publisher: "C", Date: "D", Type: "E"}) {
		t.Fatalf("unexpected dc mapping: %+v", dc)
	}

	doc := `<?xml version="1.0"?><resource xmlns="http://datacite.org/schema/kernel-4">` +
		`<creators><creator><creatorName>Doe, Jane</creatorName></creator><creator><creatorName>Roe, Rick</creatorName></creator></creators>` +
		`<titles><title>Data Set</title></titles><publisher>Lab</publisher><publicationYear>2020</publicationYear>` +
		`<resourceType resourceTypeGeneral="Dataset">Survey</resourceType></resource>`
	dcite := mapping.Map(map[string]string{"_profile": "datacite", "datacite": doc})
	want := mapping.Display{Creator: "Doe, Jane; Roe, Rick", Title: "Data Set", Publisher: "Lab", Date: "2020", Type: "Dataset/Survey"}
	if dcite != want {
		t.Fatalf("unexpected datacite mapping: got %+v want %+v", dcite, want)
	}
	if dcite.Field("Title") != "Data Set" || dcite.Field("bogus") != "" {
		t.Fatal("unexpected Field lookup")
	}
}

func TestClassifier(t *testing.T) {
	c := mapping.NewClassifier([]string{"ark:/99999/fk4", "doi:10.5072/FK2", " "})
	if !c.IsTest("ark:/99999/fk4abc") || !c.IsTest("doi:10.5072/FK2XYZ") {
		t.Fatal("expected test identifiers")
	}
	if c.IsTest("ark:/13030/abc") {
		t.Fatal("expected real identifier")
	}
	var nilClassifier *mapping.Classifier
	if nilClassifier.IsTest("ark:/99999/fk4abc") {
		t.Fatal("expected nil classifier to report false")
	}
}
