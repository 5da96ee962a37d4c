package jobs_test

import (
	"encoding/json"
	"errors"
	"testing"

	"batchdl/internal/jobs"
)

func TestValueRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		value jobs.Value
	}{
		{"empty list", jobs.List()},
		{"single string", jobs.String("ark:/13030/fk4")},
		{"three strings", jobs.Strings([]string{"a", "b", "c"})},
		{"true", jobs.Bool(true)},
		{"false", jobs.Bool(false)},
		{"int", jobs.Int(1700000000)},
		{"nested map", jobs.Map(map[string]jobs.Value{
			"status": jobs.Strings([]string{"public"}),
			"inner":  jobs.Map(map[string]jobs.Value{"a": jobs.String("x"), "b": jobs.String("y")}),
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.value)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			var decoded jobs.Value
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("unmarshal %s failed: %v", data, err)
			}
			if !decoded.Equal(tc.value) {
				t.Fatalf("round trip mismatch: got %s want %s", decoded, tc.value)
			}
		})
	}
}

func TestValueEncodingIsTagged(t *testing.T) {
	data, err := json.Marshal(jobs.List(jobs.Bool(true), jobs.String("x")))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"list":[{"bool":true},{"string":"x"}]}`
	if string(data) != want {
		t.Fatalf("unexpected encoding: got %s want %s", data, want)
	}
}

func TestValueRejectsMalformedObjects(t *testing.T) {
	for _, raw := range []string{`{}`, `{"bool":true,"int":1}`, `{"float":1.5}`, `"bare"`, `{"int":"x"}`, `null`} {
		var v jobs.Value
		err := json.Unmarshal([]byte(raw), &v)
		if !errors.Is(err, jobs.ErrInvalidValue) {
			t.Fatalf("expected ErrInvalidValue for %s, got %v", raw, err)
		}
	}
	if _, err := json.Marshal(jobs.Value{}); err == nil {
		t.Fatal("expected error encoding zero Value")
	}
}

func TestValueAccessors(t *testing.T) {
	set, ok := jobs.Strings([]string{"ark", "doi"}).StringSet()
	if !ok || len(set) != 2 {
		t.Fatalf("unexpected set: %v %v", set, ok)
	}
	if _, ok := jobs.List(jobs.Int(1)).AsStrings(); ok {
		t.Fatal("expected AsStrings to reject non-string members")
	}
	if _, ok := jobs.String("x").AsBool(); ok {
		t.Fatal("expected AsBool to reject string")
	}
	if jobs.Strings(nil).Equal(jobs.List(jobs.String("a"))) {
		t.Fatal("expected different lists to differ")
	}
}

func TestSuffix(t *testing.T) {
	cases := []struct {
		format      jobs.Format
		compression jobs.Compression
		want        string
	}{
		{jobs.FormatANVL, jobs.CompressionGzip, "txt.gz"},
		{jobs.FormatCSV, jobs.CompressionGzip, "csv.gz"},
		{jobs.FormatXML, jobs.CompressionGzip, "xml.gz"},
		{jobs.FormatCSV, jobs.CompressionZip, "zip"},
	}
	for _, tc := range cases {
		if got := jobs.Suffix(tc.format, tc.compression); got != tc.want {
			t.Fatalf("Suffix(%s, %s) = %q, want %q", tc.format, tc.compression, got, tc.want)
		}
	}
}
