package formats

import (
	"fmt"
	"sort"
	"strings"
)

var (
	anvlKeyEscaper   = strings.NewReplacer("%", "%25", ":", "%3A", "\r", "%0D", "\n", "%0A")
	anvlValueEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
)

type anvlWriter struct{}

func (anvlWriter) Prologue(*Output) error { return nil }

func (anvlWriter) Epilogue(*Output) error { return nil }

func (anvlWriter) Record(out *Output, identifier string, record map[string]string) error {
	var b strings.Builder
	if out.Offset() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(":: ")
	b.WriteString(identifier)
	b.WriteString("\n")
	for _, key := range sortedKeys(record) {
		b.WriteString(anvlKeyEscaper.Replace(key))
		b.WriteString(": ")
		b.WriteString(anvlValueEscaper.Replace(record[key]))
		b.WriteString("\n")
	}
	if _, err := out.WriteString(b.String()); err != nil {
		return fmt.Errorf("write anvl record %s: %w", identifier, err)
	}
	return nil
}

func sortedKeys(record map[string]string) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
