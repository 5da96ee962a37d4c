package formats

import (
	"encoding/csv"
	"fmt"
	"strings"
	"unicode"

	"batchdl/internal/mapping"
)

const (
	columnIdentifier   = "_id"
	mappedColumnPrefix = "_mapped"
)

type csvWriter struct {
	columns []string
}

func (w csvWriter) Prologue(out *Output) error {
	return writeRow(out, w.columns)
}

func (csvWriter) Epilogue(*Output) error { return nil }

func (w csvWriter) Record(out *Output, identifier string, record map[string]string) error {
	var display *mapping.Display
	row := make([]string, len(w.columns))
	for i, column := range w.columns {
		switch {
		case column == columnIdentifier:
			row[i] = identifier
		case strings.HasPrefix(column, mappedColumnPrefix):
			if display == nil {
				d := mapping.Map(record)
				display = &d
			}
			row[i] = display.Field(strings.TrimPrefix(column, mappedColumnPrefix))
		default:
			row[i] = record[column]
		}
	}
	if err := writeRow(out, row); err != nil {
		return fmt.Errorf("write csv record %s: %w", identifier, err)
	}
	return nil
}

func writeRow(out *Output, cells []string) error {
	row := make([]string, len(cells))
	for i, cell := range cells {
		row[i] = oneLine(cell)
	}
	w := csv.NewWriter(out)
	w.UseCRLF = true
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// oneLine replaces each whitespace character with a plain space.
func oneLine(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}
