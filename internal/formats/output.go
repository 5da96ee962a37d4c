// Package formats encodes harvested records as ANVL, CSV, or XML.
package formats

import (
	"bufio"
	"fmt"
	"os"

	"batchdl/internal/jobs"
)

// Output is a buffered writer over a work file that tracks the logical file
// offset, including bytes not yet flushed.
type Output struct {
	file   *os.File
	buf    *bufio.Writer
	offset int64
}

// NewOutput wraps file, whose current position is offset.
func NewOutput(file *os.File, offset int64) *Output {
	return &Output{file: file, buf: bufio.NewWriterSize(file, 64*1024), offset: offset}
}

func (o *Output) Write(p []byte) (int, error) {
	n, err := o.buf.Write(p)
	o.offset += int64(n)
	return n, err
}

// WriteString writes s to the buffer.
func (o *Output) WriteString(s string) (int, error) {
	n, err := o.buf.WriteString(s)
	o.offset += int64(n)
	return n, err
}

// Offset returns the file position after all buffered writes land.
func (o *Output) Offset() int64 { return o.offset }

// Flush writes buffered data to the file.
func (o *Output) Flush() error {
	if err := o.buf.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", o.file.Name(), err)
	}
	return nil
}

// Sync flushes buffered data and commits the file to stable storage.
func (o *Output) Sync() error {
	if err := o.Flush(); err != nil {
		return err
	}
	if err := o.file.Sync(); err != nil {
		return fmt.Errorf("fsync %s: %w", o.file.Name(), err)
	}
	return nil
}

// Writer encodes one download format.
type Writer interface {
	// Prologue writes the leading bytes of a fresh work file.
	Prologue(out *Output) error
	// Record appends one record.
	Record(out *Output, identifier string, record map[string]string) error
	// Epilogue writes the closing bytes once every record is written.
	Epilogue(out *Output) error
}

// New returns the writer for format. Columns apply to CSV only.
func New(format jobs.Format, columns []string) (Writer, error) {
	switch format {
	case jobs.FormatANVL:
		return anvlWriter{}, nil
	case jobs.FormatCSV:
		cols := make([]string, len(columns))
		copy(cols, columns)
		return csvWriter{columns: cols}, nil
	case jobs.FormatXML:
		return xmlWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
