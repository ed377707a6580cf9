// Package sink defines where encoded records go.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// ErrNotPrepared is returned by Write when PrepareWrite was not called first
var ErrNotPrepared = errors.New("write without PrepareWrite")

// Sink receives encoded records with a two phase write.
// PrepareWrite announces a message and whether it is the last write of its
// logical unit; Write delivers the bytes. Implementations must not retain p
// after Write returns.
type Sink interface {
	PrepareWrite(last bool) error
	Write(p []byte) error
}

// LineWriter writes one record per line to an io.Writer, flushing whenever
// a message prepared with last=true has been written.
type LineWriter struct {
	w        *bufio.Writer
	prepared bool
	last     bool
}

// NewLineWriter creates a LineWriter on top of w
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: bufio.NewWriter(w)}
}

// PrepareWrite implements Sink
func (l *LineWriter) PrepareWrite(last bool) error {
	l.prepared = true
	l.last = last
	return nil
}

// Write implements Sink
func (l *LineWriter) Write(p []byte) error {
	if !l.prepared {
		return ErrNotPrepared
	}
	l.prepared = false

	if _, err := l.w.Write(p); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if l.last {
		return l.Flush()
	}
	return nil
}

// Flush writes any buffered records to the underlying writer
func (l *LineWriter) Flush() error {
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}
	return nil
}
