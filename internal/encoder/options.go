package encoder

import (
	"fmt"
	"strings"
)

// Escaping selects how string literals and identifiers are escaped
type Escaping int

const (
	// EscapeJSON produces standard JSON string escaping. Every record is valid JSON.
	EscapeJSON Escaping = iota
	// EscapeLegacy doubles single quotes and leaves every other byte untouched,
	// byte-for-byte compatible with consumers of the original plugin output.
	EscapeLegacy
)

func (e Escaping) String() string {
	if e == EscapeLegacy {
		return "legacy"
	}
	return "json"
}

// ParseEscaping parses an escaping mode name. Empty means json.
func ParseEscaping(s string) (Escaping, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return EscapeJSON, nil
	case "legacy":
		return EscapeLegacy, nil
	default:
		return EscapeJSON, fmt.Errorf("unknown escaping mode %q (expected json or legacy)", s)
	}
}

const defaultRetainBytes = 64 * 1024

// Options configures a Sequencer
type Options struct {
	Escaping Escaping

	// MaxRecordBytes bounds a single change record. 0 means unbounded.
	MaxRecordBytes int

	// RetainBytes is the scratch capacity kept between records.
	// Larger buffers are dropped on release.
	RetainBytes int
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Escaping:    EscapeJSON,
		RetainBytes: defaultRetainBytes,
	}
}

func (o Options) validate() error {
	if o.MaxRecordBytes < 0 {
		return fmt.Errorf("max record bytes must not be negative: %d", o.MaxRecordBytes)
	}
	if o.RetainBytes < 0 {
		return fmt.Errorf("retain bytes must not be negative: %d", o.RetainBytes)
	}
	if o.Escaping != EscapeJSON && o.Escaping != EscapeLegacy {
		return fmt.Errorf("unknown escaping mode %d", o.Escaping)
	}
	return nil
}
