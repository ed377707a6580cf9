package encoder

import "fmt"

// Arena is the scratch region used to build one record at a time.
// It is acquired before a record is built and released right after the record
// is written; release resets it to empty and starts a new generation.
// Capacity above the retain size is dropped on release, so memory held between
// records never exceeds retain and peak memory is bounded by one record.
//
// An Arena is not safe for concurrent use.
type Arena struct {
	buf        []byte
	retain     int
	limit      int
	held       bool
	generation uint64
	peak       int
}

// NewArena creates an arena keeping up to retain bytes between records and
// refusing records larger than limit (0 means no limit).
func NewArena(retain, limit int) *Arena {
	return &Arena{
		buf:    make([]byte, 0, retain),
		retain: retain,
		limit:  limit,
	}
}

// Acquire returns an empty buffer backed by the arena
func (a *Arena) Acquire() ([]byte, error) {
	if a.held {
		return nil, fmt.Errorf("%w: scratch arena acquired twice", ErrPrecondition)
	}
	a.held = true
	return a.buf[:0], nil
}

// Check reports whether buf still fits the arena limit
func (a *Arena) Check(buf []byte) error {
	if a.limit > 0 && len(buf) > a.limit {
		return errRecordTooLarge(len(buf), a.limit)
	}
	return nil
}

// Release hands buf back to the arena and resets it.
// buf must be the slice obtained from Acquire, possibly grown by append.
func (a *Arena) Release(buf []byte) {
	if !a.held {
		return
	}
	a.held = false
	a.generation++
	if len(buf) > a.peak {
		a.peak = len(buf)
	}
	if cap(buf) > a.retain {
		a.buf = make([]byte, 0, a.retain)
		return
	}
	a.buf = buf[:0]
}

// Held reports whether the arena is currently acquired
func (a *Arena) Held() bool { return a.held }

// Generation is the number of completed acquire/release cycles
func (a *Arena) Generation() uint64 { return a.generation }

// Peak is the largest record built in the arena so far
func (a *Arena) Peak() int { return a.peak }

// Retained is the capacity kept between records
func (a *Arena) Retained() int { return cap(a.buf) }

// Len is the number of bytes currently stored in the arena outside a cycle. Always 0.
func (a *Arena) Len() int { return len(a.buf) }

func (a *Arena) free() {
	a.buf = nil
	a.held = false
}
