package encoder

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"json-decoding/internal/models"
	"json-decoding/internal/sink"
)

type state int

const (
	stateIdle state = iota
	stateTxnOpen
	stateClosed
)

// Sequencer turns begin/change/commit notifications into records on a sink.
// Calls must be serialized; transactions are delivered whole and never overlap.
// The first fatal error terminates the session and is returned by every later call.
type Sequencer struct {
	out    sink.Sink
	arena  *Arena
	esc    Escaping
	logger *logrus.Logger

	state        state
	xid          models.TxnID
	wroteChanges bool
	changes      int
	failed       error
}

// NewSequencer creates a Sequencer writing to out. A nil logger means the
// logrus standard logger.
func NewSequencer(out sink.Sink, opts Options, logger *logrus.Logger) (*Sequencer, error) {
	if out == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder options: %w", err)
	}

	logger.Debugf("Encoder started (escaping: %s, retain: %d, max record: %d)",
		opts.Escaping, opts.RetainBytes, opts.MaxRecordBytes)

	return &Sequencer{
		out:    out,
		arena:  NewArena(opts.RetainBytes, opts.MaxRecordBytes),
		esc:    opts.Escaping,
		logger: logger,
	}, nil
}

// Begin emits the begin record of transaction xid
func (s *Sequencer) Begin(xid models.TxnID) error {
	if err := s.check(); err != nil {
		return err
	}
	if s.state != stateIdle {
		return s.fail(fmt.Errorf("%w: begin of transaction %d while transaction %d is open", ErrPrecondition, xid, s.xid))
	}

	s.state = stateTxnOpen
	s.xid = xid
	s.wroteChanges = false
	s.changes = 0

	if err := s.writeBoundary("transaction.begin", xid); err != nil {
		return s.fail(err)
	}
	s.logger.Debugf("Began transaction %d", xid)
	return nil
}

// Change encodes event within the open transaction and writes it.
// The scratch arena is reset before Change returns, whatever the outcome.
func (s *Sequencer) Change(event *models.ChangeEvent) error {
	if err := s.check(); err != nil {
		return err
	}
	if s.state != stateTxnOpen {
		return s.fail(fmt.Errorf("%w: change outside of a transaction", ErrPrecondition))
	}

	buf, err := s.arena.Acquire()
	if err != nil {
		return s.fail(err)
	}
	s.wroteChanges = true

	buf, err = appendChange(buf, event, s.esc, s.arena.limit)
	if err == nil {
		err = s.arena.Check(buf)
	}
	if err == nil {
		err = s.write(buf)
	}
	s.arena.Release(buf)

	if err != nil {
		return s.fail(err)
	}
	s.changes++
	return nil
}

// Commit emits the commit record of the open transaction
func (s *Sequencer) Commit(xid models.TxnID) error {
	if err := s.check(); err != nil {
		return err
	}
	if s.state != stateTxnOpen {
		return s.fail(fmt.Errorf("%w: commit of transaction %d without begin", ErrPrecondition, xid))
	}
	if xid != s.xid {
		return s.fail(fmt.Errorf("%w: commit of transaction %d while transaction %d is open", ErrPrecondition, xid, s.xid))
	}

	if err := s.writeBoundary("transaction.commit", xid); err != nil {
		return s.fail(err)
	}
	s.state = stateIdle
	s.logger.Debugf("Committed transaction %d (wrote changes: %t, changes: %d)", xid, s.wroteChanges, s.changes)
	return nil
}

// WroteChanges reports whether the current (or last) transaction wrote any change
func (s *Sequencer) WroteChanges() bool {
	return s.wroteChanges
}

// Arena exposes the scratch arena for inspection
func (s *Sequencer) Arena() *Arena {
	return s.arena
}

// Err returns the error that terminated the session, if any
func (s *Sequencer) Err() error {
	return s.failed
}

// Close releases the scratch arena. Later calls return ErrClosed.
func (s *Sequencer) Close() error {
	if s.state == stateClosed {
		return nil
	}
	if s.state == stateTxnOpen {
		s.logger.Warnf("Encoder closed with transaction %d still open", s.xid)
	}
	s.state = stateClosed
	s.arena.free()
	s.logger.Debug("Encoder shut down")
	return nil
}

func (s *Sequencer) check() error {
	if s.state == stateClosed {
		return ErrClosed
	}
	return s.failed
}

func (s *Sequencer) fail(err error) error {
	s.failed = err
	s.logger.Errorf("Encoder session terminated: %v", err)
	return err
}

func (s *Sequencer) writeBoundary(kind string, xid models.TxnID) error {
	var scratch [64]byte
	buf := append(scratch[:0], `{"type":"`...)
	buf = append(buf, kind...)
	buf = append(buf, `","xid":"`...)
	buf = strconv.AppendUint(buf, uint64(xid), 10)
	buf = append(buf, `"}`...)
	return s.write(buf)
}

func (s *Sequencer) write(record []byte) error {
	if err := s.out.PrepareWrite(true); err != nil {
		return fmt.Errorf("failed to prepare write: %w", err)
	}
	if err := s.out.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}
