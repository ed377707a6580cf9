package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-mysql-org/go-mysql/replication"
	"github.com/sirupsen/logrus"

	"json-decoding/internal/binlog"
	"json-decoding/internal/models"
)

// Reader interface for reading binlog events
type Reader interface {
	ReadEvent(ctx context.Context) (*replication.BinlogEvent, error)
}

// Checkpointer is implemented by readers that can persist their position.
// The processor checkpoints only between transactions.
type Checkpointer interface {
	SavePosition() error
}

// Handler receives whole transactions in commit order.
// It is implemented by *encoder.Sequencer.
type Handler interface {
	Begin(xid models.TxnID) error
	Change(event *models.ChangeEvent) error
	Commit(xid models.TxnID) error
}

// Processor turns binlog events into begin/change/commit calls on a Handler
type Processor struct {
	reader     Reader
	checkpoint Checkpointer
	handler    Handler
	schemas *binlog.SchemaCache
	filter  *Filter
	logger  *logrus.Logger

	useGTID   bool
	inTxn     bool
	xid       models.TxnID
	nextXID   uint64
	gtidXID   uint64
	gtidReady bool
}

// NewProcessor creates a new event processor. filter may be nil.
func NewProcessor(reader Reader, handler Handler, schemas *binlog.SchemaCache, filter *Filter, useGTID bool, logger *logrus.Logger) *Processor {
	checkpoint, _ := reader.(Checkpointer)
	return &Processor{
		reader:     reader,
		checkpoint: checkpoint,
		handler:    handler,
		schemas:    schemas,
		filter:     filter,
		useGTID:    useGTID,
		logger:     logger,
	}
}

// Start processes binlog events until ctx is done or the handler fails
func (p *Processor) Start(ctx context.Context) error {
	p.logger.Info("Starting event processor...")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Context cancelled, stopping event processor")
			return nil
		default:
		}

		readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		event, err := p.reader.ReadEvent(readCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			// A timeout only means no events arrived
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			p.logger.Errorf("Error reading binlog event: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		if err := p.Handle(ctx, event); err != nil {
			return err
		}
	}
}

// Handle dispatches one binlog event. Errors returned are fatal for the session.
func (p *Processor) Handle(ctx context.Context, event *replication.BinlogEvent) error {
	switch e := event.Event.(type) {
	case *replication.GTIDEvent:
		if p.useGTID {
			p.gtidXID = uint64(e.GNO)
			p.gtidReady = true
		}

	case *replication.QueryEvent:
		query := strings.TrimSpace(string(e.Query))
		switch {
		case strings.EqualFold(query, "BEGIN"):
			return p.begin()
		case strings.EqualFold(query, "COMMIT"):
			return p.commit()
		case !p.inTxn:
			// DDL runs outside row transactions and may target any database,
			// not just the session default in e.Schema.
			p.schemas.Invalidate("")
			p.logger.Debugf("Query event: %s", query)
			p.savePosition()
		}

	case *replication.TableMapEvent:
		if _, err := p.schemas.Update(ctx, e); err != nil {
			return fmt.Errorf("failed to cache table map: %w", err)
		}

	case *replication.RowsEvent:
		kind, ok := changeKind(event.Header.EventType)
		if !ok {
			p.logger.Debugf("Unhandled row event type: %d", event.Header.EventType)
			return nil
		}
		if !p.inTxn {
			// Started inside a transaction whose BEGIN was never seen
			p.logger.Warnf("Skipping %s rows on table ID %d outside of a transaction", kind, e.TableID)
			return nil
		}
		return p.rows(kind, e)

	case *replication.XIDEvent:
		p.logger.Debugf("XID event: %d", e.XID)
		return p.commit()

	case *replication.RotateEvent:
		p.logger.Infof("Binlog rotated to: %s", string(e.NextLogName))
		if !p.inTxn {
			p.savePosition()
		}

	default:
		p.logger.Debugf("Unhandled event type: %T", e)
	}
	return nil
}

func (p *Processor) begin() error {
	if p.gtidReady {
		p.xid = models.TxnID(p.gtidXID)
		p.gtidReady = false
	} else {
		p.nextXID++
		p.xid = models.TxnID(p.nextXID)
	}
	p.inTxn = true
	if err := p.handler.Begin(p.xid); err != nil {
		return fmt.Errorf("failed to begin transaction %d: %w", p.xid, err)
	}
	return nil
}

func (p *Processor) commit() error {
	if !p.inTxn {
		p.logger.Warn("Skipping commit of a transaction whose begin was not seen")
		p.savePosition()
		return nil
	}
	p.inTxn = false
	if err := p.handler.Commit(p.xid); err != nil {
		return fmt.Errorf("failed to commit transaction %d: %w", p.xid, err)
	}
	p.savePosition()
	return nil
}

func (p *Processor) savePosition() {
	if p.checkpoint == nil {
		return
	}
	if err := p.checkpoint.SavePosition(); err != nil {
		p.logger.Warnf("Failed to save position: %v", err)
	}
}

// rows emits one change per affected row. UPDATE events carry before/after
// pairs; only the after image is encoded.
func (p *Processor) rows(kind models.ChangeKind, e *replication.RowsEvent) error {
	relation, ok := p.schemas.Relation(e.TableID)
	if !ok {
		return fmt.Errorf("table map not found for table ID %d", e.TableID)
	}

	step := 1
	if kind == models.Update {
		step = 2
	}

	for i := 0; i+step-1 < len(e.Rows); i += step {
		change := &models.ChangeEvent{Kind: kind, Relation: relation}
		switch kind {
		case models.Insert:
			change.NewRow = binlog.RowValues(e.Table, relation, e.Rows[i], skipped(e, i))
		case models.Update:
			change.OldRow = binlog.RowValues(e.Table, relation, e.Rows[i], skipped(e, i))
			change.NewRow = binlog.RowValues(e.Table, relation, e.Rows[i+1], skipped(e, i+1))
		case models.Delete:
			change.OldRow = binlog.RowValues(e.Table, relation, e.Rows[i], skipped(e, i))
		}

		if p.filter != nil {
			if err := p.filter.Allow(change); err != nil {
				if errors.Is(err, ErrEventRejected) {
					p.logger.Debugf("Change rejected by filter: %s.%s (type: %s)", relation.Namespace, relation.Name, kind)
				} else {
					p.logger.Errorf("Error filtering change on %s.%s: %v", relation.Namespace, relation.Name, err)
				}
				continue
			}
		}

		if err := p.handler.Change(change); err != nil {
			return fmt.Errorf("failed to encode %s on %s.%s: %w", kind, relation.Namespace, relation.Name, err)
		}
	}
	return nil
}

// skipped returns the columns missing from row i of a partial row image
func skipped(e *replication.RowsEvent, i int) []int {
	if i < len(e.SkippedColumns) {
		return e.SkippedColumns[i]
	}
	return nil
}

func changeKind(typ replication.EventType) (models.ChangeKind, bool) {
	switch typ {
	case replication.WRITE_ROWS_EVENTv0, replication.WRITE_ROWS_EVENTv1, replication.WRITE_ROWS_EVENTv2:
		return models.Insert, true
	case replication.UPDATE_ROWS_EVENTv0, replication.UPDATE_ROWS_EVENTv1, replication.UPDATE_ROWS_EVENTv2:
		return models.Update, true
	case replication.DELETE_ROWS_EVENTv0, replication.DELETE_ROWS_EVENTv1, replication.DELETE_ROWS_EVENTv2:
		return models.Delete, true
	default:
		return 0, false
	}
}
