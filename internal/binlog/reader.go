package binlog

import (
	"context"
	"fmt"

	"github.com/go-mysql-org/go-mysql/mysql"
	"github.com/go-mysql-org/go-mysql/replication"
	"github.com/sirupsen/logrus"
)

// ReaderConfig configures the binlog reader
type ReaderConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	ServerID      uint32
	Flavor        string
	PositionFile  string
	StartPosition uint32
}

// Reader handles reading binlog events from MySQL and persisting the position
type Reader struct {
	syncer       *replication.BinlogSyncer
	streamer     *replication.BinlogStreamer
	position     mysql.Position
	positionFile string
	logger       *logrus.Logger
}

// NewReader creates a new binlog reader
func NewReader(cfg ReaderConfig, logger *logrus.Logger) (*Reader, error) {
	flavor := cfg.Flavor
	if flavor == "" {
		flavor = mysql.MySQLFlavor
	}

	syncer := replication.NewBinlogSyncer(replication.BinlogSyncerConfig{
		ServerID:   cfg.ServerID,
		Flavor:     flavor,
		Host:       cfg.Host,
		Port:       uint16(cfg.Port),
		User:       cfg.User,
		Password:   cfg.Password,
		UseDecimal: true,
	})

	position := mysql.Position{Pos: cfg.StartPosition}
	if cfg.PositionFile != "" {
		loaded, ok, err := LoadPosition(cfg.PositionFile)
		if err != nil {
			syncer.Close()
			return nil, err
		}
		if ok {
			position = loaded
			logger.Infof("Loaded binlog position from file: %s", FormatPosition(position))
		}
	}

	streamer, err := syncer.StartSync(position)
	if err != nil {
		syncer.Close()
		return nil, fmt.Errorf("failed to start binlog sync: %w", err)
	}

	logger.Infof("Started binlog sync from position: %s", FormatPosition(position))

	return &Reader{
		syncer:       syncer,
		streamer:     streamer,
		position:     position,
		positionFile: cfg.PositionFile,
		logger:       logger,
	}, nil
}

// ReadEvent reads the next binlog event and tracks its position
func (r *Reader) ReadEvent(ctx context.Context) (*replication.BinlogEvent, error) {
	event, err := r.streamer.GetEvent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get binlog event: %w", err)
	}

	if e, ok := event.Event.(*replication.RotateEvent); ok {
		r.position = mysql.Position{Name: string(e.NextLogName), Pos: uint32(e.Position)}
	} else if event.Header.LogPos > 0 {
		r.position.Pos = event.Header.LogPos
	}

	return event, nil
}

// SavePosition persists the position after the last event read. Callers do this
// at transaction boundaries only, so a restart never resumes inside a transaction.
func (r *Reader) SavePosition() error {
	if r.positionFile == "" || r.position.Name == "" {
		return nil
	}
	return SavePosition(r.positionFile, r.position)
}

// Position returns the position after the last event read
func (r *Reader) Position() mysql.Position {
	return r.position
}

// Close closes the binlog reader
func (r *Reader) Close() {
	if r.syncer != nil {
		r.syncer.Close()
	}
}
