package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"json-decoding/internal/binlog"
	"json-decoding/internal/config"
	"json-decoding/internal/encoder"
	"json-decoding/internal/nats"
	"json-decoding/internal/processor"
	"json-decoding/internal/sink"
)

func main() {
	// Setup logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	// Records go to stdout; keep logs off it
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)

	// Load configuration
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	// Set log level from config
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	logger.Info("Starting JSON change encoder...")
	if cfg.MySQL.UseGTID {
		logger.Info("Transaction ids will be taken from GTIDs")
	}

	// Fatal session errors exit non-zero once run's cleanup has completed
	if err := run(cfg, logger); err != nil {
		logger.Fatalf("Encoder session failed: %v", err)
	}
	logger.Info("JSON change encoder stopped")
}

// run wires the pipeline and blocks until a signal arrives or the session fails
func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("mysql", binlog.DSN(cfg.MySQL.Host, cfg.MySQL.Port, cfg.MySQL.User, cfg.MySQL.Password))
	if err != nil {
		return fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	defer db.Close()

	if cfg.MySQL.CheckPermissions {
		if err := binlog.NewChecker(db, logger).Check(ctx); err != nil {
			return fmt.Errorf("MySQL replication check failed: %w", err)
		}
	}

	schemas := binlog.NewSchemaCache(binlog.NewInformationSchema(db, logger), logger)

	filter, err := processor.NewFilter(cfg.Filter, logger)
	if err != nil {
		return fmt.Errorf("failed to create filter: %w", err)
	}

	// Initialize output
	var out sink.Sink
	switch cfg.Output.Type {
	case config.OutputFile:
		f, err := os.OpenFile(cfg.Output.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		defer f.Close()
		lw := sink.NewLineWriter(f)
		defer lw.Flush()
		out = lw
	case config.OutputNATS:
		publisher, err := nats.NewPublisher(
			cfg.NATS.URL,
			cfg.NATS.Subject,
			cfg.NATS.MaxReconnect,
			cfg.NATS.ReconnectWait,
			logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create NATS publisher: %w", err)
		}
		defer publisher.Close()
		out = publisher
	default:
		lw := sink.NewLineWriter(os.Stdout)
		defer lw.Flush()
		out = lw
	}

	escaping, err := encoder.ParseEscaping(cfg.Encoder.Escaping)
	if err != nil {
		return fmt.Errorf("invalid encoder settings: %w", err)
	}
	sequencer, err := encoder.NewSequencer(out, encoder.Options{
		Escaping:       escaping,
		MaxRecordBytes: cfg.Encoder.MaxRecordBytes,
		RetainBytes:    cfg.Encoder.RetainBytes,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}
	defer func() {
		if err := sequencer.Close(); err != nil {
			logger.Errorf("Failed to shut down encoder: %v", err)
		}
	}()

	// Initialize binlog reader
	reader, err := binlog.NewReader(binlog.ReaderConfig{
		Host:          cfg.MySQL.Host,
		Port:          cfg.MySQL.Port,
		User:          cfg.MySQL.User,
		Password:      cfg.MySQL.Password,
		ServerID:      cfg.MySQL.ServerID,
		Flavor:        cfg.MySQL.Flavor,
		PositionFile:  cfg.Binlog.PositionFile,
		StartPosition: cfg.Binlog.StartPosition,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create binlog reader: %w", err)
	}
	defer reader.Close()

	proc := processor.NewProcessor(reader, sequencer, schemas, filter, cfg.MySQL.UseGTID, logger)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start processing in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- proc.Start(ctx)
	}()

	// Wait for signal or error
	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v, shutting down...", sig)
		cancel()
		return <-errChan
	case err := <-errChan:
		return err
	}
}
