package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	MySQL   MySQLConfig   `yaml:"mysql"`
	Binlog  BinlogConfig  `yaml:"binlog"`
	Output  OutputConfig  `yaml:"output"`
	NATS    NATSConfig    `yaml:"nats"`
	Encoder EncoderConfig `yaml:"encoder"`
	Filter  FilterConfig  `yaml:"filter"`
	Logging LoggingConfig `yaml:"logging"`
}

type MySQLConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	ServerID         uint32 `yaml:"server_id"`
	Flavor           string `yaml:"flavor"`            // mysql, mariadb
	UseGTID          bool   `yaml:"use_gtid"`          // take transaction ids from GTID events
	CheckPermissions bool   `yaml:"check_permissions"` // verify grants and binlog settings on startup
}

type BinlogConfig struct {
	PositionFile  string `yaml:"position_file"`
	StartPosition uint32 `yaml:"start_position"`
}

// Output types
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputNATS   = "nats"
)

type OutputConfig struct {
	Type string `yaml:"type"` // stdout, file, nats
	Path string `yaml:"path"` // file output only
}

type NATSConfig struct {
	URL           string        `yaml:"url"`
	Subject       string        `yaml:"subject"`
	MaxReconnect  int           `yaml:"max_reconnect"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

type EncoderConfig struct {
	Escaping       string `yaml:"escaping"`         // json, legacy
	MaxRecordBytes int    `yaml:"max_record_bytes"` // 0 = unbounded
	RetainBytes    int    `yaml:"retain_bytes"`
}

// FilterConfig selects which changes reach the encoder.
// Table patterns are "schema.table" with path.Match wildcards.
type FilterConfig struct {
	IncludeTables []string `yaml:"include_tables"`
	ExcludeTables []string `yaml:"exclude_tables"`
	Script        string   `yaml:"script"` // JavaScript predicate file
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses the YAML config file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config data and applies defaults
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if config.MySQL.Port == 0 {
		config.MySQL.Port = 3306
	}
	if config.MySQL.Flavor == "" {
		config.MySQL.Flavor = "mysql"
	}
	if config.Binlog.PositionFile == "" {
		config.Binlog.PositionFile = "binlog.pos"
	}
	if config.Output.Type == "" {
		config.Output.Type = OutputStdout
	}
	if config.NATS.ReconnectWait == 0 {
		config.NATS.ReconnectWait = 2 * time.Second
	}
	if config.Encoder.Escaping == "" {
		config.Encoder.Escaping = "json"
	}
	if config.Encoder.RetainBytes == 0 {
		config.Encoder.RetainBytes = 64 * 1024
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return &config, nil
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	if c.MySQL.Host == "" {
		return fmt.Errorf("mysql.host is required")
	}
	if c.MySQL.ServerID == 0 {
		return fmt.Errorf("mysql.server_id is required")
	}

	switch c.Output.Type {
	case OutputStdout:
	case OutputFile:
		if c.Output.Path == "" {
			return fmt.Errorf("output.path is required for file output")
		}
	case OutputNATS:
		if c.NATS.URL == "" || c.NATS.Subject == "" {
			return fmt.Errorf("nats.url and nats.subject are required for nats output")
		}
	default:
		return fmt.Errorf("unknown output type %q", c.Output.Type)
	}

	switch c.Encoder.Escaping {
	case "json", "legacy":
	default:
		return fmt.Errorf("unknown encoder escaping %q", c.Encoder.Escaping)
	}
	if c.Encoder.MaxRecordBytes < 0 {
		return fmt.Errorf("encoder.max_record_bytes must not be negative")
	}

	if c.Filter.Script != "" {
		if _, err := os.Stat(c.Filter.Script); os.IsNotExist(err) {
			return fmt.Errorf("filter script file not found: %s", c.Filter.Script)
		}
	}
	return nil
}
