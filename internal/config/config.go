// Package config loads table, server, logging and ledger settings from an
// HCL file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// DefaultPath is where the CLI looks for a config file
const DefaultPath = "blackjack.hcl"

// Config represents the complete configuration
type Config struct {
	Table   TableSettings
	Server  ServerSettings
	Logging LoggingSettings
	Ledger  LedgerSettings
}

// TableSettings contains the house rules for every engine
type TableSettings struct {
	Decks              int   `hcl:"decks,optional"`
	ReshuffleThreshold int   `hcl:"reshuffle_threshold,optional"`
	StartingBalance    int   `hcl:"starting_balance,optional"`
	DefaultBet         int   `hcl:"default_bet,optional"`
	Seed               int64 `hcl:"seed,optional"`
}

// ServerSettings contains websocket server configuration
type ServerSettings struct {
	Address       string `hcl:"address,optional"`
	Port          int    `hcl:"port,optional"`
	IdleTimeout   int    `hcl:"idle_timeout,optional"`    // Seconds before an idle hand auto-stands, 0 disables
	DealerDelayMS int    `hcl:"dealer_delay_ms,optional"` // Pause between dealer actions, 0 plays instantly
}

// LoggingSettings contains log level and destination
type LoggingSettings struct {
	Level string `hcl:"level,optional"`
	File  string `hcl:"file,optional"`
}

// LedgerSettings selects where cumulative results are persisted
type LedgerSettings struct {
	Driver string `hcl:"driver,optional"`
	Path   string `hcl:"path,optional"`
}

// Ledger drivers
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverNone   = "none"
)

// fileConfig mirrors Config with every block optional
type fileConfig struct {
	Table   *TableSettings   `hcl:"table,block"`
	Server  *ServerSettings  `hcl:"server,block"`
	Logging *LoggingSettings `hcl:"logging,block"`
	Ledger  *LedgerSettings  `hcl:"ledger,block"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Table: TableSettings{
			Decks:              6,
			ReshuffleThreshold: 15,
			StartingBalance:    1000,
			DefaultBet:         50,
		},
		Server: ServerSettings{
			Address: "localhost",
			Port:    8080,
		},
		Logging: LoggingSettings{
			Level: "info",
		},
		Ledger: LedgerSettings{
			Driver: DriverFile,
			Path:   "blackjack-ledger.json",
		},
	}
}

// Load reads configuration from an HCL file. A missing file yields the
// defaults; attributes left out of the file keep their default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.merge(fc)
	return cfg, nil
}

func (c *Config) merge(fc fileConfig) {
	if t := fc.Table; t != nil {
		setInt(&c.Table.Decks, t.Decks)
		setInt(&c.Table.ReshuffleThreshold, t.ReshuffleThreshold)
		setInt(&c.Table.StartingBalance, t.StartingBalance)
		setInt(&c.Table.DefaultBet, t.DefaultBet)
		if t.Seed != 0 {
			c.Table.Seed = t.Seed
		}
	}
	if s := fc.Server; s != nil {
		setString(&c.Server.Address, s.Address)
		setInt(&c.Server.Port, s.Port)
		setInt(&c.Server.IdleTimeout, s.IdleTimeout)
		setInt(&c.Server.DealerDelayMS, s.DealerDelayMS)
	}
	if l := fc.Logging; l != nil {
		setString(&c.Logging.Level, l.Level)
		setString(&c.Logging.File, l.File)
	}
	if l := fc.Ledger; l != nil {
		setString(&c.Ledger.Driver, l.Driver)
		setString(&c.Ledger.Path, l.Path)
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	t := c.Table
	if t.Decks < 1 || t.Decks > 8 {
		return fmt.Errorf("table: decks must be between 1 and 8, got %d", t.Decks)
	}
	if t.ReshuffleThreshold < 0 || t.ReshuffleThreshold >= t.Decks*52 {
		return fmt.Errorf("table: reshuffle_threshold must be between 0 and %d, got %d", t.Decks*52-1, t.ReshuffleThreshold)
	}
	if t.StartingBalance <= 0 {
		return fmt.Errorf("table: starting_balance must be positive")
	}
	if t.DefaultBet <= 0 || t.DefaultBet > t.StartingBalance {
		return fmt.Errorf("table: default_bet must be between 1 and starting_balance")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.IdleTimeout < 0 || c.Server.DealerDelayMS < 0 {
		return fmt.Errorf("server: timeouts must not be negative")
	}

	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	switch c.Ledger.Driver {
	case DriverFile, DriverSQLite:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger: path is required for driver %s", c.Ledger.Driver)
		}
	case DriverNone:
	default:
		return fmt.Errorf("ledger: unknown driver %q", c.Ledger.Driver)
	}

	return nil
}

// ServerAddress returns the full server listen address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// IdleTimeoutDuration returns how long a hand may wait for a decision
func (s ServerSettings) IdleTimeoutDuration() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}

// DealerDelay returns the pause between dealer actions
func (s ServerSettings) DealerDelay() time.Duration {
	return time.Duration(s.DealerDelayMS) * time.Millisecond
}

// LogLevel returns the parsed log level. Call Validate first.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Logging.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
