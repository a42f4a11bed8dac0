// Package config loads the blackjack server configuration from HCL.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/blackjack/blackjack"
)

const (
	DefaultAddress  = "localhost"
	DefaultPort     = 8080
	DefaultLogLevel = "info"
	DefaultDriver   = "sqlite"
	DefaultDSN      = "blackjack.db"
	DefaultSeats    = 5
	DefaultPacks    = 1
	DefaultPaceMS   = 600
	DefaultStrategy = "basic"

	MaxSeats = 7
	MaxPacks = 8
)

// Config represents the complete configuration
type Config struct {
	Server  ServerSettings   `hcl:"server,block"`
	History *HistorySettings `hcl:"history,block"`
	Tables  []TableConfig    `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	Seed     int64  `hcl:"seed,optional"` // 0 picks a seed at startup
}

// HistorySettings selects where resolved rounds are recorded
type HistorySettings struct {
	Driver string `hcl:"driver,optional"` // sqlite, postgres or none
	DSN    string `hcl:"dsn,optional"`
}

// TableConfig defines one blackjack table
type TableConfig struct {
	Name           string `hcl:"name,label"`
	Seats          int    `hcl:"seats,optional"`
	DealerPosition *bool  `hcl:"dealer_position,optional"`
	Packs          int    `hcl:"packs,optional"`
	PaceMS         *int   `hcl:"pace_ms,optional"`
	Strategy       string `hcl:"strategy,optional"`
	AISeats        []int  `hcl:"ai_seats,optional"`
	HumanSeats     []int  `hcl:"human_seats,optional"`
}

// Pace returns the delay between automatically dealt cards
func (t TableConfig) Pace() time.Duration {
	if t.PaceMS == nil {
		return DefaultPaceMS * time.Millisecond
	}
	return time.Duration(*t.PaceMS) * time.Millisecond
}

// HasDealerPosition reports whether a dealer can stand at the table
func (t TableConfig) HasDealerPosition() bool {
	return t.DealerPosition == nil || *t.DealerPosition
}

// Default returns the configuration used when no file exists
func Default() *Config {
	cfg := &Config{
		Tables: []TableConfig{{
			Name:    "main",
			AISeats: []int{1, 2, 3},
		}},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from an HCL file. A missing file yields Default().
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(src, filename)
}

// Parse decodes HCL source and applies defaults
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if len(cfg.Tables) == 0 {
		cfg.Tables = Default().Tables
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.History == nil {
		c.History = &HistorySettings{}
	}
	if c.History.Driver == "" {
		c.History.Driver = DefaultDriver
	}
	if c.History.DSN == "" && c.History.Driver == DefaultDriver {
		c.History.DSN = DefaultDSN
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		if t.Seats == 0 {
			t.Seats = DefaultSeats
		}
		if t.Packs == 0 {
			t.Packs = DefaultPacks
		}
		if t.Strategy == "" {
			t.Strategy = DefaultStrategy
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Server.LogLevel)
	}

	switch c.History.Driver {
	case "sqlite", "postgres":
		if c.History.DSN == "" {
			return fmt.Errorf("history: %s driver requires a dsn", c.History.Driver)
		}
	case "none":
	default:
		return fmt.Errorf("history: unknown driver %q", c.History.Driver)
	}

	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}

	names := make(map[string]bool)
	for _, t := range c.Tables {
		if names[t.Name] {
			return fmt.Errorf("table %s: duplicate name", t.Name)
		}
		names[t.Name] = true

		if t.Seats < 1 || t.Seats > MaxSeats {
			return fmt.Errorf("table %s: seats must be between 1 and %d", t.Name, MaxSeats)
		}
		if t.Packs < 1 || t.Packs > MaxPacks {
			return fmt.Errorf("table %s: packs must be between 1 and %d", t.Name, MaxPacks)
		}
		if t.PaceMS != nil && *t.PaceMS < 0 {
			return fmt.Errorf("table %s: pace_ms must not be negative", t.Name)
		}
		if _, err := blackjack.LookupStrategy(t.Strategy); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}

		taken := make(map[int]bool)
		for _, seat := range append(append([]int(nil), t.AISeats...), t.HumanSeats...) {
			if seat < 1 || seat > t.Seats {
				return fmt.Errorf("table %s: seat %d out of range 1..%d", t.Name, seat, t.Seats)
			}
			if taken[seat] {
				return fmt.Errorf("table %s: seat %d assigned twice", t.Name, seat)
			}
			taken[seat] = true
		}
	}

	return nil
}

// Address returns the full listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Table returns a table configuration by name
func (c *Config) Table(name string) *TableConfig {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i]
		}
	}
	return nil
}
