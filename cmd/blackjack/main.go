package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/lox/blackjack/internal/config"
)

type CLI struct {
	Config   string `short:"c" default:"blackjack.hcl" help:"Path to HCL configuration file"`
	LogLevel string `short:"l" help:"Log level (debug|info|warn|error), overrides config"`

	Serve    ServeCmd    `cmd:"" default:"1" help:"Run the table server"`
	Play     PlayCmd     `cmd:"" help:"Deal at a local table from the terminal"`
	Simulate SimulateCmd `cmd:"" help:"Deal rounds without pacing and summarise the outcomes"`
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Blackjack tables dealt by a bound dealer"),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag and environment overrides
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if dsn := os.Getenv("BLACKJACK_HISTORY_DSN"); dsn != "" {
		cfg.History.DSN = dsn
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}
