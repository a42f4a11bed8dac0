package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/dealer"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/round"
	"github.com/lox/blackjack/internal/tui"
)

type PlayCmd struct {
	Table   string `short:"t" help:"Table to deal at (defaults to the first configured table)"`
	Actor   string `default:"dealer" help:"Name to deal under"`
	Seed    *int64 `help:"Seed for shoe shuffles"`
	LogFile string `default:"blackjack-play.log" help:"File to write logs to while the console is open"`
}

func (c *PlayCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	tc := &cfg.Tables[0]
	if c.Table != "" {
		if tc = cfg.Table(c.Table); tc == nil {
			return fmt.Errorf("unknown table %q", c.Table)
		}
	}
	if !tc.HasDealerPosition() {
		return fmt.Errorf("table %s has no dealer position", tc.Name)
	}

	logFile, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger := newLogger(logFile, cfg.Server.LogLevel)

	seed, rng := randutil.Resolve(c.Seed)
	logger.Info("Starting console", "table", tc.Name, "actor", c.Actor, "seed", seed)

	events := tui.NewEventSink()
	bus := round.NewEventBus(events, round.NewLogSink(logger))

	clock := quartz.NewReal()
	t, engine, err := newTable(*tc, rng, bus, clock, logger)
	if err != nil {
		return err
	}
	runner := round.NewRunner(engine, clock, tc.Pace(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = runner.Run(ctx)
	}()

	ctrl := dealer.NewController(nil, logger)
	ctrl.AddTable(t, runner)
	if err := ctrl.JoinTable(ctx, c.Actor, t.ID); err != nil {
		return err
	}
	defer func() {
		_ = ctrl.LeaveDealerSpot(context.Background(), c.Actor)
	}()

	backend := tui.DealerBackend{Controller: ctrl, Table: runner, Actor: c.Actor}
	model := tui.New(backend, events.Events(), logger)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}
