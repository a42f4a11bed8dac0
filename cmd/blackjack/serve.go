package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/dealer"
	"github.com/lox/blackjack/internal/history"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/round"
	"github.com/lox/blackjack/internal/server"
)

type ServeCmd struct {
	Addr string `short:"a" help:"Address to listen on (overrides config)"`
	Seed *int64 `help:"Seed for shoe shuffles (overrides config)"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Server.LogLevel)

	addr := cfg.Address()
	if c.Addr != "" {
		addr = c.Addr
	}

	seed := c.Seed
	if seed == nil && cfg.Server.Seed != 0 {
		seed = &cfg.Server.Seed
	}
	baseSeed, _ := randutil.Resolve(seed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := history.Open(ctx, cfg.History.Driver, cfg.History.DSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close history store", "error", err)
		}
	}()

	recorder := history.NewRecorder(store, logger)
	bus := round.NewEventBus(recorder, round.NewLogSink(logger))
	ctrl := dealer.NewController(nil, logger)
	srv := server.NewServer(addr, ctrl, store, logger)
	bus.Subscribe(srv)

	clock := quartz.NewReal()
	var runners []*round.Runner
	for i, tc := range cfg.Tables {
		t, engine, err := newTable(tc, randutil.New(randutil.Derive(baseSeed, i)), bus, clock, logger)
		if err != nil {
			return err
		}
		runner := round.NewRunner(engine, clock, tc.Pace(), logger)
		ctrl.AddTable(t, runner)
		srv.AddTable(t, runner)
		runners = append(runners, runner)

		logger.Info("Created table",
			"table", t.ID,
			"seats", tc.Seats,
			"occupied", len(t.OccupiedSeats()),
			"packs", tc.Packs,
			"strategy", tc.Strategy,
			"pace", tc.Pace())
	}

	logger.Info("Starting blackjack server",
		"addr", addr,
		"tables", len(runners),
		"history", cfg.History.Driver,
		"seed", baseSeed)

	g, ctx := errgroup.WithContext(ctx)
	for _, runner := range runners {
		g.Go(func() error { return runner.Run(ctx) })
	}
	g.Go(func() error { return recorder.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
