package main

import (
	"context"
	"fmt"
	"io"
	rand "math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/round"
	"github.com/lox/blackjack/internal/statistics"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)
)

type SimulateCmd struct {
	Rounds  int    `short:"n" default:"10000" help:"Rounds to deal at each table"`
	Seed    *int64 `help:"Base seed; each table derives its own"`
	Report  string `help:"Write a JSON report to this path"`
	Verbose bool   `short:"v" help:"Log every event"`
}

// Report is the JSON written by --report
type Report struct {
	Seed     int64                  `json:"seed"`
	Elapsed  string                 `json:"elapsed"`
	Tables   map[string]TableReport `json:"tables"`
	Combined TableReport            `json:"combined"`
}

// TableReport summarises one table's outcomes
type TableReport struct {
	Strategy    string  `json:"strategy,omitempty"`
	Rounds      int     `json:"rounds"`
	Hands       int     `json:"hands"`
	Wins        int     `json:"wins"`
	Pushes      int     `json:"pushes"`
	Losses      int     `json:"losses"`
	Busts       int     `json:"busts"`
	Naturals    int     `json:"naturals"`
	DealerBusts int     `json:"dealer_busts"`
	Mean        float64 `json:"mean"`
	CILow       float64 `json:"ci95_low"`
	CIHigh      float64 `json:"ci95_high"`
}

func newTableReport(strategy string, s *statistics.Statistics) TableReport {
	lo, hi := s.ConfidenceInterval95()
	return TableReport{
		Strategy:    strategy,
		Rounds:      s.Rounds,
		Hands:       s.Hands,
		Wins:        s.Wins,
		Pushes:      s.Pushes,
		Losses:      s.Losses,
		Busts:       s.Busts,
		Naturals:    s.Naturals,
		DealerBusts: s.DealerBusts,
		Mean:        s.Mean(),
		CILow:       lo,
		CIHigh:      hi,
	}
}

func (c *SimulateCmd) Run(cli *CLI) error {
	if c.Rounds < 1 {
		return fmt.Errorf("rounds must be positive")
	}
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	var out io.Writer = io.Discard
	if c.Verbose {
		out = os.Stderr
	}
	logger := newLogger(out, cfg.Server.LogLevel)
	if c.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	seed, _ := randutil.Resolve(c.Seed)
	stats := make([]*statistics.Statistics, len(cfg.Tables))
	start := time.Now()

	g, ctx := errgroup.WithContext(context.Background())
	for i, tc := range cfg.Tables {
		stats[i] = &statistics.Statistics{}
		rng := randutil.New(randutil.Derive(seed, i))
		g.Go(func() error {
			return simulateTable(ctx, tc, rng, c.Rounds, stats[i], logger)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	total := &statistics.Statistics{}
	for _, s := range stats {
		total.Merge(s)
	}
	if err := total.Validate(); err != nil {
		return fmt.Errorf("statistics: %w", err)
	}

	printSummary(os.Stdout, cfg.Tables, total, seed, elapsed)

	if c.Report != "" {
		report := Report{
			Seed:     seed,
			Elapsed:  elapsed.String(),
			Tables:   make(map[string]TableReport, len(cfg.Tables)),
			Combined: newTableReport("", total),
		}
		for i, tc := range cfg.Tables {
			report.Tables[tc.Name] = newTableReport(tc.Strategy, stats[i])
		}
		if err := fileutil.WriteJSON(c.Report, report); err != nil {
			return err
		}
	}
	return nil
}

// simulateTable deals rounds back to back with no pacing. Human seats stand.
func simulateTable(ctx context.Context, tc config.TableConfig, rng *rand.Rand, rounds int, stats *statistics.Statistics, logger *log.Logger) error {
	bus := round.NewEventBus(stats)
	if logger.GetLevel() <= log.DebugLevel {
		bus.Subscribe(round.NewLogSink(logger))
	}

	_, engine, err := newTable(tc, rng, bus, quartz.NewReal(), logger)
	if err != nil {
		return err
	}
	if err := engine.BindDealer("simulator"); err != nil {
		return err
	}

	for stats.Rounds < rounds {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := engine.Handle(nextTrigger(engine))
		if res.Status == round.Rejected {
			return fmt.Errorf("table %s: %w", tc.Name, res.Err)
		}
		for engine.Pending() {
			engine.Step()
		}
	}
	return nil
}

// nextTrigger picks the trigger a dealer would press in the current state
func nextTrigger(e *round.Engine) round.Trigger {
	switch e.Await() {
	case round.AwaitReveal:
		return round.Trigger{Kind: round.RevealDealerCard}
	case round.AwaitReset:
		return round.Trigger{Kind: round.ResetRound}
	case round.AwaitSeatDecision:
		return round.Trigger{Kind: round.SeatStand, Seat: e.Snapshot().ActingSeat}
	default:
		return round.Trigger{Kind: round.DealOrAdvance}
	}
}

func printSummary(w io.Writer, tables []config.TableConfig, s *statistics.Statistics, seed int64, elapsed time.Duration) {
	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}
	pct := func(n int) string {
		return fmt.Sprintf("%d (%.1f%%)", n, 100*s.Rate(n))
	}

	names := make([]string, len(tables))
	for i, tc := range tables {
		names[i] = fmt.Sprintf("%s[%s]", tc.Name, tc.Strategy)
	}
	lo, hi := s.ConfidenceInterval95()

	lines := []string{
		titleStyle.Render(" ♠ ♥ Blackjack Simulation ♦ ♣ "),
		"",
		row("Tables", strings.Join(names, ", ")),
		row("Seed", fmt.Sprintf("%d", seed)),
		row("Rounds", fmt.Sprintf("%d", s.Rounds)),
		row("Hands", fmt.Sprintf("%d", s.Hands)),
		row("Wins", pct(s.Wins)),
		row("Pushes", pct(s.Pushes)),
		row("Losses", pct(s.Losses)),
		row("Busts", pct(s.Busts)),
		row("Naturals", pct(s.Naturals)),
		row("Dealer busts", fmt.Sprintf("%d", s.DealerBusts)),
		row("Net/hand", fmt.Sprintf("%+.4f [%+.4f, %+.4f]", s.Mean(), lo, hi)),
		row("Elapsed", elapsed.Round(time.Millisecond).String()),
	}
	if s.Halts > 0 {
		lines = append(lines, row("Shoe halts", fmt.Sprintf("%d", s.Halts)))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}
