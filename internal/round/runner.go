package round

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// ErrRunnerStopped is returned when a command is sent to a runner that has exited
var ErrRunnerStopped = errors.New("round runner stopped")

// Runner owns an Engine on a single goroutine. Triggers, dealer binding and
// snapshots are serialized through Run; automatic dealing is paced with a
// timer from the injected clock.
type Runner struct {
	engine *Engine
	clock  quartz.Clock
	pace   time.Duration
	logger *log.Logger

	cmds  chan func()
	ticks chan uint64
	done  chan struct{}

	timer *quartz.Timer
	gen   uint64
}

// NewRunner creates a runner. A pace of zero deals all automatic cards at once.
// A nil clock or logger falls back to the real clock and a discard logger.
func NewRunner(engine *Engine, clock quartz.Clock, pace time.Duration, logger *log.Logger) *Runner {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		engine: engine,
		clock:  clock,
		pace:   pace,
		logger: logger.WithPrefix("runner").With("table", engine.TableID()),
		cmds:   make(chan func()),
		ticks:  make(chan uint64, 1),
		done:   make(chan struct{}),
	}
}

// TableID returns the table the runner deals for
func (r *Runner) TableID() string {
	return r.engine.TableID()
}

// Run processes commands until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	defer r.stopTimer()

	r.logger.Debug("Runner started", "pace", r.pace)
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("Runner stopped")
			return ctx.Err()
		case fn := <-r.cmds:
			fn()
		case gen := <-r.ticks:
			if gen != r.gen || r.timer == nil {
				continue
			}
			r.timer = nil
			r.pump()
		}
	}
}

// Done is closed when Run returns
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Submit delivers a trigger and waits for the engine's verdict
func (r *Runner) Submit(ctx context.Context, t Trigger) (Result, error) {
	var res Result
	err := r.do(ctx, func() {
		if t.Kind == CancelDealerRole {
			r.stopTimer()
		}
		res = r.engine.Handle(t)
		if !res.OK() {
			return
		}
		if halted := r.pump(); halted != nil {
			res = *halted
			return
		}
		res.Phase, res.Await = r.engine.Phase(), r.engine.Await()
	})
	return res, err
}

// BindDealer binds a dealer actor to the engine
func (r *Runner) BindDealer(ctx context.Context, actor string) error {
	var bindErr error
	if err := r.do(ctx, func() { bindErr = r.engine.BindDealer(actor) }); err != nil {
		return err
	}
	return bindErr
}

// UnbindDealer clears the dealer, cancelling any paced step and the round in progress
func (r *Runner) UnbindDealer(ctx context.Context) error {
	return r.do(ctx, func() {
		r.stopTimer()
		r.engine.UnbindDealer()
	})
}

// Snapshot returns a copy of the engine state
func (r *Runner) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.do(ctx, func() { snap = r.engine.Snapshot() })
	return snap, err
}

func (r *Runner) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}

	select {
	case r.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrRunnerStopped
	}

	select {
	case <-done:
		return nil
	case <-r.done:
		return ErrRunnerStopped
	}
}

// pump performs the next automatic step, or every step when pacing is off.
// The pacing timer is armed before the step so that anything observing the
// step's events can advance the clock past it. It returns the result of a
// step that halted dealing.
func (r *Runner) pump() *Result {
	if r.timer != nil || !r.engine.Pending() {
		return nil
	}

	if r.pace <= 0 {
		for r.engine.Pending() {
			if res := r.engine.Step(); res.Status == Halted {
				r.logger.Warn("Automatic dealing halted", "reason", res.Err)
				return &res
			}
		}
		return nil
	}

	r.gen++
	gen := r.gen
	r.timer = r.clock.AfterFunc(r.pace, func() {
		select {
		case r.ticks <- gen:
		case <-r.done:
		}
	}, "runner", "pace")

	if res := r.engine.Step(); res.Status == Halted {
		r.logger.Warn("Automatic dealing halted", "reason", res.Err)
		r.stopTimer()
		return &res
	}
	return nil
}

func (r *Runner) stopTimer() {
	if r.timer == nil {
		return
	}
	r.timer.Stop()
	r.timer = nil
	r.gen++
}
