// Package dealer binds actors to the dealer position of a table and routes
// their triggers to that table's round runner.
package dealer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/round"
	"github.com/lox/blackjack/internal/table"
)

var (
	ErrAlreadyDealing   = errors.New("actor is already dealing at a table")
	ErrUnknownTable     = errors.New("unknown table")
	ErrNoDealerPosition = errors.New("table has no dealer position")
	ErrSeatTaken        = errors.New("another actor is dealing at the table")
	ErrNotDealer        = errors.New("actor is not a dealer")
)

// Placement moves actors in the surrounding world. The controller only
// calls it; movement itself is outside the round engine.
type Placement interface {
	MoveToDealerPosition(actor, tableID string)
	SetFreeRoam(actor string, enabled bool)
}

// NopPlacement logs placement requests and does nothing else
type NopPlacement struct {
	Logger *log.Logger
}

func (p NopPlacement) MoveToDealerPosition(actor, tableID string) {
	if p.Logger != nil {
		p.Logger.Debug("Move to dealer position", "actor", actor, "table", tableID)
	}
}

func (p NopPlacement) SetFreeRoam(actor string, enabled bool) {
	if p.Logger != nil {
		p.Logger.Debug("Set free roam", "actor", actor, "enabled", enabled)
	}
}

// Runner is the part of round.Runner the controller drives
type Runner interface {
	BindDealer(ctx context.Context, actor string) error
	UnbindDealer(ctx context.Context) error
	Submit(ctx context.Context, t round.Trigger) (round.Result, error)
}

type station struct {
	table  *table.Table
	runner Runner
	dealer string
}

// Controller tracks which actor deals at which table
type Controller struct {
	mu        sync.Mutex
	stations  map[string]*station
	actors    map[string]string // actor -> table ID
	placement Placement
	logger    *log.Logger
}

// NewController creates a controller. A nil placement uses NopPlacement and
// a nil logger discards output.
func NewController(placement Placement, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = logger.WithPrefix("dealer")
	if placement == nil {
		placement = NopPlacement{Logger: logger}
	}
	return &Controller{
		stations:  make(map[string]*station),
		actors:    make(map[string]string),
		placement: placement,
		logger:    logger,
	}
}

// AddTable registers a table and the runner that owns its round
func (c *Controller) AddTable(t *table.Table, runner Runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stations[t.ID] = &station{table: t, runner: runner}
}

// Tables returns the registered table IDs in sorted order
func (c *Controller) Tables() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.stations))
	for id := range c.stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DealerAt returns the actor dealing at a table, or "" if none
func (c *Controller) DealerAt(tableID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.stations[tableID]; ok {
		return st.dealer
	}
	return ""
}

// TableOf returns the table an actor deals at
func (c *Controller) TableOf(actor string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.actors[actor]
	return id, ok
}

// JoinTable makes actor the dealer of a table
func (c *Controller) JoinTable(ctx context.Context, actor, tableID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, ok := c.actors[actor]; ok {
		return fmt.Errorf("%s at %s: %w", actor, current, ErrAlreadyDealing)
	}
	st, ok := c.stations[tableID]
	if !ok {
		return fmt.Errorf("%s: %w", tableID, ErrUnknownTable)
	}
	if !st.table.DealerPosition {
		return fmt.Errorf("%s: %w", tableID, ErrNoDealerPosition)
	}
	if st.dealer != "" {
		return fmt.Errorf("%s: %w (%s)", tableID, ErrSeatTaken, st.dealer)
	}

	if err := st.runner.BindDealer(ctx, actor); err != nil {
		return fmt.Errorf("bind dealer at %s: %w", tableID, err)
	}
	st.dealer = actor
	c.actors[actor] = tableID

	c.placement.MoveToDealerPosition(actor, tableID)
	c.placement.SetFreeRoam(actor, false)

	c.logger.Info("Dealer joined table", "actor", actor, "table", tableID)
	return nil
}

// LeaveDealerSpot releases the actor's dealer role. A round in progress at
// the table is cancelled and reset.
func (c *Controller) LeaveDealerSpot(ctx context.Context, actor string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tableID, ok := c.actors[actor]
	if !ok {
		return fmt.Errorf("%s: %w", actor, ErrNotDealer)
	}
	st := c.stations[tableID]

	if err := st.runner.UnbindDealer(ctx); err != nil {
		return fmt.Errorf("unbind dealer at %s: %w", tableID, err)
	}
	st.dealer = ""
	delete(c.actors, actor)

	c.placement.SetFreeRoam(actor, true)

	c.logger.Info("Dealer left table", "actor", actor, "table", tableID)
	return nil
}

// Trigger routes a trigger from actor to the table they deal at.
// CancelDealerRole leaves the dealer spot.
func (c *Controller) Trigger(ctx context.Context, actor string, t round.Trigger) (round.Result, error) {
	if t.Kind == round.CancelDealerRole {
		if err := c.LeaveDealerSpot(ctx, actor); err != nil {
			if errors.Is(err, ErrNotDealer) {
				return round.Result{Status: round.Rejected, Err: err}, nil
			}
			return round.Result{}, err
		}
		return round.Result{Status: round.Accepted, Phase: round.Idle, Await: round.AwaitStart}, nil
	}

	c.mu.Lock()
	tableID, ok := c.actors[actor]
	var runner Runner
	if ok {
		runner = c.stations[tableID].runner
	}
	c.mu.Unlock()

	if !ok {
		return round.Result{}, fmt.Errorf("%s: %w", actor, ErrNotDealer)
	}

	res, err := runner.Submit(ctx, t)
	if err != nil {
		return res, fmt.Errorf("submit %s to %s: %w", t, tableID, err)
	}
	if !res.OK() {
		c.logger.Debug("Trigger not accepted", "actor", actor, "table", tableID, "trigger", t, "status", res.Status, "reason", res.Err)
	}
	return res, nil
}
