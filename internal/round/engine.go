// Package round runs one blackjack round at a time for a single table.
//
// Engine is a synchronous state machine with no locks. External triggers
// enter through Handle; automatic dealing is exposed as Pending/Step so the
// owner (normally a Runner) decides the pacing between cards.
package round

import (
	"fmt"
	"io"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/gameid"
	"github.com/lox/blackjack/internal/table"
)

// Seating supplies the occupied seats when a round starts
type Seating interface {
	OccupiedSeats() []table.Seat
}

// Option configures an Engine during creation
type Option func(*engineConfig)

type engineConfig struct {
	strategy blackjack.Strategy
	packs    int
	sink     Sink
	logger   *log.Logger
	clock    quartz.Clock
	ids      *gameid.Generator
	stacked  []blackjack.Card
}

// WithStrategy sets the policy used for AI seats (default BasicStrategy)
func WithStrategy(s blackjack.Strategy) Option {
	return func(c *engineConfig) { c.strategy = s }
}

// WithPacks sets how many standard packs go into each shoe (default 1)
func WithPacks(n int) Option {
	return func(c *engineConfig) { c.packs = n }
}

// WithSink sets the presentation sink that receives every event
func WithSink(s Sink) Option {
	return func(c *engineConfig) { c.sink = s }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// WithClock sets the clock used for event timestamps and round IDs
func WithClock(clock quartz.Clock) Option {
	return func(c *engineConfig) { c.clock = clock }
}

// WithIDs sets the round ID generator
func WithIDs(g *gameid.Generator) Option {
	return func(c *engineConfig) { c.ids = g }
}

// WithStackedShoe replaces shuffling with a fixed card order, dealt front
// first, for every round.
func WithStackedShoe(cards []blackjack.Card) Option {
	return func(c *engineConfig) { c.stacked = append([]blackjack.Card(nil), cards...) }
}

// The dealer's second card is dealt face down
const holeCardIndex = 1

type step uint8

const (
	stepNone step = iota
	stepDealCard
	stepBeginTurns
	stepDealerCard
	stepDealerSettle
)

type dealTarget struct {
	owner    Owner
	stage    DealStage
	faceDown bool
}

type seatHand struct {
	seat table.Seat
	hand blackjack.Hand
}

// Engine is the round state machine for one table
type Engine struct {
	tableID  string
	seating  Seating
	rng      *rand.Rand
	strategy blackjack.Strategy
	packs    int
	stacked  []blackjack.Card
	sink     Sink
	logger   *log.Logger
	clock    quartz.Clock
	ids      *gameid.Generator

	dealer string

	roundID    string
	phase      Phase
	stage      DealStage
	await      Await
	next       step
	halted     bool
	shoe       *blackjack.Shoe
	queue      []dealTarget
	seats      []seatHand
	dealerHand blackjack.Hand
	holeHidden bool
	upCard     int
	turn       int
	results    []SeatResult
}

// New creates an engine for a table. A nil rng shuffles from the global source.
func New(tableID string, seating Seating, rng *rand.Rand, opts ...Option) *Engine {
	if seating == nil {
		panic("seating is required")
	}

	cfg := &engineConfig{
		strategy: blackjack.BasicStrategy,
		packs:    1,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.New(io.Discard)
	}
	if cfg.clock == nil {
		cfg.clock = quartz.NewReal()
	}
	if cfg.ids == nil {
		clock := cfg.clock
		cfg.ids = gameid.NewGenerator(nil, func() time.Time { return clock.Now() })
	}
	if cfg.packs < 1 {
		cfg.packs = 1
	}

	return &Engine{
		tableID:  tableID,
		seating:  seating,
		rng:      rng,
		strategy: cfg.strategy,
		packs:    cfg.packs,
		stacked:  cfg.stacked,
		sink:     cfg.sink,
		logger:   cfg.logger.WithPrefix("round").With("table", tableID),
		clock:    cfg.clock,
		ids:      cfg.ids,
		await:    AwaitStart,
	}
}

// TableID returns the table this engine deals for
func (e *Engine) TableID() string {
	return e.tableID
}

// Phase returns the current phase
func (e *Engine) Phase() Phase {
	return e.phase
}

// Await returns what the engine is currently waiting for
func (e *Engine) Await() Await {
	return e.await
}

// Halted reports whether the round stopped on an empty shoe
func (e *Engine) Halted() bool {
	return e.halted
}

// Dealer returns the bound dealer actor, or "" when none is bound
func (e *Engine) Dealer() string {
	return e.dealer
}

// BindDealer records the actor acting as dealer
func (e *Engine) BindDealer(actor string) error {
	if actor == "" {
		return fmt.Errorf("bind dealer: empty actor")
	}
	if e.dealer != "" && e.dealer != actor {
		return fmt.Errorf("bind %s: %w (%s)", actor, ErrDealerBound, e.dealer)
	}
	e.dealer = actor
	e.logger.Info("Dealer bound", "actor", actor)
	return nil
}

// UnbindDealer clears the dealer. A round in progress is cancelled and reset.
func (e *Engine) UnbindDealer() {
	if e.dealer == "" {
		return
	}
	e.logger.Info("Dealer unbound", "actor", e.dealer)
	e.cancel("dealer left the table")
	e.dealer = ""
}

// Pending reports whether automatic work is waiting for Step
func (e *Engine) Pending() bool {
	return e.next != stepNone
}

// Handle applies one external trigger. Triggers that do not apply to the
// current state are rejected with a reason and change nothing.
func (e *Engine) Handle(t Trigger) Result {
	if t.Kind == CancelDealerRole {
		if e.dealer == "" {
			return e.reject(t, ErrNoDealer)
		}
		e.logger.Info("Dealer role cancelled", "actor", e.dealer)
		e.cancel("dealer role cancelled")
		e.dealer = ""
		return e.result(Accepted, nil)
	}

	if e.Pending() {
		return e.reject(t, ErrBusy)
	}

	if e.halted && t.Kind != ResetRound {
		return e.reject(t, fmt.Errorf("%w: round halted on an empty shoe, reset required", ErrNotAwaiting))
	}

	switch t.Kind {
	case DealOrAdvance:
		return e.handleDealOrAdvance(t)
	case RevealDealerCard:
		return e.handleReveal(t)
	case ResetRound:
		return e.handleReset(t)
	case SeatHit, SeatStand:
		return e.handleSeatDecision(t)
	default:
		return e.reject(t, fmt.Errorf("%w: %d", ErrUnknownTrigger, t.Kind))
	}
}

func (e *Engine) handleDealOrAdvance(t Trigger) Result {
	switch e.await {
	case AwaitStart:
		return e.dealCards(t)
	case AwaitSeatCard:
		return e.dealSeatCard()
	case AwaitDealerCard:
		e.await = AwaitNone
		e.next = stepDealerCard
		return e.result(Accepted, nil)
	}
	if e.phase.InProgress() {
		return e.reject(t, ErrRoundInProgress)
	}
	return e.reject(t, ErrNotAwaiting)
}

func (e *Engine) dealCards(t Trigger) Result {
	if e.dealer == "" {
		return e.reject(t, ErrNoDealer)
	}
	if e.phase.InProgress() {
		return e.reject(t, ErrRoundInProgress)
	}
	occupied := e.seating.OccupiedSeats()
	if len(occupied) == 0 {
		return e.reject(t, ErrNoSeats)
	}

	e.roundID = e.ids.Next()
	e.seats = make([]seatHand, len(occupied))
	for i, s := range occupied {
		e.seats[i] = seatHand{seat: s}
	}

	e.shoe = blackjack.NewShoe(e.rng)
	if e.stacked != nil {
		e.shoe.Stack(e.stacked)
	} else {
		e.shoe.Initialize(blackjack.StandardPacks(e.packs)...)
	}
	e.setPhase(ShoeReady)

	e.queue = e.queue[:0]
	for _, s := range e.seats {
		e.queue = append(e.queue, dealTarget{owner: SeatOwner(s.seat.ID), stage: SeatsFirst})
	}
	e.queue = append(e.queue, dealTarget{owner: DealerOwner, stage: DealerUpCard})
	for _, s := range e.seats {
		e.queue = append(e.queue, dealTarget{owner: SeatOwner(s.seat.ID), stage: SeatsSecond})
	}
	e.queue = append(e.queue, dealTarget{owner: DealerOwner, stage: DealerHoleCard, faceDown: true})

	e.stage = SeatsFirst
	e.setPhase(Dealing)
	e.await = AwaitNone
	e.next = stepDealCard

	e.logger.Info("Round started",
		"round", e.roundID,
		"seats", len(e.seats),
		"shoe", e.shoe.Remaining())
	return e.result(Accepted, nil)
}

func (e *Engine) dealSeatCard() Result {
	sh := &e.seats[e.turn]
	card, ok := e.draw(SeatOwner(sh.seat.ID))
	if !ok {
		return e.result(Halted, blackjack.ErrShoeEmpty)
	}
	e.await = AwaitNone
	sh.hand.Add(card)
	e.emit(CardDealtEvent{Header: e.header(), Owner: SeatOwner(sh.seat.ID), Card: card})
	e.emitSeatHand(sh)
	e.playTurns()
	return e.result(Accepted, nil)
}

func (e *Engine) handleSeatDecision(t Trigger) Result {
	if e.await != AwaitSeatDecision {
		return e.reject(t, ErrNotAwaiting)
	}
	sh := &e.seats[e.turn]
	if t.Seat != sh.seat.ID {
		return e.reject(t, fmt.Errorf("%w: seat %d is acting", ErrWrongSeat, sh.seat.ID))
	}

	action := blackjack.Stand
	if t.Kind == SeatHit {
		action = blackjack.Hit
	}
	e.emit(DecisionMadeEvent{
		Header:   e.header(),
		Seat:     sh.seat.ID,
		Decision: blackjack.Decision{Action: action, Rationale: blackjack.RationaleHuman},
		Score:    sh.hand.Score(),
	})

	if action == blackjack.Hit {
		e.suspend(AwaitSeatCard, sh.seat.ID)
		return e.result(Accepted, nil)
	}
	e.turn++
	e.playTurns()
	return e.result(Accepted, nil)
}

func (e *Engine) handleReveal(t Trigger) Result {
	if e.await != AwaitReveal {
		return e.reject(t, ErrNotAwaiting)
	}
	e.await = AwaitNone
	e.holeHidden = false

	score := e.dealerHand.Score()
	e.emit(DealerRevealedEvent{
		Header:   e.header(),
		HoleCard: e.dealerHand.Cards[holeCardIndex],
		Cards:    e.cards(&e.dealerHand),
		Score:    score,
	})
	e.emitDealerHand()
	e.logger.Debug("Dealer revealed", "hand", e.dealerHand.String(), "total", score.Best())

	e.dealerCheck()
	return e.result(Accepted, nil)
}

func (e *Engine) handleReset(t Trigger) Result {
	if e.phase != Resolution && !e.halted {
		if e.phase.InProgress() {
			return e.reject(t, ErrRoundInProgress)
		}
		return e.reject(t, ErrNotAwaiting)
	}
	e.reset()
	return e.result(Accepted, nil)
}

// Step performs one unit of automatic work. It is a no-op when nothing is pending.
func (e *Engine) Step() Result {
	switch e.next {
	case stepDealCard:
		return e.stepDealCard()
	case stepBeginTurns:
		e.next = stepNone
		e.setPhase(PlayerTurns)
		e.turn = 0
		e.playTurns()
	case stepDealerCard:
		return e.stepDealerCard()
	case stepDealerSettle:
		e.next = stepNone
		e.dealerCheck()
	}
	return e.result(Accepted, nil)
}

func (e *Engine) stepDealCard() Result {
	target := e.queue[0]
	e.stage = target.stage

	card, ok := e.draw(target.owner)
	if !ok {
		return e.result(Halted, blackjack.ErrShoeEmpty)
	}
	e.queue = e.queue[1:]

	if target.owner.IsDealer() {
		e.dealerHand.Add(card)
		if target.stage == DealerUpCard {
			e.upCard = card.Value
		}
		if target.faceDown {
			e.holeHidden = true
		}
		shown := card
		if target.faceDown {
			shown = blackjack.Card{}
		}
		e.emit(CardDealtEvent{Header: e.header(), Owner: DealerOwner, Card: shown, FaceDown: target.faceDown})
		e.emitDealerHand()
	} else {
		sh := e.seatHand(target.owner.Seat())
		sh.hand.Add(card)
		e.emit(CardDealtEvent{Header: e.header(), Owner: target.owner, Card: card})
		e.emitSeatHand(sh)
	}

	if len(e.queue) == 0 {
		e.next = stepBeginTurns
	}
	return e.result(Accepted, nil)
}

func (e *Engine) stepDealerCard() Result {
	card, ok := e.draw(DealerOwner)
	if !ok {
		return e.result(Halted, blackjack.ErrShoeEmpty)
	}
	e.dealerHand.Add(card)
	e.emit(CardDealtEvent{Header: e.header(), Owner: DealerOwner, Card: card})
	e.emitDealerHand()
	e.next = stepDealerSettle
	return e.result(Accepted, nil)
}

// playTurns advances through the seats from the current turn until one needs
// a trigger or every seat has finished.
func (e *Engine) playTurns() {
	for e.turn < len(e.seats) {
		sh := &e.seats[e.turn]
		score := sh.hand.Score()
		if score.Bust {
			e.logger.Debug("Seat bust", "seat", sh.seat.ID, "total", score.Hard)
			e.turn++
			continue
		}

		if sh.seat.Occupant == table.Human {
			e.suspend(AwaitSeatDecision, sh.seat.ID)
			return
		}

		decision := e.strategy.Decide(score, e.upCard)
		e.emit(DecisionMadeEvent{Header: e.header(), Seat: sh.seat.ID, Decision: decision, Score: score})
		e.logger.Debug("Seat decided",
			"seat", sh.seat.ID,
			"action", decision.Action,
			"rationale", decision.Rationale,
			"total", score.Best())

		if decision.Action == blackjack.Hit {
			e.suspend(AwaitSeatCard, sh.seat.ID)
			return
		}
		e.turn++
	}

	e.setPhase(DealerReveal)
	e.suspend(AwaitReveal, 0)
}

func (e *Engine) dealerCheck() {
	score := e.dealerHand.Score()
	if score.Bust || score.Best() >= blackjack.DealerStandTotal {
		e.resolve()
		return
	}
	if e.phase != DealerDraw {
		e.setPhase(DealerDraw)
	}
	e.suspend(AwaitDealerCard, 0)
}

func (e *Engine) resolve() {
	e.setPhase(Resolution)

	dealer := e.dealerHand.Score()
	e.results = make([]SeatResult, len(e.seats))
	for i := range e.seats {
		sh := &e.seats[i]
		score := sh.hand.Score()
		e.results[i] = SeatResult{
			Seat:    sh.seat.ID,
			Cards:   e.cards(&sh.hand),
			Score:   score,
			Outcome: blackjack.Resolve(score, dealer),
		}
	}

	e.emit(RoundResolvedEvent{
		Header:      e.header(),
		DealerCards: e.cards(&e.dealerHand),
		Dealer:      dealer,
		Results:     append([]SeatResult(nil), e.results...),
	})
	e.logger.Info("Round resolved",
		"round", e.roundID,
		"dealer", dealer.Best(),
		"dealerBust", dealer.Bust)
	e.suspend(AwaitReset, 0)
}

func (e *Engine) cancel(reason string) {
	if !e.phase.InProgress() {
		return
	}
	e.emit(RoundCancelledEvent{Header: e.header(), Phase: e.phase, Reason: reason})
	e.logger.Warn("Round cancelled", "round", e.roundID, "phase", e.phase, "reason", reason)
	e.reset()
}

func (e *Engine) reset() {
	e.next = stepNone
	e.halted = false
	e.shoe = nil
	e.queue = nil
	e.seats = nil
	e.results = nil
	e.dealerHand.Reset()
	e.holeHidden = false
	e.upCard = 0
	e.turn = 0
	e.stage = SeatsFirst
	e.setPhase(Idle)
	e.roundID = ""
	e.suspend(AwaitStart, 0)
}

// draw takes the next card from the shoe. On an empty shoe the round halts
// until it is reset.
func (e *Engine) draw(owner Owner) (blackjack.Card, bool) {
	card, ok := e.shoe.Draw()
	if !ok {
		e.halted = true
		e.next = stepNone
		e.queue = nil
		e.await = AwaitReset
		e.emit(ShoeExhaustedEvent{Header: e.header(), Phase: e.phase, Owner: owner})
		e.logger.Warn("Shoe exhausted, dealing halted", "round", e.roundID, "phase", e.phase, "owner", owner)
		return blackjack.Card{}, false
	}
	e.logger.Debug("Card drawn", "owner", owner, "card", card.Name(), "remaining", e.shoe.Remaining())
	return card, true
}

func (e *Engine) suspend(a Await, seat int) {
	e.await = a
	e.emit(AwaitingEvent{Header: e.header(), Phase: e.phase, Await: a, Seat: seat})
}

func (e *Engine) setPhase(p Phase) {
	if e.phase == p {
		return
	}
	from := e.phase
	e.phase = p
	e.emit(PhaseChangedEvent{Header: e.header(), From: from, To: p})
}

func (e *Engine) seatHand(id int) *seatHand {
	for i := range e.seats {
		if e.seats[i].seat.ID == id {
			return &e.seats[i]
		}
	}
	panic(fmt.Sprintf("seat %d is not in the round", id))
}

func (e *Engine) emitSeatHand(sh *seatHand) {
	e.emit(HandUpdatedEvent{
		Header: e.header(),
		Owner:  SeatOwner(sh.seat.ID),
		Cards:  e.cards(&sh.hand),
		Score:  sh.hand.Score(),
	})
}

func (e *Engine) emitDealerHand() {
	cards, score := e.dealerView()
	e.emit(HandUpdatedEvent{Header: e.header(), Owner: DealerOwner, Cards: cards, Score: score})
}

// dealerView returns the dealer's cards and score as players may see them:
// while the hole card is hidden it is replaced by a zero card and excluded
// from the score.
func (e *Engine) dealerView() ([]blackjack.Card, blackjack.Score) {
	cards := e.cards(&e.dealerHand)
	if !e.holeHidden {
		return cards, e.dealerHand.Score()
	}
	visible := make([]blackjack.Card, 0, len(cards))
	for i, c := range cards {
		if i == holeCardIndex {
			cards[i] = blackjack.Card{}
			continue
		}
		visible = append(visible, c)
	}
	return cards, blackjack.Evaluate(visible)
}

func (e *Engine) cards(h *blackjack.Hand) []blackjack.Card {
	return append([]blackjack.Card(nil), h.Cards...)
}

func (e *Engine) header() Header {
	return Header{TableID: e.tableID, RoundID: e.roundID, At: e.clock.Now()}
}

func (e *Engine) emit(ev Event) {
	if e.sink != nil {
		e.sink.OnEvent(ev)
	}
}

func (e *Engine) result(s Status, err error) Result {
	return Result{Status: s, Phase: e.phase, Await: e.await, Err: err}
}

func (e *Engine) reject(t Trigger, err error) Result {
	e.logger.Warn("Trigger rejected", "trigger", t, "phase", e.phase, "await", e.await, "reason", err)
	return e.result(Rejected, err)
}
