// Package tui is a terminal dealer console for one blackjack table.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/round"
	"github.com/lox/blackjack/internal/table"
)

const triggerTimeout = 5 * time.Second

// Backend is the table the console deals at
type Backend interface {
	Trigger(ctx context.Context, t round.Trigger) (round.Result, error)
	Snapshot(ctx context.Context) (round.Snapshot, error)
}

// Controller is the part of the dealer controller the console uses
type Controller interface {
	Trigger(ctx context.Context, actor string, t round.Trigger) (round.Result, error)
}

// Snapshotter reads the table state
type Snapshotter interface {
	Snapshot(ctx context.Context) (round.Snapshot, error)
}

// DealerBackend routes console triggers through the controller as actor
type DealerBackend struct {
	Controller Controller
	Table      Snapshotter
	Actor      string
}

// Trigger implements Backend
func (b DealerBackend) Trigger(ctx context.Context, t round.Trigger) (round.Result, error) {
	return b.Controller.Trigger(ctx, b.Actor, t)
}

// Snapshot implements Backend
func (b DealerBackend) Snapshot(ctx context.Context) (round.Snapshot, error) {
	return b.Table.Snapshot(ctx)
}

// Model is the Bubble Tea model for the dealer console
type Model struct {
	backend Backend
	events  <-chan round.Event
	logger  *log.Logger

	logViewport viewport.Model
	gameLog     []string
	snapshot    round.Snapshot
	status      string
	quitting    bool

	width       int
	height      int
	initialized bool
}

type eventMsg struct{ event round.Event }

type snapshotMsg struct {
	snapshot round.Snapshot
	err      error
}

type triggerMsg struct {
	trigger round.Trigger
	result  round.Result
	err     error
}

// New creates the console model. events may be nil.
func New(backend Backend, events <-chan round.Event, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	return &Model{
		backend:     backend,
		events:      events,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		status:      "Press d to deal",
	}
}

// Init loads the first snapshot and starts listening for events
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.waitForEvent())
}

func (m *Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return eventMsg{event: ev}
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()
		snap, err := m.backend.Snapshot(ctx)
		return snapshotMsg{snapshot: snap, err: err}
	}
}

func (m *Model) send(t round.Trigger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()
		res, err := m.backend.Trigger(ctx, t)
		return triggerMsg{trigger: t, result: res, err: err}
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.quitting = true
			return m, tea.Quit
		case "d", " ":
			cmds = append(cmds, m.send(round.Trigger{Kind: round.DealOrAdvance}))
		case "r":
			cmds = append(cmds, m.send(round.Trigger{Kind: round.RevealDealerCard}))
		case "n":
			cmds = append(cmds, m.send(round.Trigger{Kind: round.ResetRound}))
		case "h":
			cmds = append(cmds, m.send(round.Trigger{Kind: round.SeatHit, Seat: m.snapshot.ActingSeat}))
		case "s":
			cmds = append(cmds, m.send(round.Trigger{Kind: round.SeatStand, Seat: m.snapshot.ActingSeat}))
		case "up", "k":
			m.logViewport.ScrollUp(1)
		case "down", "j":
			m.logViewport.ScrollDown(1)
		case "home", "g":
			m.logViewport.GotoTop()
		case "end", "G":
			m.logViewport.GotoBottom()
		}
		return m, tea.Batch(cmds...)

	case eventMsg:
		if line := FormatEvent(msg.event); line != "" {
			m.AddLogEntry(line)
		}
		cmds = append(cmds, m.refresh(), m.waitForEvent())

	case snapshotMsg:
		if msg.err != nil {
			m.status = ErrorStyle.Render("Snapshot failed: " + msg.err.Error())
			break
		}
		m.snapshot = msg.snapshot

	case triggerMsg:
		m.status = m.describeResult(msg)
		cmds = append(cmds, m.refresh())
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) describeResult(msg triggerMsg) string {
	if msg.err != nil {
		m.logger.Error("Trigger failed", "trigger", msg.trigger, "error", msg.err)
		return ErrorStyle.Render(fmt.Sprintf("%s failed: %v", msg.trigger, msg.err))
	}
	switch msg.result.Status {
	case round.Rejected:
		return WarningStyle.Render(fmt.Sprintf("%s rejected: %v", msg.trigger, msg.result.Err))
	case round.Halted:
		return ErrorStyle.Render(fmt.Sprintf("Dealing halted: %v (press n to reset)", msg.result.Err))
	}
	return SuccessStyle.Render(fmt.Sprintf("%s ok", msg.trigger)) + InfoStyle.Render(" · "+prompt(msg.result.Await))
}

// prompt tells the dealer what the table is waiting for
func prompt(a round.Await) string {
	switch a {
	case round.AwaitStart:
		return "d to deal"
	case round.AwaitSeatDecision:
		return "h to hit, s to stand"
	case round.AwaitSeatCard, round.AwaitDealerCard:
		return "d to deal the next card"
	case round.AwaitReveal:
		return "r to reveal the hole card"
	case round.AwaitReset:
		return "n for a new round"
	default:
		return "dealing..."
	}
}

// AddLogEntry appends a line to the event log
func (m *Model) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.logViewport.GotoBottom()
}

// Log returns the event log lines
func (m *Model) Log() []string {
	return append([]string(nil), m.gameLog...)
}

// Status returns the status line
func (m *Model) Status() string {
	return m.status
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := HeaderStyle.Render(fmt.Sprintf("Blackjack · %s", m.snapshot.TableID))
	footer := m.status + "\n" + InfoStyle.Render("d deal/advance · r reveal · n new round · h hit · s stand · ↑↓ scroll · q quit")

	sidebarWidth := 34
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer) - 2
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	logWidth := m.width - sidebarWidth - 4
	if logWidth < 1 {
		logWidth = 1
	}

	m.logViewport.Width = logWidth
	m.logViewport.Height = bodyHeight
	if !m.initialized {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(bodyHeight).
		Render(m.logViewport.View())

	sidebar := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(sidebarWidth).
		Height(bodyHeight).
		Render(m.renderTable())

	body := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebar)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// renderTable draws the dealer and seat hands from the latest snapshot
func (m *Model) renderTable() string {
	s := m.snapshot
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", InfoStyle.Render("Phase:"), s.Phase)
	if s.Halted {
		b.WriteString(ErrorStyle.Render("Halted: shoe empty") + "\n")
	}
	fmt.Fprintf(&b, "%s %d\n\n", InfoStyle.Render("Shoe:"), s.ShoeRemaining)

	dealer := "Dealer"
	if s.Dealer.Actor != "" {
		dealer += " (" + s.Dealer.Actor + ")"
	}
	b.WriteString(HandInfoStyle.Render(dealer) + "\n")
	fmt.Fprintf(&b, "  %s  %s\n\n", FormatCards(s.Dealer.Cards), formatTotal(s.Dealer.Score, s.Dealer.HoleHidden))

	for _, seat := range s.Seats {
		label := fmt.Sprintf("Seat %d", seat.Seat)
		if seat.Occupant == table.Human {
			label += " (you)"
		}
		if seat.Acting {
			label = "▶ " + label
		}
		b.WriteString(HandInfoStyle.Render(label) + "\n")
		fmt.Fprintf(&b, "  %s  %s", FormatCards(seat.Cards), formatTotal(seat.Score, false))
		for _, r := range s.Results {
			if r.Seat == seat.Seat {
				b.WriteString("  " + formatOutcome(r.Outcome))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatCards renders cards with suit colours; hidden cards show as a back
func FormatCards(cards []blackjack.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		switch {
		case c.IsZero():
			parts[i] = HiddenCardStyle.Render("🂠")
		case c.Suit.IsRed():
			parts[i] = RedCardStyle.Render(c.String())
		default:
			parts[i] = BlackCardStyle.Render(c.String())
		}
	}
	return strings.Join(parts, " ")
}

func formatTotal(s blackjack.Score, partial bool) string {
	switch {
	case s.Hard == 0:
		return ""
	case s.Bust:
		return ErrorStyle.Render(fmt.Sprintf("%d bust", s.Hard))
	case s.Blackjack:
		return NaturalStyle.Render("21")
	case partial:
		return InfoStyle.Render(fmt.Sprintf("%d+?", s.Best()))
	case s.IsSoft():
		return fmt.Sprintf("%d/%d", s.Hard, s.Soft)
	default:
		return fmt.Sprintf("%d", s.Hard)
	}
}

func formatOutcome(o blackjack.Outcome) string {
	switch o {
	case blackjack.Win:
		return SuccessStyle.Render("WIN")
	case blackjack.Push:
		return WarningStyle.Render("PUSH")
	default:
		return ErrorStyle.Render("LOSE")
	}
}

// FormatEvent renders an engine event as a log line. Events that only feed
// the table panel return "".
func FormatEvent(event round.Event) string {
	switch ev := event.(type) {
	case round.PhaseChangedEvent:
		if ev.To == round.Idle {
			return InfoStyle.Render("--- table cleared ---")
		}
		return InfoStyle.Render(fmt.Sprintf("*** %s ***", strings.ToUpper(ev.To.String())))
	case round.CardDealtEvent:
		if ev.FaceDown {
			return fmt.Sprintf("%s is dealt a card face down", ev.Owner)
		}
		return fmt.Sprintf("%s is dealt %s", ev.Owner, FormatCards([]blackjack.Card{ev.Card}))
	case round.DecisionMadeEvent:
		style := StandStyle
		switch {
		case ev.Score.Blackjack:
			style = NaturalStyle
		case ev.Decision.Action == blackjack.Hit:
			style = HitStyle
		}
		return fmt.Sprintf("Seat %d %s on %d (%s)", ev.Seat,
			style.Render(strings.ToUpper(ev.Decision.Action.String())), ev.Score.Best(), ev.Decision.Rationale)
	case round.DealerRevealedEvent:
		return fmt.Sprintf("Dealer reveals %s for %d", FormatCards([]blackjack.Card{ev.HoleCard}), ev.Score.Best())
	case round.RoundResolvedEvent:
		parts := make([]string, len(ev.Results))
		for i, r := range ev.Results {
			parts[i] = fmt.Sprintf("seat %d %s", r.Seat, formatOutcome(r.Outcome))
		}
		dealer := fmt.Sprintf("%d", ev.Dealer.Best())
		if ev.Dealer.Bust {
			dealer = fmt.Sprintf("%d bust", ev.Dealer.Hard)
		}
		return fmt.Sprintf("Dealer %s: %s", dealer, strings.Join(parts, ", "))
	case round.RoundCancelledEvent:
		return WarningStyle.Render("Round cancelled: " + ev.Reason)
	case round.ShoeExhaustedEvent:
		return ErrorStyle.Render("Shoe exhausted, press n to reset")
	}
	return ""
}
