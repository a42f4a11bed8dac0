package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/round"
)

type fakeBackend struct {
	mu       sync.Mutex
	triggers []round.Trigger
	result   round.Result
	err      error
	snapshot round.Snapshot
}

func (b *fakeBackend) Trigger(_ context.Context, t round.Trigger) (round.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.triggers = append(b.triggers, t)
	return b.result, b.err
}

func (b *fakeBackend) Snapshot(context.Context) (round.Snapshot, error) {
	return b.snapshot, nil
}

func newTestModel(backend Backend) *Model {
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	return New(backend, nil, logger)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs a command tree and returns the messages it produces
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func TestKeysSendTriggers(t *testing.T) {
	cases := []struct {
		key  string
		want round.Trigger
	}{
		{"d", round.Trigger{Kind: round.DealOrAdvance}},
		{" ", round.Trigger{Kind: round.DealOrAdvance}},
		{"r", round.Trigger{Kind: round.RevealDealerCard}},
		{"n", round.Trigger{Kind: round.ResetRound}},
		{"h", round.Trigger{Kind: round.SeatHit, Seat: 2}},
		{"s", round.Trigger{Kind: round.SeatStand, Seat: 2}},
	}

	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			backend := &fakeBackend{result: round.Result{Status: round.Accepted}}
			m := newTestModel(backend)
			m.snapshot.ActingSeat = 2

			_, cmd := m.Update(key(tc.key))
			msgs := collect(cmd)

			require.Len(t, backend.triggers, 1)
			assert.Equal(t, tc.want, backend.triggers[0])

			var found bool
			for _, msg := range msgs {
				if tm, ok := msg.(triggerMsg); ok {
					found = true
					m.Update(tm)
				}
			}
			assert.True(t, found)
			assert.Contains(t, m.Status(), "ok")
		})
	}
}

func TestQuit(t *testing.T) {
	for _, k := range []tea.KeyMsg{key("q"), {Type: tea.KeyCtrlC}} {
		m := newTestModel(&fakeBackend{})
		_, cmd := m.Update(k)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Empty(t, m.View())
	}
}

func TestRejectedTriggerStatus(t *testing.T) {
	m := newTestModel(&fakeBackend{})

	m.Update(triggerMsg{
		trigger: round.Trigger{Kind: round.RevealDealerCard},
		result:  round.Result{Status: round.Rejected, Err: round.ErrNotAwaiting},
	})
	assert.Contains(t, m.Status(), "reveal rejected")

	m.Update(triggerMsg{
		trigger: round.Trigger{Kind: round.DealOrAdvance},
		result:  round.Result{Status: round.Halted, Err: blackjack.ErrShoeEmpty},
	})
	assert.Contains(t, m.Status(), "halted")

	m.Update(triggerMsg{
		trigger: round.Trigger{Kind: round.DealOrAdvance},
		err:     errors.New("runner stopped"),
	})
	assert.Contains(t, m.Status(), "runner stopped")
}

func TestEventsAppendToLog(t *testing.T) {
	events := make(chan round.Event, 4)
	backend := &fakeBackend{snapshot: round.Snapshot{TableID: "main", Phase: round.Dealing}}
	logger := log.NewWithOptions(io.Discard, log.Options{})
	m := New(backend, events, logger)

	events <- round.CardDealtEvent{Owner: round.SeatOwner(1), Card: blackjack.NewCard(blackjack.Ten, blackjack.Spades)}
	msgs := collect(m.waitForEvent())
	require.Len(t, msgs, 1)

	_, cmd := m.Update(msgs[0])
	require.Len(t, m.Log(), 1)
	assert.Contains(t, m.Log()[0], "seat 1 is dealt")

	// the follow-up refresh loads the snapshot; the next wait would block so
	// only run the refresh
	snap := m.refresh()()
	m.Update(snap)
	assert.Equal(t, "main", m.snapshot.TableID)
	assert.NotNil(t, cmd)
}

func TestFormatEvent(t *testing.T) {
	ten := blackjack.NewCard(blackjack.Ten, blackjack.Spades)
	six := blackjack.NewCard(blackjack.Six, blackjack.Hearts)

	assert.Contains(t, FormatEvent(round.CardDealtEvent{Owner: round.DealerOwner, FaceDown: true}), "dealer is dealt a card face down")
	assert.Contains(t, FormatEvent(round.PhaseChangedEvent{From: round.Dealing, To: round.PlayerTurns}), "PLAYER-TURNS")

	hit := FormatEvent(round.DecisionMadeEvent{
		Seat:     1,
		Decision: blackjack.Decision{Action: blackjack.Hit, Rationale: blackjack.RationaleLowTotal},
		Score:    blackjack.Evaluate([]blackjack.Card{ten, six}),
	})
	assert.Contains(t, hit, "HIT")
	assert.Contains(t, hit, "16")
	assert.Contains(t, hit, "low-total")

	resolved := FormatEvent(round.RoundResolvedEvent{
		Dealer:  blackjack.Evaluate([]blackjack.Card{ten, six, ten}),
		Results: []round.SeatResult{{Seat: 1, Outcome: blackjack.Win}},
	})
	assert.Contains(t, resolved, "26 bust")
	assert.Contains(t, resolved, "WIN")

	assert.Empty(t, FormatEvent(round.HandUpdatedEvent{Owner: round.SeatOwner(1)}))
}

func TestViewRendersTable(t *testing.T) {
	ten := blackjack.NewCard(blackjack.Ten, blackjack.Spades)
	m := newTestModel(&fakeBackend{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.Update(snapshotMsg{snapshot: round.Snapshot{
		TableID: "main",
		Phase:   round.PlayerTurns,
		Dealer: round.DealerView{
			Actor:      "alice",
			Cards:      []blackjack.Card{ten, {}},
			Score:      blackjack.Evaluate([]blackjack.Card{ten}),
			HoleHidden: true,
		},
		Seats: []round.SeatView{{Seat: 1, Cards: []blackjack.Card{ten}, Acting: true}},
	}})

	view := m.View()
	assert.Contains(t, view, "Blackjack · main")
	assert.Contains(t, view, "Dealer (alice)")
	assert.Contains(t, view, "▶ Seat 1")
	assert.True(t, strings.Contains(view, "10+?"))
}
