package history

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/round"
)

func openMemory(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func resolvedEvent(roundID string, at time.Time) round.RoundResolvedEvent {
	dealer := blackjack.MustParseCards("Th9c")
	seat1 := blackjack.MustParseCards("Ts8s")
	seat2 := blackjack.MustParseCards("Td6h6s")
	return round.RoundResolvedEvent{
		Header:      round.Header{TableID: "main", RoundID: roundID, At: at},
		DealerCards: dealer,
		Dealer:      blackjack.Evaluate(dealer),
		Results: []round.SeatResult{
			{Seat: 1, Cards: seat1, Score: blackjack.Evaluate(seat1), Outcome: blackjack.Lose},
			{Seat: 2, Cards: seat2, Score: blackjack.Evaluate(seat2), Outcome: blackjack.Lose},
		},
	}
}

func TestFromEvent(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := FromEvent(resolvedEvent("rnd_1", at))

	assert.Equal(t, "rnd_1", r.RoundID)
	assert.Equal(t, "main", r.TableID)
	assert.Equal(t, at, r.ResolvedAt)
	assert.Equal(t, "T♥ 9♣", r.DealerCards)
	assert.Equal(t, 19, r.DealerTotal)
	assert.False(t, r.DealerBust)
	require.Len(t, r.Seats, 2)
	assert.Equal(t, SeatRecord{Seat: 1, Cards: "T♠ 8♠", Total: 18, Outcome: "lose"}, r.Seats[0])
	assert.Equal(t, SeatRecord{Seat: 2, Cards: "T♦ 6♥ 6♠", Total: 22, Bust: true, Outcome: "lose"}, r.Seats[1])
}

func TestSQLiteRecordAndRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openMemory(t)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"rnd_a", "rnd_b", "rnd_c"} {
		require.NoError(t, store.Record(ctx, FromEvent(resolvedEvent(id, base.Add(time.Duration(i)*time.Minute)))))
	}

	other := FromEvent(resolvedEvent("rnd_other", base))
	other.TableID = "side"
	require.NoError(t, store.Record(ctx, other))

	rounds, err := store.Recent(ctx, "main", 2)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, "rnd_c", rounds[0].RoundID)
	assert.Equal(t, "rnd_b", rounds[1].RoundID)
	assert.Equal(t, base.Add(2*time.Minute), rounds[0].ResolvedAt)
	assert.Equal(t, FromEvent(resolvedEvent("rnd_c", base.Add(2*time.Minute))), rounds[0])

	err = store.Record(ctx, FromEvent(resolvedEvent("rnd_a", base)))
	assert.Error(t, err, "round IDs are unique")

	rounds, err = store.Recent(ctx, "main", 10)
	require.NoError(t, err)
	assert.Len(t, rounds, 3)
}

func TestRecorderWritesResolvedRounds(t *testing.T) {
	t.Parallel()
	store := openMemory(t)
	rec := NewRecorder(store, log.NewWithOptions(io.Discard, log.Options{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	rec.OnEvent(round.PhaseChangedEvent{From: round.DealerDraw, To: round.Resolution})
	rec.OnEvent(resolvedEvent("rnd_1", time.Now()))

	require.Eventually(t, func() bool {
		rounds, err := store.Recent(context.Background(), "main", 10)
		return err == nil && len(rounds) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestRecorderFlushesOnShutdown(t *testing.T) {
	t.Parallel()

	// Run picks between the queue and the cancelled context at random, so
	// repeat until both branches have been taken.
	for i := range 20 {
		store := openMemory(t)
		rec := NewRecorder(store, log.NewWithOptions(io.Discard, log.Options{}))

		rec.OnEvent(resolvedEvent("rnd_1", time.Now()))
		rec.OnEvent(resolvedEvent("rnd_2", time.Now()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, rec.Run(ctx))

		rounds, err := store.Recent(context.Background(), "main", 10)
		require.NoError(t, err)
		assert.Len(t, rounds, 2, "iteration %d", i)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := Open(ctx, "none", "")
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, store)

	store, err = Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	assert.NoError(t, store.Close())

	_, err = Open(ctx, "mysql", "")
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = Open(ctx, "sqlite", " ")
	assert.Error(t, err)
}
