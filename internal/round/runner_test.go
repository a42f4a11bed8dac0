package round

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/table"
)

const testPace = time.Second

func startRunner(t *testing.T, clock quartz.Clock, pace time.Duration, cards string, occupants ...table.Occupant) (*Runner, *recordingSink) {
	t.Helper()

	sink := &recordingSink{}
	tbl := newTestTable(t, occupants...)
	e := New("t1", tbl, randutil.New(7),
		WithSink(sink),
		WithLogger(testLogger()),
		WithClock(clock),
		WithStackedShoe(blackjack.MustParseCards(cards)))
	r := NewRunner(e, clock, pace, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-r.Done()
	})

	require.NoError(t, r.BindDealer(context.Background(), "alice"))
	return r, sink
}

func cardsOnTable(s Snapshot) int {
	n := len(s.Dealer.Cards)
	for _, seat := range s.Seats {
		n += len(seat.Cards)
	}
	return n
}

func TestRunnerPacesInitialDeal(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mClock := quartz.NewMock(t)
	r, _ := startRunner(t, mClock, testPace, "Ts6h9dTc5s", table.AI)

	res, err := r.Submit(ctx, Trigger{Kind: DealOrAdvance})
	require.NoError(t, err)
	require.True(t, res.OK())

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cardsOnTable(snap), "first card is dealt immediately")
	assert.True(t, snap.Busy)

	res, err = r.Submit(ctx, Trigger{Kind: DealOrAdvance})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, ErrBusy)

	for want := 2; want <= 4; want++ {
		mClock.Advance(testPace).MustWait(ctx)
		require.Eventually(t, func() bool {
			snap, err := r.Snapshot(ctx)
			return err == nil && cardsOnTable(snap) == want
		}, time.Second, 5*time.Millisecond, "card %d", want)
	}

	snap, err = r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, Dealing, snap.Phase, "turns start one pace after the hole card")

	mClock.Advance(testPace).MustWait(ctx)
	require.Eventually(t, func() bool {
		snap, err := r.Snapshot(ctx)
		return err == nil && snap.Await == AwaitReveal
	}, time.Second, 5*time.Millisecond)
}

func TestRunnerPacesDealerDraw(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mClock := quartz.NewMock(t)
	r, sink := startRunner(t, mClock, 0, "Ts6h9dTc5s", table.AI)

	_, err := r.Submit(ctx, Trigger{Kind: DealOrAdvance})
	require.NoError(t, err)
	res, err := r.Submit(ctx, Trigger{Kind: RevealDealerCard})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, AwaitDealerCard, res.Await)

	res, err = r.Submit(ctx, Trigger{Kind: DealOrAdvance})
	require.NoError(t, err)
	require.True(t, res.OK())

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, Resolution, snap.Phase)
	assert.Len(t, snap.Dealer.Cards, 3)
	assert.Len(t, eventsOf[RoundResolvedEvent](sink), 1)
}

func TestRunnerZeroPaceDealsAtOnce(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := startRunner(t, quartz.NewMock(t), 0, "TsTh9d9c", table.AI)

	res, err := r.Submit(ctx, Trigger{Kind: DealOrAdvance})
	require.NoError(t, err)
	require.True(t, res.OK())

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, cardsOnTable(snap))
	assert.Equal(t, AwaitReveal, snap.Await)
	assert.False(t, snap.Busy)
}

func TestRunnerCancelStopsPacing(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mClock := quartz.NewMock(t)
	r, _ := startRunner(t, mClock, testPace, "Ts6h9dTc5s", table.AI)

	_, err := r.Submit(ctx, Trigger{Kind: DealOrAdvance})
	require.NoError(t, err)

	res, err := r.Submit(ctx, Trigger{Kind: CancelDealerRole})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, Idle, res.Phase)

	mClock.Advance(testPace).MustWait(ctx)

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, Idle, snap.Phase)
	assert.Zero(t, cardsOnTable(snap))
	assert.False(t, snap.Busy)
	assert.Empty(t, snap.Dealer.Actor)
}

func TestRunnerUnbindCancelsRound(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := startRunner(t, quartz.NewMock(t), 0, "Ts6h9dTc5s", table.AI)

	_, err := r.Submit(ctx, Trigger{Kind: DealOrAdvance})
	require.NoError(t, err)
	require.NoError(t, r.UnbindDealer(ctx))

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, Idle, snap.Phase)
	assert.Empty(t, snap.Dealer.Actor)

	res, err := r.Submit(ctx, Trigger{Kind: DealOrAdvance})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, ErrNoDealer)
}

func TestRunnerStopped(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, table.AI)
	r := NewRunner(New("t1", tbl, nil, WithLogger(testLogger())), quartz.NewMock(t), 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	_, err := r.Submit(context.Background(), Trigger{Kind: DealOrAdvance})
	assert.ErrorIs(t, err, ErrRunnerStopped)
}

func TestRunnerReportsHalt(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, sink := startRunner(t, quartz.NewMock(t), 0, "TsTh", table.AI)

	res, err := r.Submit(ctx, Trigger{Kind: DealOrAdvance})
	require.NoError(t, err)
	assert.Equal(t, Halted, res.Status)
	assert.ErrorIs(t, res.Err, blackjack.ErrShoeEmpty)
	assert.Equal(t, AwaitReset, res.Await)
	assert.Len(t, eventsOf[ShoeExhaustedEvent](sink), 1)

	res, err = r.Submit(ctx, Trigger{Kind: ResetRound})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, Idle, res.Phase)
}
