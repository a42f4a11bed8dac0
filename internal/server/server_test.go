package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/dealer"
	"github.com/lox/blackjack/internal/history"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/round"
	"github.com/lox/blackjack/internal/table"
)

type testServer struct {
	*httptest.Server
	srv   *Server
	store *history.SQLiteStore
}

// newTestServer serves one table "main" with an AI in seat 1. The shoe deals
// seat 1 T,9 against a dealer 6 up and T in the hole, then a 5 for the dealer.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := log.NewWithOptions(io.Discard, log.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store, err := history.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tbl := table.New("main", "Main", 3, true)
	require.NoError(t, tbl.Sit(1, table.AI))

	bus := round.NewEventBus()
	clock := quartz.NewMock(t)
	engine := round.New("main", tbl, randutil.New(1),
		round.WithLogger(logger),
		round.WithClock(clock),
		round.WithSink(bus),
		round.WithStackedShoe(blackjack.MustParseCards("Ts6h9dTc5s")))
	runner := round.NewRunner(engine, clock, 0, logger)
	go func() { _ = runner.Run(ctx) }()

	ctrl := dealer.NewController(nil, logger)
	ctrl.AddTable(tbl, runner)

	srv := NewServer("", ctrl, store, logger)
	srv.AddTable(tbl, runner)
	bus.Subscribe(srv)
	srv.Start(ctx)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, srv: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) trigger(t *testing.T, actor, kind string) (int, TriggerResultData) {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/tables/main/triggers", TriggerData{Actor: actor, Trigger: kind})
	return resp.StatusCode, decode[TriggerResultData](t, resp)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListTablesAndSnapshot(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/tables", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[TableListData](t, resp)
	require.Len(t, list.Tables, 1)
	assert.Equal(t, TableInfo{ID: "main", Name: "Main", Seats: 3, Occupied: 1, DealerPosition: true}, list.Tables[0])

	resp = ts.do(t, http.MethodGet, "/tables/main", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[SnapshotData](t, resp)
	assert.Equal(t, "idle", snap.Phase)
	assert.Equal(t, "start", snap.Await)

	resp = ts.do(t, http.MethodGet, "/tables/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerFlow(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	status, _ := ts.trigger(t, "alice", "deal")
	assert.Equal(t, http.StatusForbidden, status, "not a dealer yet")

	resp := ts.do(t, http.MethodPost, "/tables/main/dealer", JoinDealerData{Actor: "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/tables/main/dealer", JoinDealerData{Actor: "bob"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	status, res := ts.trigger(t, "alice", "deal")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "accepted", res.Status)
	assert.Equal(t, "reveal", res.Await)

	resp = ts.do(t, http.MethodGet, "/tables/main", nil)
	snap := decode[SnapshotData](t, resp)
	assert.True(t, snap.Dealer.HoleHidden)
	require.Len(t, snap.Dealer.Cards, 2)
	assert.True(t, snap.Dealer.Cards[1].FaceDown)
	assert.Empty(t, snap.Dealer.Cards[1].Text)
	assert.Equal(t, 6, snap.Dealer.Score.Best)

	status, res = ts.trigger(t, "alice", "reset")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "rejected", res.Status)
	assert.Contains(t, res.Reason, round.ErrRoundInProgress.Error())

	status, res = ts.trigger(t, "alice", "reveal")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dealer-card", res.Await)

	status, res = ts.trigger(t, "alice", "deal")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "resolution", res.Phase)

	resp = ts.do(t, http.MethodGet, "/tables/main", nil)
	snap = decode[SnapshotData](t, resp)
	require.Len(t, snap.Results, 1)
	assert.Equal(t, "lose", snap.Results[0].Outcome)
	assert.Equal(t, 21, snap.Dealer.Score.Best)

	resp = ts.do(t, http.MethodPost, "/tables/main/triggers", TriggerData{Actor: "alice", Trigger: "split"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown_trigger", decode[ErrorData](t, resp).Code)

	resp = ts.do(t, http.MethodDelete, "/tables/main/dealer/alice", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/tables/main/dealer/alice", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSeats(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/tables/main/seats", SitData{Occupant: "human"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, SitData{Seat: 2, Occupant: "human"}, decode[SitData](t, resp))

	resp = ts.do(t, http.MethodPost, "/tables/main/seats", SitData{Seat: 1, Occupant: "ai"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/tables/main/seats", SitData{Seat: 9, Occupant: "ai"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/tables/main/seats", SitData{Occupant: "ghost"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/tables/main/seats/2", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/tables/main/seats/2", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHistoryEndpoint(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/tables/main/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]history.Round](t, resp))

	require.NoError(t, ts.store.Record(context.Background(), history.Round{
		RoundID:     "rnd_1",
		TableID:     "main",
		ResolvedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DealerCards: "T♥ 9♣",
		DealerTotal: 19,
		Seats:       []history.SeatRecord{{Seat: 1, Cards: "T♠ 9♦", Total: 19, Outcome: "push"}},
	}))

	resp = ts.do(t, http.MethodGet, "/tables/main/history?limit=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rounds := decode[[]history.Round](t, resp)
	require.Len(t, rounds, 1)
	assert.Equal(t, "rnd_1", rounds[0].RoundID)

	resp = ts.do(t, http.MethodGet, "/tables/main/history?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocketStreamsEvents(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/tables/main/dealer", JoinDealerData{Actor: "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/tables/main/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	readMessage := func() Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	first := readMessage()
	assert.Equal(t, MessageTypeSnapshot, first.Type)

	trigger, err := NewMessage(MessageTypeTrigger, TriggerData{Actor: "alice", Trigger: "deal"})
	require.NoError(t, err)
	trigger.RequestID = "req-1"
	require.NoError(t, conn.WriteJSON(trigger))

	var sawHoleCard, sawResult bool
	for !sawResult {
		msg := readMessage()
		switch msg.Type {
		case MessageTypeCardDealt:
			var data EventData
			require.NoError(t, json.Unmarshal(msg.Data, &data))
			if data.Card.FaceDown {
				sawHoleCard = true
				assert.Empty(t, data.Card.Text, "hole card must not leak")
			}
		case MessageTypeTriggerResult:
			assert.Equal(t, "req-1", msg.RequestID)
			var data TriggerResultData
			require.NoError(t, json.Unmarshal(msg.Data, &data))
			assert.Equal(t, "accepted", data.Status)
			sawResult = true
		}
	}
	assert.True(t, sawHoleCard)

	bad, err := NewMessage(MessageTypeTrigger, TriggerData{Actor: "mallory", Trigger: "reveal"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(bad))
	for {
		msg := readMessage()
		if msg.Type == MessageTypeError {
			var data ErrorData
			require.NoError(t, json.Unmarshal(msg.Data, &data))
			assert.Equal(t, "not_dealer", data.Code)
			break
		}
	}
}
