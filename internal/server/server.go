// Package server exposes blackjack tables over HTTP and streams round events
// to WebSocket subscribers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/dealer"
	"github.com/lox/blackjack/internal/history"
	"github.com/lox/blackjack/internal/round"
	"github.com/lox/blackjack/internal/table"
)

const defaultHistoryLimit = 20

type tableEntry struct {
	table  *table.Table
	runner *round.Runner
}

// Server serves the table API and fans round events out to WebSocket clients
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	tables      map[string]tableEntry
	ctrl        *dealer.Controller
	store       history.Store
	done        chan struct{}
}

// NewServer creates a new server. A nil store disables the history endpoint.
func NewServer(addr string, ctrl *dealer.Controller, store history.Store, logger *log.Logger) *Server {
	if store == nil {
		store = history.NopStore{}
	}
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		tables:      make(map[string]tableEntry),
		ctrl:        ctrl,
		store:       store,
		done:        make(chan struct{}),
	}
}

// AddTable makes a table and its runner reachable through the API
func (s *Server) AddTable(t *table.Table, runner *round.Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = tableEntry{table: t, runner: runner}
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", s.handleListTables)
		r.Route("/{table}", func(r chi.Router) {
			r.Get("/", s.handleSnapshot)
			r.Post("/dealer", s.handleJoinDealer)
			r.Delete("/dealer/{actor}", s.handleLeaveDealer)
			r.Post("/triggers", s.handleTrigger)
			r.Post("/seats", s.handleSit)
			r.Delete("/seats/{seat}", s.handleLeaveSeat)
			r.Get("/history", s.handleHistory)
			r.Get("/ws", s.handleWebSocket)
		})
	})
	return r
}

// Start runs the connection hub until ctx is cancelled
func (s *Server) Start(ctx context.Context) {
	go s.run(ctx)
}

// ListenAndServe serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.Start(ctx)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("Shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// run handles connection lifecycle
func (s *Server) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "table", conn.TableID(), "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client disconnected", "table", conn.TableID(), "total", total)

		case <-ctx.Done():
			s.mu.Lock()
			for conn := range s.connections {
				_ = conn.Close()
			}
			s.connections = make(map[*Connection]bool)
			s.mu.Unlock()
			return
		}
	}
}

// OnEvent implements round.Sink by broadcasting the event to the table's subscribers
func (s *Server) OnEvent(event round.Event) {
	msg, err := EventMessage(event)
	if err != nil {
		s.logger.Error("Failed to encode event", "type", event.EventType(), "error", err)
		return
	}

	s.BroadcastToTable(event.EventHeader().TableID, msg)
}

// BroadcastToTable sends a message to all connections following a table
func (s *Server) BroadcastToTable(tableID string, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.TableID() != tableID {
			continue
		}
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Debug("Failed to send message to client", "error", err)
			continue
		}
		count++
	}

	s.logger.Debug("Broadcasted message to table", "table", tableID, "type", msg.Type, "recipients", count)
}

func (s *Server) entry(tableID string) (tableEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tables[tableID]
	return e, ok
}

// handleWebSocket subscribes a client to a table's events
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "table")
	e, ok := s.entry(tableID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_table", dealer.ErrUnknownTable.Error())
		return
	}

	snap, err := e.runner.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, tableID, s.logger, s)
	client.reply("", MessageTypeSnapshot, SnapshotFromGame(snap))

	select {
	case s.register <- client:
	case <-s.done:
		_ = client.Close()
		return
	}
	client.Start()

	go func() {
		<-client.Done()
		select {
		case s.unregister <- client:
		case <-s.done:
		}
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	infos := make([]TableInfo, 0, len(s.tables))
	for id, e := range s.tables {
		infos = append(infos, TableInfo{
			ID:             id,
			Name:           e.table.Name,
			Seats:          len(e.table.Seats()),
			Occupied:       len(e.table.OccupiedSeats()),
			DealerPosition: e.table.DealerPosition,
			Dealer:         s.ctrl.DealerAt(id),
		})
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	writeJSON(w, http.StatusOK, TableListData{Tables: infos})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(chi.URLParam(r, "table"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_table", dealer.ErrUnknownTable.Error())
		return
	}
	snap, err := e.runner.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SnapshotFromGame(snap))
}

func (s *Server) handleJoinDealer(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "table")
	var data JoinDealerData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data.Actor == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "body must name an actor")
		return
	}

	if err := s.ctrl.JoinTable(r.Context(), data.Actor, tableID); err != nil {
		status, code := dealerErrorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, TableInfo{ID: tableID, Dealer: data.Actor, DealerPosition: true})
}

func (s *Server) handleLeaveDealer(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "table")
	actor := chi.URLParam(r, "actor")

	if current, ok := s.ctrl.TableOf(actor); !ok || current != tableID {
		writeError(w, http.StatusForbidden, "not_dealer", fmt.Sprintf("%s: %s", actor, dealer.ErrNotDealer))
		return
	}
	if err := s.ctrl.LeaveDealerSpot(r.Context(), actor); err != nil {
		status, code := dealerErrorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var data TriggerData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to parse trigger")
		return
	}

	result, code, err := s.submitTrigger(r.Context(), chi.URLParam(r, "table"), data)
	if err != nil {
		status := http.StatusBadRequest
		switch code {
		case "not_dealer":
			status = http.StatusForbidden
		case "unavailable":
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, code, err.Error())
		return
	}

	status := http.StatusOK
	if result.Status == round.Rejected.String() {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

// submitTrigger validates and routes a trigger for HTTP and WebSocket
// callers. The returned code classifies errors for the client.
func (s *Server) submitTrigger(ctx context.Context, tableID string, data TriggerData) (TriggerResultData, string, error) {
	kind, err := round.ParseTriggerKind(data.Trigger)
	if err != nil {
		return TriggerResultData{}, "unknown_trigger", err
	}
	if current, ok := s.ctrl.TableOf(data.Actor); !ok || current != tableID {
		return TriggerResultData{}, "not_dealer", fmt.Errorf("%s at %s: %w", data.Actor, tableID, dealer.ErrNotDealer)
	}

	t := round.Trigger{Kind: kind, Seat: data.Seat}
	res, err := s.ctrl.Trigger(ctx, data.Actor, t)
	if err != nil {
		return TriggerResultData{}, "unavailable", err
	}
	return TriggerResultFromGame(t, res), "", nil
}

func (s *Server) handleSit(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(chi.URLParam(r, "table"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_table", dealer.ErrUnknownTable.Error())
		return
	}

	var data SitData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to parse seat request")
		return
	}
	who, err := table.ParseOccupant(data.Occupant)
	if err != nil || who == table.Empty {
		writeError(w, http.StatusBadRequest, "invalid_occupant", fmt.Sprintf("invalid occupant %q", data.Occupant))
		return
	}

	seat := data.Seat
	if seat == 0 {
		seat, err = e.table.SitFirstFree(who)
	} else {
		err = e.table.Sit(seat, who)
	}
	if err != nil {
		writeError(w, seatErrorStatus(err), "seat_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, SitData{Seat: seat, Occupant: who.String()})
}

func (s *Server) handleLeaveSeat(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(chi.URLParam(r, "table"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_table", dealer.ErrUnknownTable.Error())
		return
	}
	seat, err := strconv.Atoi(chi.URLParam(r, "seat"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_seat", "seat must be a number")
		return
	}
	if err := e.table.Leave(seat); err != nil {
		writeError(w, seatErrorStatus(err), "seat_unavailable", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "table")
	if _, ok := s.entry(tableID); !ok {
		writeError(w, http.StatusNotFound, "unknown_table", dealer.ErrUnknownTable.Error())
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive number")
			return
		}
		limit = n
	}

	rounds, err := s.store.Recent(r.Context(), tableID, limit)
	if err != nil {
		s.logger.Error("Failed to load history", "table", tableID, "error", err)
		writeError(w, http.StatusInternalServerError, "history_failed", "failed to load history")
		return
	}
	if rounds == nil {
		rounds = []history.Round{}
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func dealerErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, dealer.ErrUnknownTable):
		return http.StatusNotFound, "unknown_table"
	case errors.Is(err, dealer.ErrAlreadyDealing), errors.Is(err, dealer.ErrSeatTaken):
		return http.StatusConflict, "dealer_conflict"
	case errors.Is(err, dealer.ErrNoDealerPosition):
		return http.StatusUnprocessableEntity, "no_dealer_position"
	case errors.Is(err, dealer.ErrNotDealer):
		return http.StatusForbidden, "not_dealer"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func seatErrorStatus(err error) int {
	switch {
	case errors.Is(err, table.ErrNoSuchSeat):
		return http.StatusNotFound
	default:
		return http.StatusConflict
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorData{Code: code, Message: message})
}
