package api

import (
	"context"
	"encoding/json"
	"finnhub-stock-bot/internal/database"
	"finnhub-stock-bot/internal/types"
	"fmt"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHistoryDays = 30
	defaultAlertsLimit = 20
	maxAlertsLimit     = 500
)

// StateSource gives read access to the tracked symbols.
type StateSource interface {
	States() []types.SymbolState
}

type HistoryStore interface {
	History(ctx context.Context, entityID string, from, to time.Time) ([]database.HistoryRecord, error)
}

type AlertLister interface {
	ListAlerts(ctx context.Context, symbol string, limit int) ([]types.AlertEvent, error)
}

// Server exposes the current states, their history and fired alerts over
// HTTP.
type Server struct {
	states   StateSource
	history  HistoryStore
	alerts   AlertLister
	gatherer prometheus.Gatherer
	now      func() time.Time
}

type Option func(*Server)

func WithHistory(h HistoryStore) Option {
	return func(s *Server) { s.history = h }
}

func WithAlerts(a AlertLister) Option {
	return func(s *Server) { s.alerts = a }
}

func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(states StateSource, opts ...Option) *Server {
	s := &Server{states: states, gatherer: prometheus.DefaultGatherer, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entity is one tracked symbol as seen by clients.
type Entity struct {
	ID         string           `json:"id"`
	State      string           `json:"state"`
	Attributes types.Attributes `json:"attributes"`
}

type statusResponse struct {
	Entities []Entity `json:"entities"`
}

type historyResponse struct {
	History []database.HistoryRecord `json:"history"`
}

type alertsResponse struct {
	Alerts []types.AlertEvent `json:"alerts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /api/finnhub/analyze", s.handleStatus)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /api/finnhub/history", s.handleHistory)
	mux.HandleFunc("GET /alerts", s.handleAlerts)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return recoverPanic(mux)
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Launching query, metrics and health endpoint on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "http server shutdown")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	if filter == "" {
		filter = types.EntityPrefix
	}

	resp := statusResponse{Entities: []Entity{}}
	if s.states != nil {
		for _, state := range s.states.States() {
			id := state.Symbol.EntityID()
			if !strings.HasPrefix(id, filter) {
				continue
			}
			resp.Entities = append(resp.Entities, Entity{
				ID:         id,
				State:      state.Value(),
				Attributes: types.AttributesOf(state),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid query: %v", err))
		return
	}

	entityID := strings.TrimSpace(query.Get("entity_id"))
	if entityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id is required")
		return
	}
	if !strings.HasPrefix(entityID, types.EntityPrefix) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("entity_id must start with %s", types.EntityPrefix))
		return
	}

	days := DefaultHistoryDays
	if raw := query.Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
	}

	resp := historyResponse{History: []database.HistoryRecord{}}
	if s.history == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	to := s.now()
	from := to.AddDate(0, 0, -days)
	records, err := s.history.History(r.Context(), entityID, from, to)
	if err != nil {
		log.WithField("entity_id", entityID).Errorf("History query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	resp.History = append(resp.History, records...)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	symbol := strings.ToUpper(strings.TrimSpace(query.Get("symbol")))

	limit := defaultAlertsLimit
	if raw := query.Get("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxAlertsLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxAlertsLimit))
			return
		}
	}

	resp := alertsResponse{Alerts: []types.AlertEvent{}}
	if s.alerts == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	alerts, err := s.alerts.ListAlerts(r.Context(), symbol, limit)
	if err != nil {
		log.Errorf("Alert query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read alerts")
		return
	}
	resp.Alerts = append(resp.Alerts, alerts...)
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Errorf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// recoverPanic turns handler panics into a 500.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf("Recovered from panic serving %s: %v", r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
