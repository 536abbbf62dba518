// Package admin serves the operator endpoint that extends the allow-list,
// plus health and metrics.
package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fluxCapacitor/internal/metrics"
)

// AddAccountPath is the route that allow-lists a contract account.
const AddAccountPath = "/config/add_account"

// Accounts is the allow-list written by the endpoint.
type Accounts interface {
	Add(ctx context.Context, accountID string) (bool, error)
	Len() int
}

// Server is the admin HTTP server.
type Server struct {
	addr       string
	token      string
	accounts   Accounts
	metrics    *metrics.Metrics
	logger     *zap.Logger
	httpServer *http.Server
}

// NewServer wires the routes. gatherer may be nil to leave /metrics out.
func NewServer(addr, token string, accounts Accounts, gatherer prometheus.Gatherer, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		addr:     addr,
		token:    token,
		accounts: accounts,
		metrics:  m,
		logger:   logger,
	}

	router := mux.NewRouter()
	router.Use(requestID(logger))
	router.HandleFunc(AddAccountPath, s.handleAddAccount).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start binds the listener and serves in the background. Bind errors are
// returned directly; the channel reports later serve failures.
func (s *Server) Start() (<-chan error, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("admin listen %s: %w", s.addr, err)
	}
	s.logger.Info("admin server listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("admin server: %w", err)
		}
		close(errCh)
	}()
	return errCh, nil
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if !query.Has("token") {
		s.reply(w, http.StatusBadRequest, "`token` is a required parameter")
		return
	}
	if !s.tokenMatches(query.Get("token")) {
		s.reply(w, http.StatusForbidden, "Api token did not match")
		return
	}

	accountID := query.Get("account_id")
	if accountID == "" {
		s.reply(w, http.StatusBadRequest, "`account_id` is a required parameter")
		return
	}

	added, err := s.accounts.Add(r.Context(), accountID)
	if err != nil {
		s.logger.Error("add account failed",
			zap.String("account_id", accountID),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		s.reply(w, http.StatusInternalServerError, fmt.Sprintf("Account '%s' could not be saved", accountID))
		return
	}
	s.metrics.SetAllowListSize(s.accounts.Len())

	s.logger.Info("account added via admin",
		zap.String("account_id", accountID),
		zap.Bool("new", added),
		zap.String("request_id", RequestID(r.Context())),
	)
	s.reply(w, http.StatusOK, fmt.Sprintf("Account '%s' was added to the database", accountID))
}

func (s *Server) tokenMatches(given string) bool {
	if s.token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(s.token)) == 1
}

func (s *Server) reply(w http.ResponseWriter, code int, body string) {
	s.metrics.IncAdminRequest(strconv.Itoa(code))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
