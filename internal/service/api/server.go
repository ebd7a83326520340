package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/walletscore/internal/core/domain"
	"github.com/vietddude/walletscore/internal/service"
)

const homeMessage = "Wallet Scoring API is running. Use POST /score-wallet to score wallets."

// maxBodyBytes bounds a scoring request body.
const maxBodyBytes = 16 << 20

// Config holds the HTTP server settings.
type Config struct {
	ServiceName string
	Port        int
}

// Server exposes the scoring engine and service stats over HTTP.
type Server struct {
	cfg      Config
	scorer   service.Scorer
	reporter *service.Reporter
	feed     *service.Feed
	server   *http.Server
	log      *slog.Logger
	now      func() time.Time
}

// NewServer creates a new API server. feed may be nil.
func NewServer(cfg Config, scorer service.Scorer, reporter *service.Reporter, feed *service.Feed) *Server {
	mux := http.NewServeMux()
	s := &Server{
		cfg:      cfg,
		scorer:   scorer,
		reporter: reporter,
		feed:     feed,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: slog.Default().With("component", "api"),
		now: time.Now,
	}

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("POST /score-wallet", s.handleScoreWallet)
	mux.HandleFunc("GET /api/v1/wallets/{address}/scores", s.handleHistory)
	if feed != nil {
		mux.Handle("GET /ws/scores", feed)
	}
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Serve serves on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	return s.server.Serve(l)
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": s.cfg.ServiceName,
		"message": homeMessage,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statsResponse struct {
	Status           string `json:"status"`
	ProcessedWallets int64  `json:"processed_wallets"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	state := s.reporter.State()
	writeJSON(w, http.StatusOK, statsResponse{
		Status:           "ok",
		ProcessedWallets: state.Processed(),
		UptimeSeconds:    state.UptimeSeconds(),
	})
}

func (s *Server) handleScoreWallet(w http.ResponseWriter, r *http.Request) {
	start := s.now()

	in, err := domain.DecodeWalletInput(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err)
		return
	}
	if err := in.Validate(); err != nil {
		writeDetail(w, http.StatusBadRequest, err)
		return
	}

	result := s.scorer.Process(in)
	if result == nil {
		s.log.Error("Failed to score wallet", "wallet", in.WalletAddress)
		writeDetail(w, http.StatusInternalServerError, errors.New("scoring engine returned no result"))
		return
	}

	end := s.now()
	elapsed := end.Sub(start)
	result.ProcessingTimeMs = elapsed.Milliseconds()
	result.Timestamp = end.Unix()

	s.reporter.Report(r.Context(), domain.TransportHTTP, result, elapsed)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeDetail(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	results, err := s.reporter.History(r.Context(), address, limit)
	if err != nil {
		s.log.Error("Failed to load wallet history", "wallet", address, "error", err)
		writeDetail(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// writeJSON encodes v before committing the status, so an unencodable body
// becomes a 500 instead of an empty response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]string{"detail": fmt.Sprintf("failed to encode response: %v", err)})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeDetail(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}
