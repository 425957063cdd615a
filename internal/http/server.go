// Package http exposes the ledger over a JSON API. Handlers stay thin: they
// decode input, call a service or a report function over a snapshot, and
// encode the result.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"financas/internal/cache"
	"financas/internal/ledger"
	"financas/internal/report"
	"financas/internal/services"
)

type Server struct {
	http.Server
	store      *ledger.Store
	commands   *services.LedgerService
	reconciler *services.Reconciler
	engine     *services.RecurrenceEngine

	// Report caches. Any mutation purges both: one month's write can move
	// annual totals and account balances.
	summaryCache *cache.LRUCache[report.Summary]
	annualCache  *cache.LRUCache[report.AnnualRollup]

	now          func() time.Time
	shutdownOnce sync.Once
}

// Options tunes the server beyond its address.
type Options struct {
	CacheMaxSize int
	CacheTTL     time.Duration
	Now          func() time.Time
}

// NewServer configures routes and caches, returning a ready-to-run server.
func NewServer(addr string, store *ledger.Store, commands *services.LedgerService, reconciler *services.Reconciler, engine *services.RecurrenceEngine, opts Options) *Server {
	if opts.CacheMaxSize < 1 {
		opts.CacheMaxSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:        store,
		commands:     commands,
		reconciler:   reconciler,
		engine:       engine,
		summaryCache: cache.NewLRUCache[report.Summary](opts.CacheMaxSize, opts.CacheTTL),
		annualCache:  cache.NewLRUCache[report.AnnualRollup](opts.CacheMaxSize, opts.CacheTTL),
		now:          opts.Now,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/transactions", s.withMiddleware(s.handleTransactions))
	mux.HandleFunc("/api/transactions/delete", s.withMiddleware(s.handleDeleteTransaction))
	mux.HandleFunc("/api/transactions/set-paid", s.withMiddleware(s.handleSetPaid))
	mux.HandleFunc("/api/transfers", s.withMiddleware(s.handleTransfer))
	mux.HandleFunc("/api/accounts", s.withMiddleware(s.handleAccounts))
	mux.HandleFunc("/api/accounts/delete", s.withMiddleware(s.handleDeleteAccount))
	mux.HandleFunc("/api/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("/api/categories/delete", s.withMiddleware(s.handleDeleteCategory))
	mux.HandleFunc("/api/recurring", s.withMiddleware(s.handleRecurring))
	mux.HandleFunc("/api/recurring/delete", s.withMiddleware(s.handleDeleteRecurring))
	mux.HandleFunc("/api/recurring/pay", s.withMiddleware(s.handlePayRecurring))
	mux.HandleFunc("/api/months/materialize", s.withMiddleware(s.handleMaterialize))
	mux.HandleFunc("/api/months/clear", s.withMiddleware(s.handleClearMonth))
	mux.HandleFunc("/api/reports/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("/api/reports/breakdown", s.withMiddleware(s.handleBreakdown))
	mux.HandleFunc("/api/reports/annual", s.withMiddleware(s.handleAnnual))
	mux.HandleFunc("/api/reports/upcoming", s.withMiddleware(s.handleUpcoming))

	return s
}

// RegisterCaches hands the report caches to a cleanup manager.
func (s *Server) RegisterCaches(m *cache.Manager) {
	m.Register(s.summaryCache)
	m.Register(s.annualCache)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateReports drops every cached report after a mutation.
func (s *Server) invalidateReports() {
	s.summaryCache.Purge()
	s.annualCache.Purge()
}

// withMiddleware adds security headers and request logging to responses
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
