// Package http exposes the JSON API and the WebSocket event stream.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fundbook/internal/cache"
	"fundbook/internal/core"
	"fundbook/internal/services"
)

// UserStore is the user persistence surface the handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, u core.User) error
	ListUsers(ctx context.Context) ([]core.User, error)
	GetUser(ctx context.Context, id string) (core.User, error)
}

// CategoryStore reads and mutates the category taxonomy.
type CategoryStore interface {
	ListCategoryGroups(ctx context.Context) ([]core.CategoryGroup, error)
	ReplaceCategoryGroup(ctx context.Context, g core.CategoryGroup) error
	AddCategoryLabel(ctx context.Context, group, label string) error
}

type Server struct {
	http.Server

	users        UserStore
	categories   CategoryStore
	transactions *services.TransactionService
	ledgers      *services.LedgerService
	hub          *Hub

	rateLimiter *rateLimiter
	cacheMgr    *cache.Manager

	// Derived read models are cheap to cache between writes.
	reportCache *cache.LRUCache[core.MonthReport]
	ledgerCache *cache.LRUCache[[]core.InvestorLedger]

	// ready reports whether downstream dependencies are reachable.
	// A nil func means always ready.
	ready func(context.Context) error

	shutdownOnce sync.Once
}

// NewServer wires routes, caches and the event hub into a ready-to-run
// http.Server.
func NewServer(addr string, users UserStore, categories CategoryStore,
	transactions *services.TransactionService, ledgers *services.LedgerService,
	ready func(context.Context) error) *Server {

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		users:        users,
		categories:   categories,
		transactions: transactions,
		ledgers:      ledgers,
		hub:          NewHub(),
		rateLimiter:  newRateLimiter(),
		cacheMgr:     cache.NewManager(),
		reportCache:  cache.NewLRU[core.MonthReport](100, 5*time.Minute),
		ledgerCache:  cache.NewLRU[[]core.InvestorLedger](100, 5*time.Minute),
		ready:        ready,
	}

	s.cacheMgr.Register(s.reportCache)
	s.cacheMgr.Register(s.ledgerCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)
	go s.hub.Run()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/users", s.withMiddleware(s.handleCreateUser))
	mux.HandleFunc("GET /api/users", s.withMiddleware(s.handleListUsers))

	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/{id}", s.withMiddleware(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withMiddleware(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/categories", s.withMiddleware(s.handleListCategories))
	mux.HandleFunc("PUT /api/categories/{group}", s.withMiddleware(s.handleReplaceCategoryGroup))
	mux.HandleFunc("POST /api/categories/{group}/labels", s.withMiddleware(s.handleAddCategoryLabel))

	mux.HandleFunc("GET /api/investors", s.withMiddleware(s.handleInvestorLedgers))
	mux.HandleFunc("GET /api/investors/calendar", s.withMiddleware(s.handleInvestorCalendar))

	mux.HandleFunc("GET /api/overview", s.withMiddleware(s.handleOverview))
	mux.HandleFunc("GET /api/reports/month", s.withMiddleware(s.handleMonthReport))
	mux.HandleFunc("POST /api/advice", s.withMiddleware(s.handleAdvice))

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return s
}

// Shutdown stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.rateLimiter.stop()
		s.hub.Close()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withMiddleware adds request IDs, security headers, rate limiting on
// writes, and request logging.
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
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateUser drops cached read models for one user and tells
// connected clients to refresh.
func (s *Server) invalidateUser(userID string, eventType string, payload any) {
	s.ledgerCache.Delete(userID)
	// Month reports key on user-year-month; a write can touch any month,
	// so drop them all.
	s.reportCache.Purge()
	s.hub.Broadcast(Event{Type: eventType, Payload: payload})
}

func reportCacheKey(userID string, year, month int) string {
	return userID + "-" + strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

// Simple per-IP rate limiter for write requests.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

const requestsPerMinute = 60

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= requestsPerMinute
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanupStale()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
