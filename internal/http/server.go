package http

import (
	"container/list"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// LRU cache with TTL and size-based eviction
type lruCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func newLRUCache[T any](maxSize int, ttl time.Duration) *lruCache[T] {
	return &lruCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *lruCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *lruCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *lruCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

func (c *lruCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.lru.Init()
}

func (c *lruCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries
func (c *lruCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element

	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*cacheItem[T])
		if now.After(item.expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}

	for _, elem := range toRemove {
		c.removeElement(elem)
	}

	return len(toRemove)
}

// Simple in-memory rate limiter
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

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
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
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

type Server struct {
	http.Server
	store     storage.Store
	ledger    *services.LedgerService
	budget    *services.BudgetService
	lifecycle *services.LifecycleService
	importer  *services.ImporterService
	stats     *services.StatsService

	rateLimiter *rateLimiter

	// LRU caches for read-heavy dashboard endpoints
	usageCache *lruCache[[]core.CategoryUsage]
	statsCache *lruCache[services.DashboardStats]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, store storage.Store, publisher services.ReportPublisher) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:            store,
		ledger:           services.NewLedgerService(store),
		budget:           services.NewBudgetService(store, publisher),
		lifecycle:        services.NewLifecycleService(store),
		importer:         services.NewImporterService(store),
		stats:            services.NewStatsService(store),
		rateLimiter:      newRateLimiter(),
		usageCache:       newLRUCache[[]core.CategoryUsage](100, 5*time.Minute),
		statsCache:       newLRUCache[services.DashboardStats](10, time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/accounts", s.withSecurityHeaders(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.withSecurityHeaders(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts/{id}", s.withSecurityHeaders(s.handleGetAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", s.withSecurityHeaders(s.handleUpdateAccount))
	mux.HandleFunc("PATCH /api/accounts/{id}", s.withSecurityHeaders(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.withSecurityHeaders(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/transactions", s.withSecurityHeaders(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.withSecurityHeaders(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withSecurityHeaders(s.handleUpdateTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.withSecurityHeaders(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSecurityHeaders(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/transfers", s.withSecurityHeaders(s.handleTransfer))
	mux.HandleFunc("POST /api/budget-transfers", s.withSecurityHeaders(s.handleBudgetTransfer))

	mux.HandleFunc("GET /api/budget-categories", s.withSecurityHeaders(s.handleListCategories))
	mux.HandleFunc("POST /api/budget-categories", s.withSecurityHeaders(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/budget-categories/{id}", s.withSecurityHeaders(s.handleUpdateCategory))
	mux.HandleFunc("PATCH /api/budget-categories/{id}", s.withSecurityHeaders(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/budget-categories/{id}", s.withSecurityHeaders(s.handleDeleteCategory))
	mux.HandleFunc("GET /api/budget-categories/usage", s.withSecurityHeaders(s.handleCategoryUsage))

	mux.HandleFunc("GET /api/budgets", s.withSecurityHeaders(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.withSecurityHeaders(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets/current", s.withSecurityHeaders(s.handleCurrentBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.withSecurityHeaders(s.handleUpdateBudget))
	mux.HandleFunc("PATCH /api/budgets/{id}", s.withSecurityHeaders(s.handleUpdateBudget))
	mux.HandleFunc("POST /api/budgets/close-month", s.withSecurityHeaders(s.handleCloseMonth))

	mux.HandleFunc("GET /api/reports", s.withSecurityHeaders(s.handleListReports))
	mux.HandleFunc("GET /api/reports/{id}", s.withSecurityHeaders(s.handleGetReport))
	mux.HandleFunc("GET /api/monthly-reports", s.withSecurityHeaders(s.handleListReports))
	mux.HandleFunc("GET /api/monthly-reports/{id}", s.withSecurityHeaders(s.handleGetReport))

	mux.HandleFunc("GET /api/goals", s.withSecurityHeaders(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.withSecurityHeaders(s.handleCreateGoal))
	mux.HandleFunc("PUT /api/goals/{id}", s.withSecurityHeaders(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.withSecurityHeaders(s.handleDeleteGoal))
	mux.HandleFunc("POST /api/goals/{id}/deposit", s.withSecurityHeaders(s.handleGoalDeposit))

	mux.HandleFunc("GET /api/installments", s.withSecurityHeaders(s.handleListInstallments))
	mux.HandleFunc("POST /api/installments", s.withSecurityHeaders(s.handleCreateInstallment))
	mux.HandleFunc("PUT /api/installments/{id}", s.withSecurityHeaders(s.handleUpdateInstallment))
	mux.HandleFunc("DELETE /api/installments/{id}", s.withSecurityHeaders(s.handleDeleteInstallment))
	mux.HandleFunc("POST /api/installments/{id}/payment", s.withSecurityHeaders(s.handleInstallmentPayment))
	mux.HandleFunc("POST /api/installments/{id}/pay", s.withSecurityHeaders(s.handleInstallmentPayment))

	mux.HandleFunc("GET /api/investments", s.withSecurityHeaders(s.handleListInvestments))
	mux.HandleFunc("POST /api/investments", s.withSecurityHeaders(s.handleCreateInvestment))
	mux.HandleFunc("PUT /api/investments/{id}", s.withSecurityHeaders(s.handleUpdateInvestment))
	mux.HandleFunc("DELETE /api/investments/{id}", s.withSecurityHeaders(s.handleDeleteInvestment))
	mux.HandleFunc("POST /api/investments/{id}/deposit", s.withSecurityHeaders(s.handleInvestmentDeposit))
	mux.HandleFunc("POST /api/investments/{id}/liquidate", s.withSecurityHeaders(s.handleLiquidate))

	mux.HandleFunc("GET /api/dashboard/stats", s.withSecurityHeaders(s.handleDashboardStats))
	mux.HandleFunc("POST /api/import", s.withSecurityHeaders(s.handleImport))
	mux.HandleFunc("GET /api/export", s.withSecurityHeaders(s.handleExport))

	return s
}

// startCacheCleanup runs periodic cleanup for both caches
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			usageCleaned := s.usageCache.CleanExpired()
			statsCleaned := s.statsCache.CleanExpired()
			if usageCleaned > 0 || statsCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"usage_entries_removed", usageCleaned,
					"stats_entries_removed", statsCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
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
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		// Apply rate limiting to mutating requests
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		fields := applog.NewFields().
			WithRequestID(requestID).
			WithClientIP(clientIP).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
			WithHTTPResponse(rw.statusCode, duration.Milliseconds(), rw.statusCode < http.StatusBadRequest)
		slog.InfoContext(ctx, "Request completed", fields.ToSlice()...)
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

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) usageKey(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

// invalidateCaches drops cached aggregates after any write that moves money.
func (s *Server) invalidateCaches() {
	s.usageCache.Purge()
	s.statsCache.Purge()
}
