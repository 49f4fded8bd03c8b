package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"recur/internal/cache"
	"recur/internal/core"
	"recur/internal/log"
	"recur/internal/middleware/ratelimit"
	"recur/internal/middleware/security"
	"recur/internal/middleware/trace"
	"recur/internal/services"
)

const (
	// readTimeout bounds every ledger read made on behalf of a request.
	readTimeout = 7 * time.Second

	cacheTTL         = 5 * time.Minute
	cacheCleanup     = 10 * time.Minute
	monthCacheSize   = 200
	historyCacheSize = 100
)

// Ledger is the part of services.Ledger the API exposes.
type Ledger interface {
	LoadMonth(ctx context.Context, ownerID string, date time.Time) (services.MonthView, error)
	LoadHistory(ctx context.Context, ownerID string) (core.History, error)
	AddExpense(ctx context.Context, ownerID string, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, ownerID, id string) error
	ListSubscriptions(ctx context.Context, ownerID string) ([]core.Subscription, error)
	SaveSubscription(ctx context.Context, ownerID string, s core.Subscription) (core.Subscription, error)
	DeactivateSubscription(ctx context.Context, ownerID, id string) error
	GetProfile(ctx context.Context, ownerID string) (core.Profile, error)
	UpdateProfile(ctx context.Context, ownerID string, u core.ProfileUpdate) (core.Profile, error)
	SetMonthlyIncome(ctx context.Context, ownerID string, month core.MonthKey, income core.Money) (core.BudgetPeriod, error)
}

// Pinger reports whether the store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerHealth reports whether the event broker connection is usable.
type BrokerHealth interface {
	Healthy() bool
}

// Options configures NewServer. Zero values fall back to sensible defaults.
type Options struct {
	Addr               string
	AuthHeader         string
	Location           *time.Location
	RateLimitPerMinute int
	TrustedProxies     []string

	Store  Pinger
	Broker BrokerHealth
	Logger *log.Logger

	// Now is the clock used for default dates; tests pin it.
	Now func() time.Time
}

// appMetrics holds counters reported by /metrics.
type appMetrics struct {
	uptime          time.Time
	expensesCreated int64
	expensesDeleted int64
	cacheHits       int64
	cacheMisses     int64
}

type Server struct {
	http.Server
	ledger     Ledger
	authHeader string
	location   *time.Location
	now        func() time.Time

	store  Pinger
	broker BrokerHealth

	logger           *log.Logger
	structuredLogger *log.StructuredLogger
	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	monthCache   *cache.LRUCache[services.MonthView]
	historyCache *cache.LRUCache[core.History]
	cacheManager *cache.Manager
	appMetrics   *appMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(ledger Ledger, opts Options) *Server {
	if opts.AuthHeader == "" {
		opts.AuthHeader = "X-Owner-ID"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		ledger:           ledger,
		authHeader:       opts.AuthHeader,
		location:         opts.Location,
		now:              opts.Now,
		store:            opts.Store,
		broker:           opts.Broker,
		logger:           logger,
		structuredLogger: log.NewStructuredLogger(opts.Logger),
		securityDetector: detector,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		traceMiddleware: trace.NewMiddleware(detector.ExtractClientIP),
		monthCache:      cache.NewLRUCache[services.MonthView](monthCacheSize, cacheTTL),
		historyCache:    cache.NewLRUCache[core.History](historyCacheSize, cacheTTL),
		cacheManager:    cache.NewManager(),
		appMetrics:      &appMetrics{uptime: time.Now()},
	}
	s.cacheManager.Register(s.monthCache)
	s.cacheManager.Register(s.historyCache)
	s.cacheManager.StartCleanup(cacheCleanup)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/month", s.handleMonth)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	mux.HandleFunc("GET /api/subscriptions", s.handleListSubscriptions)
	mux.HandleFunc("POST /api/subscriptions", s.handleCreateSubscription)
	mux.HandleFunc("PUT /api/subscriptions/{id}", s.handleUpdateSubscription)
	mux.HandleFunc("DELETE /api/subscriptions/{id}", s.handleDeleteSubscription)

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", s.handleUpdateProfile)
	mux.HandleFunc("PUT /api/budgets/{month}", s.handleSetBudget)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// middleware composes the chain outermost first: tracing, request logger,
// security headers, threat detection, then write rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(
		s.securityDetector.ExtractClientIP,
		isWrite,
		func(w http.ResponseWriter, r *http.Request) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			TooManyRequestsError().Write(w)
		},
	)(next)

	guarded := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
				log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldErrorType, log.ErrorTypeSecurity)
			BadRequestError("request rejected").Write(w)
			return
		}
		limited.ServeHTTP(w, r)
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(guarded)
	withRequestID := log.RequestIDMiddleware(trace.GetRequestID)(headers)
	withLogger := log.Middleware(s.logger)(withRequestID)
	return s.traceMiddleware.Middleware(withLogger)
}

func isWrite(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Shutdown stops background cleanup and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
