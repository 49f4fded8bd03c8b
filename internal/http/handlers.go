package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"recur/internal/core"
	"recur/internal/log"
	"recur/internal/middleware/trace"
	"recur/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.store == nil {
		checks["store"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.store.Ping(ctx); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentStorage).WarnContext(ctx, "Readiness check failed",
			log.FieldError, err)
		checks["store"] = "unreachable"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	// The broker is optional: the ledger keeps serving without events.
	switch {
	case s.broker == nil:
		checks["broker"] = "disabled"
	case s.broker.Healthy():
		checks["broker"] = "ok"
	default:
		checks["broker"] = "degraded"
	}

	checks["cache"] = map[string]any{
		"month_entries":   s.monthCache.Size(),
		"history_entries": s.historyCache.Size(),
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	NewJSONResponse().
		Status(httpStatus).
		Data(map[string]any{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	created := atomic.LoadInt64(&s.appMetrics.expensesCreated)
	deleted := atomic.LoadInt64(&s.appMetrics.expensesDeleted)
	cacheHits := atomic.LoadInt64(&s.appMetrics.cacheHits)
	cacheMisses := atomic.LoadInt64(&s.appMetrics.cacheMisses)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_request_errors_total HTTP responses with an error status\n")
	fmt.Fprintf(w, "# TYPE http_request_errors_total counter\n")
	fmt.Fprintf(w, "http_request_errors_total{class=\"4xx\"} %d\n", traceMetrics.ClientErrors)
	fmt.Fprintf(w, "http_request_errors_total{class=\"5xx\"} %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP http_request_duration_avg_seconds Mean request latency\n")
	fmt.Fprintf(w, "# TYPE http_request_duration_avg_seconds gauge\n")
	fmt.Fprintf(w, "http_request_duration_avg_seconds %.6f\n\n", traceMetrics.AverageResponseTime().Seconds())

	fmt.Fprintf(w, "# HELP expenses_created_total Expenses added through the API\n")
	fmt.Fprintf(w, "# TYPE expenses_created_total counter\n")
	fmt.Fprintf(w, "expenses_created_total %d\n\n", created)

	fmt.Fprintf(w, "# HELP expenses_deleted_total Expenses deleted through the API\n")
	fmt.Fprintf(w, "# TYPE expenses_deleted_total counter\n")
	fmt.Fprintf(w, "expenses_deleted_total %d\n\n", deleted)

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total %d\n\n", cacheHits)

	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total %d\n\n", cacheMisses)

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{type=\"month\"} %d\n", s.monthCache.Size())
	fmt.Fprintf(w, "cache_entries{type=\"history\"} %d\n\n", s.historyCache.Size())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP invalid_ip_attempts_total Forwarded headers carrying an invalid IP\n")
	fmt.Fprintf(w, "# TYPE invalid_ip_attempts_total counter\n")
	fmt.Fprintf(w, "invalid_ip_attempts_total %d\n\n", securityMetrics.InvalidIPAttempts)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}

// writeError maps err to a response. Server-side failures are logged with
// the operation; client mistakes only at debug level.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op, ownerID string, err error) {
	resp := FromError(err)
	ctx := r.Context()
	if resp.StatusCode() >= http.StatusInternalServerError {
		fields := log.NewFields().
			WithRequestID(trace.GetRequestID(ctx)).
			WithOwner(ownerID).
			WithErrorType(errorType(err))
		s.structuredLogger.LogError(ctx, "Request failed", err, log.ComponentHTTP, op, fields)
	} else {
		log.FromContext(ctx).DebugContext(ctx, "Request rejected",
			log.FieldOperation, op,
			log.FieldErrorType, errorType(err),
			log.FieldError, err)
	}
	resp.Write(w)
}

// requireOwner writes 401 and returns "" when the identity header is missing.
func (s *Server) requireOwner(w http.ResponseWriter, r *http.Request, op string) string {
	owner := s.ownerID(r)
	if owner == "" {
		s.writeError(w, r, op, "", core.ErrAuthRequired)
	}
	return owner
}

// monthView serves a month from cache. A cached view never reports
// materialization: that already happened on the load that filled it.
func (s *Server) monthView(ctx context.Context, ownerID string, date time.Time) (services.MonthView, error) {
	key := ownerPrefix(ownerID) + "month|" + core.ResolveRange(date).Key.String()
	if v, found := s.monthCache.Get(key); found {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		v.Materialized = 0
		return v, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	cctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	v, err := s.ledger.LoadMonth(cctx, ownerID, date)
	if err != nil {
		return services.MonthView{}, err
	}
	if v.Materialized > 0 {
		s.historyCache.Delete(ownerPrefix(ownerID) + "history")
	}
	s.monthCache.Set(key, v)
	return v, nil
}

func (s *Server) history(ctx context.Context, ownerID string) (core.History, error) {
	key := ownerPrefix(ownerID) + "history"
	if h, found := s.historyCache.Get(key); found {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		return h, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	cctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	h, err := s.ledger.LoadHistory(cctx, ownerID)
	if err != nil {
		return core.History{}, err
	}
	s.historyCache.Set(key, h)
	return h, nil
}
