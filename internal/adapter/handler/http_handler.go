package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/order-query/internal/core/domain"
	"github.com/rl1809/order-query/internal/core/service"
)

const defaultStrategy = service.StrategyBatch

// statusClientClosedRequest (nginx's 499) answers a request whose caller went
// away before the orders were loaded.
const statusClientClosedRequest = 499

// OrderFinder is the part of the query service the HTTP layer needs.
type OrderFinder interface {
	Find(ctx context.Context, strategy service.Strategy, filter domain.FilterSpec, page domain.Page) ([]domain.OrderAggregate, error)
}

// Pinger reports whether the order store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HTTPHandler struct {
	orders OrderFinder
	db     Pinger
	log    *zap.Logger
}

type OrdersHTTPResponse struct {
	Strategy string                  `json:"strategy"`
	Count    int                     `json:"count"`
	Orders   []domain.OrderAggregate `json:"orders"`
}

type ErrorHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewHTTPHandler wires the read API. db may be nil, in which case /health
// always reports ok.
func NewHTTPHandler(orders OrderFinder, db Pinger, log *zap.Logger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{orders: orders, db: db, log: log}
}

// Routes returns the router for the read API. extra is mounted as-is, e.g.
// the Prometheus handler at /metrics.
func (h *HTTPHandler) Routes(extra map[string]http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	r.Get("/health", h.HealthCheck)
	r.Get("/api/orders", h.ListOrders)
	for pattern, hdl := range extra {
		r.Handle(pattern, hdl)
	}
	return r
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	strategy := defaultStrategy
	if s := q.Get("strategy"); s != "" {
		parsed, err := service.ParseStrategy(s)
		if err != nil {
			h.writeError(w, err)
			return
		}
		strategy = parsed
	}

	var filter domain.FilterSpec
	if s := q.Get("status"); s != "" {
		st, err := domain.ParseOrderStatus(s)
		if err != nil {
			h.writeError(w, err)
			return
		}
		filter.Status = &st
	}
	filter.MemberNameContains = q.Get("member")

	page, err := parsePage(q.Get("offset"), q.Get("limit"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	orders, err := h.orders.Find(r.Context(), strategy, filter, page)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OrdersHTTPResponse{
		Strategy: string(strategy),
		Count:    len(orders),
		Orders:   orders,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parsePage returns Unpaged when neither value is given. An offset without a
// limit pages up to MaxResults roots.
func parsePage(offset, limit string) (domain.Page, error) {
	if offset == "" && limit == "" {
		return domain.Unpaged, nil
	}
	off, lim := 0, 0
	var err error
	if offset != "" {
		if off, err = strconv.Atoi(offset); err != nil {
			return domain.Page{}, errors.Join(domain.ErrInvalidPagination, err)
		}
	}
	if limit == "" {
		return domain.NewOffsetPage(off)
	}
	if lim, err = strconv.Atoi(limit); err != nil {
		return domain.Page{}, errors.Join(domain.ErrInvalidPagination, err)
	}
	return domain.NewPage(off, lim)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		h.log.Debug("list orders canceled by client", zap.Error(err))
		writeJSON(w, statusClientClosedRequest, ErrorHTTPResponse{
			Success: false,
			Message: "request canceled",
		})
		return
	}

	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrInvalidPagination),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, service.ErrUnknownStrategy):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrStoreUnavailable):
		message = "order store unavailable"
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("list orders failed", zap.Error(err))
	}

	writeJSON(w, status, ErrorHTTPResponse{
		Success: false,
		Message: message,
	})
}

func (h *HTTPHandler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
