package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/order-query/internal/core/domain"
	"github.com/rl1809/order-query/internal/metrics"
	"github.com/rl1809/order-query/internal/port"
)

var ErrUnknownStrategy = errors.New("unknown query strategy")

// Strategy selects how an order aggregate is loaded. The caller picks it;
// the right choice depends on how many orders and lines are expected.
type Strategy string

const (
	// StrategyLazy loads roots, then the lines of each root one by one (1+N).
	StrategyLazy Strategy = "lazy"
	// StrategyJoinFetch loads everything in one joined query and deduplicates.
	StrategyJoinFetch Strategy = "join"
	// StrategyBatch loads roots, then all lines in one IN query.
	StrategyBatch Strategy = "batch"
	// StrategyFlat loads denormalized rows in one query and folds them.
	StrategyFlat Strategy = "flat"
)

var Strategies = []Strategy{StrategyLazy, StrategyJoinFetch, StrategyBatch, StrategyFlat}

func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// SupportsPagination reports whether offset/limit count aggregates for this
// strategy. The joined strategies would count rows instead.
func (s Strategy) SupportsPagination() bool {
	return s == StrategyLazy || s == StrategyBatch
}

var tracer = otel.Tracer("github.com/rl1809/order-query/internal/core/service")

type OrderQueryService struct {
	repo    port.OrderQueryRepository
	roots   port.RootLoader
	log     *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*OrderQueryService)

// WithRootLoader replaces the repository's own root query, e.g. with the
// builder-based loader.
func WithRootLoader(roots port.RootLoader) Option {
	return func(s *OrderQueryService) {
		if roots != nil {
			s.roots = roots
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *OrderQueryService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *OrderQueryService) { s.metrics = m }
}

func NewOrderQueryService(repo port.OrderQueryRepository, opts ...Option) *OrderQueryService {
	s := &OrderQueryService{
		repo:  repo,
		roots: repo,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OrderQueryService) FindLazy(ctx context.Context, filter domain.FilterSpec, page domain.Page) ([]domain.OrderAggregate, error) {
	return s.Find(ctx, StrategyLazy, filter, page)
}

func (s *OrderQueryService) FindWithJoinFetch(ctx context.Context, filter domain.FilterSpec, page domain.Page) ([]domain.OrderAggregate, error) {
	return s.Find(ctx, StrategyJoinFetch, filter, page)
}

func (s *OrderQueryService) FindBatched(ctx context.Context, filter domain.FilterSpec, page domain.Page) ([]domain.OrderAggregate, error) {
	return s.Find(ctx, StrategyBatch, filter, page)
}

func (s *OrderQueryService) FindFlat(ctx context.Context, filter domain.FilterSpec, page domain.Page) ([]domain.OrderAggregate, error) {
	return s.Find(ctx, StrategyFlat, filter, page)
}

// Find loads aggregates matching filter with the given strategy. A set page
// is rejected with domain.ErrInvalidPagination for strategies that cannot
// paginate by aggregate; no query is issued in that case.
func (s *OrderQueryService) Find(ctx context.Context, strategy Strategy, filter domain.FilterSpec, page domain.Page) ([]domain.OrderAggregate, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if page.IsSet() && !strategy.SupportsPagination() {
		return nil, fmt.Errorf("%w: strategy %s limits joined rows, not orders", domain.ErrInvalidPagination, strategy)
	}

	queryID := uuid.NewString()
	ctx, rt := metrics.WithRoundTrips(ctx)
	ctx, span := tracer.Start(ctx, "orderquery.find",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("orderquery.strategy", string(strategy)),
			attribute.String("orderquery.id", queryID),
		),
	)
	defer span.End()

	start := time.Now()
	aggs, err := s.load(ctx, strategy, filter.Compile(), page)
	elapsed := time.Since(start)
	s.metrics.ObserveLoad(string(strategy), rt.Load(), err)

	log := s.log.With(
		zap.String("query_id", queryID),
		zap.String("strategy", string(strategy)),
		zap.Int64("round_trips", rt.Load()),
		zap.Duration("elapsed", elapsed),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("load orders failed", zap.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("orderquery.orders", len(aggs)))
	log.Info("loaded orders", zap.Int("orders", len(aggs)))
	return aggs, nil
}

func (s *OrderQueryService) load(ctx context.Context, strategy Strategy, cond domain.Condition, page domain.Page) ([]domain.OrderAggregate, error) {
	switch strategy {
	case StrategyLazy:
		return s.loadLazy(ctx, cond, page)
	case StrategyJoinFetch:
		return s.repo.LoadRootsWithCollectionJoin(ctx, cond)
	case StrategyBatch:
		return s.loadBatched(ctx, cond, page)
	case StrategyFlat:
		return s.repo.LoadFlat(ctx, cond)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
}

// loadLazy issues one item query per root. It exists to make the N+1 cost
// explicit and measurable.
func (s *OrderQueryService) loadLazy(ctx context.Context, cond domain.Condition, page domain.Page) ([]domain.OrderAggregate, error) {
	roots, err := s.roots.LoadRootsSeparate(ctx, cond, page)
	if err != nil {
		return nil, fmt.Errorf("load roots: %w", err)
	}
	for i := range roots {
		items, err := s.repo.LoadItemsForOrder(ctx, roots[i].OrderID)
		if err != nil {
			return nil, fmt.Errorf("load items for order %d: %w", roots[i].OrderID, err)
		}
		if items == nil {
			items = []domain.OrderItemView{}
		}
		roots[i].Items = items
	}
	return roots, nil
}

func (s *OrderQueryService) loadBatched(ctx context.Context, cond domain.Condition, page domain.Page) ([]domain.OrderAggregate, error) {
	roots, err := s.roots.LoadRootsSeparate(ctx, cond, page)
	if err != nil {
		return nil, fmt.Errorf("load roots: %w", err)
	}
	if len(roots) == 0 {
		return roots, nil
	}
	items, err := s.repo.LoadItemsFor(ctx, domain.OrderIDs(roots))
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	domain.AttachItems(roots, items)
	return roots, nil
}
