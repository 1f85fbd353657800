package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rl1809/order-query/internal/core/domain"
	"github.com/rl1809/order-query/internal/metrics"
)

// Mock OrderQueryRepository
type mockRepo struct {
	roots map[int64]domain.OrderAggregate
	order []int64
	items map[int64][]domain.OrderItemView
	err   error

	mu    sync.Mutex
	calls map[string]int
	conds []domain.Condition
	pages []domain.Page
}

func newMockRepo() *mockRepo {
	m := &mockRepo{
		roots: make(map[int64]domain.OrderAggregate),
		items: make(map[int64][]domain.OrderItemView),
		calls: make(map[string]int),
	}
	for _, id := range []int64{1, 2, 3} {
		m.roots[id] = domain.OrderAggregate{OrderID: id, Status: domain.OrderStatusOrder}
		m.order = append(m.order, id)
	}
	m.items[1] = []domain.OrderItemView{{ID: 10, OrderID: 1, OrderPrice: 100, Count: 2}}
	m.items[3] = []domain.OrderItemView{
		{ID: 30, OrderID: 3, OrderPrice: 50, Count: 1},
		{ID: 31, OrderID: 3, OrderPrice: 70, Count: 4},
	}
	return m
}

func (m *mockRepo) record(name string, cond *domain.Condition, page *domain.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
	if cond != nil {
		m.conds = append(m.conds, *cond)
	}
	if page != nil {
		m.pages = append(m.pages, *page)
	}
}

func (m *mockRepo) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func (m *mockRepo) rootsOnly() []domain.OrderAggregate {
	out := make([]domain.OrderAggregate, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.roots[id])
	}
	return out
}

func (m *mockRepo) full() []domain.OrderAggregate {
	out := m.rootsOnly()
	domain.AttachItems(out, m.items)
	return out
}

func (m *mockRepo) LoadRootsSeparate(ctx context.Context, cond domain.Condition, page domain.Page) ([]domain.OrderAggregate, error) {
	m.record("roots", &cond, &page)
	if m.err != nil {
		return nil, m.err
	}
	return m.rootsOnly(), nil
}

func (m *mockRepo) LoadRootsWithCollectionJoin(ctx context.Context, cond domain.Condition) ([]domain.OrderAggregate, error) {
	m.record("join", &cond, nil)
	if m.err != nil {
		return nil, m.err
	}
	return m.full(), nil
}

func (m *mockRepo) LoadItemsFor(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderItemView, error) {
	m.record("batch", nil, nil)
	out := make(map[int64][]domain.OrderItemView)
	for _, id := range orderIDs {
		if items, ok := m.items[id]; ok {
			out[id] = items
		}
	}
	return out, nil
}

func (m *mockRepo) LoadItemsForOrder(ctx context.Context, orderID int64) ([]domain.OrderItemView, error) {
	m.record("single", nil, nil)
	return m.items[orderID], nil
}

func (m *mockRepo) LoadFlat(ctx context.Context, cond domain.Condition) ([]domain.OrderAggregate, error) {
	m.record("flat", &cond, nil)
	if m.err != nil {
		return nil, m.err
	}
	return m.full(), nil
}

type stubRoots struct {
	called int
}

func (s *stubRoots) LoadRootsSeparate(ctx context.Context, cond domain.Condition, page domain.Page) ([]domain.OrderAggregate, error) {
	s.called++
	return []domain.OrderAggregate{{OrderID: 3}}, nil
}

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies {
		got, err := ParseStrategy(string(s))
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseStrategy("eager"); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got: %v", err)
	}
}

func TestFind_LazyIssuesOneQueryPerRoot(t *testing.T) {
	repo := newMockRepo()
	svc := NewOrderQueryService(repo)

	aggs, err := svc.FindLazy(context.Background(), domain.FilterSpec{}, domain.Unpaged)
	if err != nil {
		t.Fatalf("FindLazy failed: %v", err)
	}
	if !reflect.DeepEqual(aggs, repo.full()) {
		t.Errorf("unexpected aggregates %+v", aggs)
	}
	if repo.calls["roots"] != 1 || repo.calls["single"] != 3 {
		t.Errorf("expected 1 roots + 3 single queries, got %v", repo.calls)
	}
	if aggs[1].Items == nil {
		t.Error("expected empty, non-nil items for order without lines")
	}
}

func TestFind_BatchedIssuesTwoQueries(t *testing.T) {
	repo := newMockRepo()
	svc := NewOrderQueryService(repo)

	page, err := domain.NewPage(0, 10)
	if err != nil {
		t.Fatal(err)
	}
	aggs, err := svc.FindBatched(context.Background(), domain.FilterSpec{}, page)
	if err != nil {
		t.Fatalf("FindBatched failed: %v", err)
	}
	if !reflect.DeepEqual(aggs, repo.full()) {
		t.Errorf("unexpected aggregates %+v", aggs)
	}
	if repo.total() != 2 {
		t.Errorf("expected 2 queries, got %v", repo.calls)
	}
	if len(repo.pages) != 1 || repo.pages[0] != page {
		t.Errorf("expected page to reach the root query, got %v", repo.pages)
	}
}

func TestFind_JoinAndFlatSingleQuery(t *testing.T) {
	for _, strategy := range []Strategy{StrategyJoinFetch, StrategyFlat} {
		t.Run(string(strategy), func(t *testing.T) {
			repo := newMockRepo()
			svc := NewOrderQueryService(repo)

			aggs, err := svc.Find(context.Background(), strategy, domain.FilterSpec{}, domain.Unpaged)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			if len(aggs) != 3 {
				t.Errorf("expected 3 aggregates, got %d", len(aggs))
			}
			if repo.total() != 1 {
				t.Errorf("expected 1 query, got %v", repo.calls)
			}
		})
	}
}

func TestFind_PaginationRejectedForJoinedStrategies(t *testing.T) {
	page, err := domain.NewPage(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, strategy := range []Strategy{StrategyJoinFetch, StrategyFlat} {
		repo := newMockRepo()
		svc := NewOrderQueryService(repo)

		_, err := svc.Find(context.Background(), strategy, domain.FilterSpec{}, page)
		if !errors.Is(err, domain.ErrInvalidPagination) {
			t.Errorf("%s: expected ErrInvalidPagination, got: %v", strategy, err)
		}
		if repo.total() != 0 {
			t.Errorf("%s: expected no queries, got %v", strategy, repo.calls)
		}
	}
}

func TestFind_UnknownStrategy(t *testing.T) {
	repo := newMockRepo()
	svc := NewOrderQueryService(repo)

	_, err := svc.Find(context.Background(), Strategy("eager"), domain.FilterSpec{}, domain.Unpaged)
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got: %v", err)
	}
	if repo.total() != 0 {
		t.Errorf("expected no queries, got %v", repo.calls)
	}
}

func TestFind_FilterIsCompiled(t *testing.T) {
	repo := newMockRepo()
	svc := NewOrderQueryService(repo)

	st := domain.OrderStatusCancel
	filter := domain.FilterSpec{Status: &st, MemberNameContains: "li"}
	if _, err := svc.FindFlat(context.Background(), filter, domain.Unpaged); err != nil {
		t.Fatalf("FindFlat failed: %v", err)
	}
	if len(repo.conds) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(repo.conds))
	}
	if !reflect.DeepEqual(repo.conds[0], filter.Compile()) {
		t.Errorf("expected %+v, got %+v", filter.Compile(), repo.conds[0])
	}
}

func TestFind_ErrorPropagates(t *testing.T) {
	repo := newMockRepo()
	repo.err = domain.ErrStoreUnavailable
	svc := NewOrderQueryService(repo)

	for _, strategy := range Strategies {
		_, err := svc.Find(context.Background(), strategy, domain.FilterSpec{}, domain.Unpaged)
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			t.Errorf("%s: expected ErrStoreUnavailable, got: %v", strategy, err)
		}
	}
}

func TestFind_BatchedSkipsItemsWhenNoRoots(t *testing.T) {
	repo := newMockRepo()
	repo.order = nil
	svc := NewOrderQueryService(repo)

	aggs, err := svc.FindBatched(context.Background(), domain.FilterSpec{}, domain.Unpaged)
	if err != nil {
		t.Fatalf("FindBatched failed: %v", err)
	}
	if len(aggs) != 0 {
		t.Errorf("expected no aggregates, got %d", len(aggs))
	}
	if repo.calls["batch"] != 0 {
		t.Errorf("expected no item query, got %v", repo.calls)
	}
}

func TestWithRootLoader(t *testing.T) {
	repo := newMockRepo()
	roots := &stubRoots{}
	svc := NewOrderQueryService(repo, WithRootLoader(roots))

	aggs, err := svc.FindBatched(context.Background(), domain.FilterSpec{}, domain.Unpaged)
	if err != nil {
		t.Fatalf("FindBatched failed: %v", err)
	}
	if roots.called != 1 || repo.calls["roots"] != 0 {
		t.Errorf("expected override root loader, got stub=%d repo=%v", roots.called, repo.calls)
	}
	if len(aggs) != 1 || len(aggs[0].Items) != 2 {
		t.Errorf("unexpected aggregates %+v", aggs)
	}
}

func TestFind_ObservesLoads(t *testing.T) {
	repo := newMockRepo()
	m := metrics.New(prometheus.NewRegistry())
	svc := NewOrderQueryService(repo, WithMetrics(m))

	if _, err := svc.FindFlat(context.Background(), domain.FilterSpec{}, domain.Unpaged); err != nil {
		t.Fatal(err)
	}
	repo.err = errors.New("boom")
	if _, err := svc.FindFlat(context.Background(), domain.FilterSpec{}, domain.Unpaged); err == nil {
		t.Fatal("expected error")
	}

	if got := testutil.ToFloat64(m.LoadsTotal.WithLabelValues("flat", "ok")); got != 1 {
		t.Errorf("expected 1 ok load, got %v", got)
	}
	if got := testutil.ToFloat64(m.LoadsTotal.WithLabelValues("flat", "error")); got != 1 {
		t.Errorf("expected 1 failed load, got %v", got)
	}
}
