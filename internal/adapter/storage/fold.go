package storage

import "github.com/rl1809/order-query/internal/core/domain"

// flatFolder folds denormalized rows into aggregates in one pass. ids keeps
// first-seen order; the map alone would lose it.
type flatFolder struct {
	byID map[int64]*domain.OrderAggregate
	ids  []int64
}

func newFlatFolder() *flatFolder {
	return &flatFolder{byID: make(map[int64]*domain.OrderAggregate)}
}

func (f *flatFolder) add(r *flatRow) error {
	agg, ok := f.byID[r.rootCols.orderID]
	if !ok {
		a := r.rootCols.aggregate()
		agg = &a
		f.byID[a.OrderID] = agg
		f.ids = append(f.ids, a.OrderID)
	}

	v, hasItem, err := r.itemCols.view()
	if err != nil {
		return err
	}
	if hasItem {
		agg.Items = append(agg.Items, v)
	}
	return nil
}

func (f *flatFolder) result() []domain.OrderAggregate {
	out := make([]domain.OrderAggregate, 0, len(f.ids))
	for _, id := range f.ids {
		out = append(out, *f.byID[id])
	}
	return out
}

type lineKey struct {
	orderID     int64
	orderItemID int64
}

// dedupFolder collapses fetch-joined rows: one aggregate per order id, and a
// line is attached once no matter how many times the join repeats it.
type dedupFolder struct {
	byID map[int64]*domain.OrderAggregate
	ids  []int64
	seen map[lineKey]struct{}
}

func newDedupFolder() *dedupFolder {
	return &dedupFolder{
		byID: make(map[int64]*domain.OrderAggregate),
		seen: make(map[lineKey]struct{}),
	}
}

func (f *dedupFolder) add(order domain.OrderAggregate, line *domain.OrderItemView) {
	agg, ok := f.byID[order.OrderID]
	if !ok {
		a := order
		a.Items = []domain.OrderItemView{}
		agg = &a
		f.byID[a.OrderID] = agg
		f.ids = append(f.ids, a.OrderID)
	}
	if line == nil {
		return
	}

	key := lineKey{orderID: order.OrderID, orderItemID: line.ID}
	if _, dup := f.seen[key]; dup {
		return
	}
	f.seen[key] = struct{}{}
	agg.Items = append(agg.Items, *line)
}

func (f *dedupFolder) result() []domain.OrderAggregate {
	out := make([]domain.OrderAggregate, 0, len(f.ids))
	for _, id := range f.ids {
		out = append(out, *f.byID[id])
	}
	return out
}

// groupByOrder appends lines to their order's list in arrival order.
func groupByOrder(groups map[int64][]domain.OrderItemView, v domain.OrderItemView) {
	groups[v.OrderID] = append(groups[v.OrderID], v)
}
