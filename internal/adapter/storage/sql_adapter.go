package storage

import (
	"context"
	"database/sql"

	"github.com/rl1809/order-query/internal/core/domain"
	"github.com/rl1809/order-query/internal/port"
)

var _ port.OrderQueryRepository = (*SQLAdapter)(nil)

// SQLAdapter loads order aggregates with hand-written SQL over any Querier.
// The SQL sticks to what both MySQL and SQLite accept.
type SQLAdapter struct {
	db port.Querier
	options
}

func NewSQLAdapter(db port.Querier, opts ...Option) *SQLAdapter {
	return &SQLAdapter{db: db, options: newOptions(opts)}
}

func (a *SQLAdapter) LoadRootsSeparate(ctx context.Context, cond domain.Condition, page domain.Page) ([]domain.OrderAggregate, error) {
	q, args := rootsQuery(cond, page)

	out := []domain.OrderAggregate{}
	err := a.observe(ctx, shapeRoots, func(ctx context.Context) (int, error) {
		return scanRows(ctx, a.db, "query roots", q, args, func(rows *sql.Rows) error {
			agg, err := scanRoot(rows)
			if err != nil {
				return err
			}
			out = append(out, agg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *SQLAdapter) LoadRootsWithCollectionJoin(ctx context.Context, cond domain.Condition) ([]domain.OrderAggregate, error) {
	q, args := aggregateRowsQuery(cond)

	folder := newDedupFolder()
	err := a.observe(ctx, shapeCollectionJoin, func(ctx context.Context) (int, error) {
		return scanRows(ctx, a.db, "query orders with items", q, args, func(rows *sql.Rows) error {
			r, err := scanFlat(rows)
			if err != nil {
				return err
			}
			order := r.rootCols.aggregate()
			line, ok, err := r.itemCols.view()
			if err != nil {
				return err
			}
			if ok {
				folder.add(order, &line)
			} else {
				folder.add(order, nil)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return folder.result(), nil
}

func (a *SQLAdapter) LoadItemsFor(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderItemView, error) {
	ids := uniqueIDs(orderIDs)
	groups := make(map[int64][]domain.OrderItemView, len(ids))

	for start := 0; start < len(ids); start += a.batchSize {
		end := min(start+a.batchSize, len(ids))
		q, args := itemsBatchQuery(ids[start:end])

		err := a.observe(ctx, shapeItemsBatch, func(ctx context.Context) (int, error) {
			return scanRows(ctx, a.db, "query order items", q, args, func(rows *sql.Rows) error {
				v, err := scanItem(rows)
				if err != nil {
					return err
				}
				groupByOrder(groups, v)
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (a *SQLAdapter) LoadItemsForOrder(ctx context.Context, orderID int64) ([]domain.OrderItemView, error) {
	out := []domain.OrderItemView{}
	err := a.observe(ctx, shapeItemsSingle, func(ctx context.Context) (int, error) {
		return scanRows(ctx, a.db, "query order items", itemsSingleQuery, []any{orderID}, func(rows *sql.Rows) error {
			v, err := scanItem(rows)
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *SQLAdapter) LoadFlat(ctx context.Context, cond domain.Condition) ([]domain.OrderAggregate, error) {
	q, args := aggregateRowsQuery(cond)

	folder := newFlatFolder()
	err := a.observe(ctx, shapeFlat, func(ctx context.Context) (int, error) {
		return scanRows(ctx, a.db, "query flat orders", q, args, func(rows *sql.Rows) error {
			r, err := scanFlat(rows)
			if err != nil {
				return err
			}
			return folder.add(&r)
		})
	})
	if err != nil {
		return nil, err
	}
	return folder.result(), nil
}

// scanRows runs q and calls fn for every row. It returns the number of rows
// fn accepted.
func scanRows(ctx context.Context, db port.Querier, op, q string, args []any, fn func(*sql.Rows) error) (int, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return 0, storeError(op, err)
	}
	defer func() { _ = rows.Close() }()

	n := 0
	for rows.Next() {
		if err := fn(rows); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, storeError(op, err)
	}
	return n, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
