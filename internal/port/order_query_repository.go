package port

import (
	"context"
	"database/sql"

	"github.com/rl1809/order-query/internal/core/domain"
)

// Querier runs a parameterized query and returns its rows.
// *sql.DB, *sql.Tx and *sql.Conn all satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type RootLoader interface {
	// LoadRootsSeparate loads orders with member and delivery, one row per
	// order. Items are left empty.
	LoadRootsSeparate(ctx context.Context, cond domain.Condition, page domain.Page) ([]domain.OrderAggregate, error)
}

type OrderQueryRepository interface {
	RootLoader

	// LoadRootsWithCollectionJoin fetch-joins the line items and folds the
	// duplicated order rows back into one aggregate per order.
	LoadRootsWithCollectionJoin(ctx context.Context, cond domain.Condition) ([]domain.OrderAggregate, error)

	// LoadItemsFor batch-loads line items for the given orders, grouped by
	// order id. Orders without items are absent from the map.
	LoadItemsFor(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderItemView, error)

	// LoadItemsForOrder loads the line items of a single order.
	LoadItemsForOrder(ctx context.Context, orderID int64) ([]domain.OrderItemView, error)

	// LoadFlat loads denormalized rows and folds them into aggregates.
	LoadFlat(ctx context.Context, cond domain.Condition) ([]domain.OrderAggregate, error)
}
