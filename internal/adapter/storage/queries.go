package storage

import (
	"strings"

	"github.com/rl1809/order-query/internal/core/domain"
)

// Query shape names, used as metric labels and span names.
const (
	shapeRoots          = "roots"
	shapeCollectionJoin = "collection_join"
	shapeItemsBatch     = "items_batch"
	shapeItemsSingle    = "items_single"
	shapeFlat           = "flat"
)

const toOneJoins = `
		JOIN member m ON m.member_id = o.member_id
		JOIN delivery d ON d.delivery_id = o.delivery_id`

// rootsQuery loads one row per order, to-one relations only.
func rootsQuery(cond domain.Condition, page domain.Page) (string, []any) {
	where, args := whereClause(cond)
	offset, limit := page.Window()
	q := `
		SELECT ` + rootColumns + `
		FROM orders o` + toOneJoins + where + `
		ORDER BY o.order_id
		LIMIT ? OFFSET ?`
	return q, append(args, limit, offset)
}

// aggregateRowsQuery loads one row per order line, outer-joined so orders
// without lines still appear. The derived table applies the result cap to
// orders rather than to joined rows.
func aggregateRowsQuery(cond domain.Condition) (string, []any) {
	where, args := whereClause(cond)
	q := `
		SELECT ` + rootColumns + `,
		` + itemColumns + `
		FROM orders o` + toOneJoins + `
		JOIN (
			SELECT o.order_id
			FROM orders o` + toOneJoins + where + `
			ORDER BY o.order_id
			LIMIT ?
		) capped ON capped.order_id = o.order_id
		LEFT JOIN order_item oi ON oi.order_id = o.order_id
		LEFT JOIN item i ON i.item_id = oi.item_id
		ORDER BY o.order_id, oi.order_item_id`
	return q, append(args, domain.MaxResults)
}

func itemsBatchQuery(orderIDs []int64) (string, []any) {
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	q := `
		SELECT ` + itemColumns + `
		FROM order_item oi
		LEFT JOIN item i ON i.item_id = oi.item_id
		WHERE oi.order_id IN (` + placeholders(len(orderIDs)) + `)
		ORDER BY oi.order_id, oi.order_item_id`
	return q, args
}

const itemsSingleQuery = `
		SELECT ` + itemColumns + `
		FROM order_item oi
		LEFT JOIN item i ON i.item_id = oi.item_id
		WHERE oi.order_id = ?
		ORDER BY oi.order_item_id`

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
