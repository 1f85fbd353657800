package domain

import "time"

// OrderItemView is one hydrated line of an aggregate.
type OrderItemView struct {
	ID         int64 `json:"order_item_id"`
	OrderID    int64 `json:"order_id"`
	Item       Item  `json:"item"`
	OrderPrice int   `json:"order_price"`
	Count      int   `json:"count"`
}

func (v OrderItemView) TotalPrice() int {
	return v.OrderPrice * v.Count
}

// OrderAggregate is an order with its member, delivery and line items.
// Items is never nil once returned by a loader.
type OrderAggregate struct {
	OrderID   int64           `json:"order_id"`
	OrderDate time.Time       `json:"order_date"`
	Status    OrderStatus     `json:"status"`
	Member    Member          `json:"member"`
	Delivery  Delivery        `json:"delivery"`
	Items     []OrderItemView `json:"items"`
}

func (a OrderAggregate) TotalPrice() int {
	total := 0
	for _, it := range a.Items {
		total += it.TotalPrice()
	}
	return total
}

func (a OrderAggregate) ItemCount() int {
	return len(a.Items)
}

// OrderIDs returns root ids in input order, without duplicates.
func OrderIDs(aggs []OrderAggregate) []int64 {
	seen := make(map[int64]struct{}, len(aggs))
	ids := make([]int64, 0, len(aggs))
	for _, a := range aggs {
		if _, ok := seen[a.OrderID]; ok {
			continue
		}
		seen[a.OrderID] = struct{}{}
		ids = append(ids, a.OrderID)
	}
	return ids
}

// AttachItems sets each aggregate's lines from a batch lookup keyed by order
// id. A missing key means the order has no lines.
func AttachItems(aggs []OrderAggregate, items map[int64][]OrderItemView) {
	for i := range aggs {
		if lines, ok := items[aggs[i].OrderID]; ok && lines != nil {
			aggs[i].Items = lines
		} else {
			aggs[i].Items = []OrderItemView{}
		}
	}
}
