package storage

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/rl1809/order-query/internal/core/domain"
)

func row(orderID, orderItemID, itemID int64) *flatRow {
	r := &flatRow{}
	r.rootCols.orderID = orderID
	r.rootCols.status = "ORDER"
	r.rootCols.memberName = "Alice"
	if orderItemID != 0 {
		r.itemCols.orderItemID = sql.NullInt64{Int64: orderItemID, Valid: true}
		r.itemCols.orderID = sql.NullInt64{Int64: orderID, Valid: true}
		r.itemCols.count = sql.NullInt64{Int64: 1, Valid: true}
	}
	if itemID != 0 {
		r.itemCols.itemID = sql.NullInt64{Int64: itemID, Valid: true}
		r.itemCols.dtype = sql.NullString{String: "B", Valid: true}
		r.itemCols.name = sql.NullString{String: "Book", Valid: true}
	}
	return r
}

func itemIDs(a domain.OrderAggregate) []int64 {
	ids := make([]int64, 0, len(a.Items))
	for _, it := range a.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

func TestFlatFolder_KeepsFirstSeenOrder(t *testing.T) {
	f := newFlatFolder()
	for _, r := range []*flatRow{
		row(7, 70, 1), row(7, 71, 2), row(3, 30, 1), row(9, 0, 0), row(7, 72, 1),
	} {
		if err := f.add(r); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	got := f.result()
	if len(got) != 3 {
		t.Fatalf("expected 3 aggregates, got %d", len(got))
	}
	wantOrder := []int64{7, 3, 9}
	for i, id := range wantOrder {
		if got[i].OrderID != id {
			t.Errorf("position %d: expected order %d, got %d", i, id, got[i].OrderID)
		}
	}
	if ids := itemIDs(got[0]); len(ids) != 3 || ids[0] != 70 || ids[1] != 71 || ids[2] != 72 {
		t.Errorf("order 7: expected items [70 71 72], got %v", ids)
	}
	if got[2].Items == nil || len(got[2].Items) != 0 {
		t.Errorf("order 9: expected empty non-nil items, got %#v", got[2].Items)
	}
}

func TestFlatFolder_MissingItem(t *testing.T) {
	f := newFlatFolder()
	err := f.add(row(1, 10, 0))
	if !errors.Is(err, domain.ErrMissingChildReference) {
		t.Errorf("expected ErrMissingChildReference, got %v", err)
	}
}

func TestDedupFolder_CollapsesJoinFanOut(t *testing.T) {
	f := newDedupFolder()
	add := func(orderID, lineID int64) {
		order := domain.OrderAggregate{OrderID: orderID}
		if lineID == 0 {
			f.add(order, nil)
			return
		}
		f.add(order, &domain.OrderItemView{ID: lineID, OrderID: orderID})
	}

	// Order 1 has 3 lines, each repeated twice by an extra to-many join.
	for _, line := range []int64{10, 10, 11, 11, 12, 12} {
		add(1, line)
	}
	add(2, 0)
	add(1, 10)

	got := f.result()
	if len(got) != 2 {
		t.Fatalf("expected 2 aggregates, got %d", len(got))
	}
	if ids := itemIDs(got[0]); len(ids) != 3 || ids[0] != 10 || ids[1] != 11 || ids[2] != 12 {
		t.Errorf("order 1: expected items [10 11 12], got %v", ids)
	}
	if len(got[1].Items) != 0 {
		t.Errorf("order 2: expected no items, got %d", len(got[1].Items))
	}
}

func TestGroupByOrder_PreservesArrivalOrder(t *testing.T) {
	groups := map[int64][]domain.OrderItemView{}
	for _, v := range []domain.OrderItemView{
		{ID: 5, OrderID: 1}, {ID: 2, OrderID: 3}, {ID: 9, OrderID: 1},
	} {
		groupByOrder(groups, v)
	}

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if g := groups[1]; len(g) != 2 || g[0].ID != 5 || g[1].ID != 9 {
		t.Errorf("order 1: unexpected group %v", g)
	}
}

func TestItemColsView_Variants(t *testing.T) {
	c := itemCols{
		orderItemID: sql.NullInt64{Int64: 1, Valid: true},
		itemID:      sql.NullInt64{Int64: 2, Valid: true},
		dtype:       sql.NullString{String: "A", Valid: true},
		artist:      sql.NullString{String: "IU", Valid: true},
		author:      sql.NullString{String: "ignored", Valid: true},
	}
	v, ok, err := c.view()
	if err != nil || !ok {
		t.Fatalf("view failed: ok=%v err=%v", ok, err)
	}
	if v.Item.Album == nil || v.Item.Album.Artist != "IU" {
		t.Errorf("expected album details, got %+v", v.Item)
	}
	if v.Item.Book != nil || v.Item.Movie != nil {
		t.Errorf("expected only album details, got %+v", v.Item)
	}

	c.dtype = sql.NullString{String: "Z", Valid: true}
	if _, _, err := c.view(); !errors.Is(err, domain.ErrUnknownItemKind) {
		t.Errorf("expected ErrUnknownItemKind, got %v", err)
	}
}

func TestDBTimeScan(t *testing.T) {
	var ts dbTime
	for _, in := range []any{
		"2024-03-01 09:00:00+00:00",
		"2024-03-01T09:00:00Z",
		[]byte("2024-03-01 09:00:00"),
		"2024-03-01 09:00:00 +0000 UTC",
	} {
		if err := ts.Scan(in); err != nil {
			t.Errorf("scan %v: %v", in, err)
			continue
		}
		if ts.Year() != 2024 || ts.Hour() != 9 {
			t.Errorf("scan %v: got %v", in, ts.Time)
		}
	}
	if err := ts.Scan(42); err == nil {
		t.Error("expected error for int input")
	}
}
