package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rl1809/order-query/internal/core/domain"
)

// dbTime scans DATETIME columns from both drivers. go-sql-driver/mysql with
// parseTime=true returns time.Time; modernc sqlite may hand back TEXT.
type dbTime struct {
	time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("scan time: unsupported type %T", src)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("scan time: unrecognised format %q", s)
}

// rootColumns selects an order with its member and delivery.
const rootColumns = `o.order_id, o.order_date, o.status,
		m.member_id, m.name, m.city, m.street, m.zipcode,
		d.delivery_id, d.city, d.street, d.zipcode, d.status`

// itemColumns selects an order line with its catalog item. Every column may be
// NULL when order_item is outer-joined.
const itemColumns = `oi.order_item_id, oi.order_id, oi.order_price, oi.count,
		i.item_id, i.dtype, i.name, i.price, i.stock_quantity,
		i.artist, i.etc, i.author, i.isbn, i.director, i.actor`

type rootCols struct {
	orderID        int64
	orderDate      dbTime
	status         string
	memberID       int64
	memberName     string
	memberCity     sql.NullString
	memberStreet   sql.NullString
	memberZipcode  sql.NullString
	deliveryID     int64
	deliveryCity   sql.NullString
	deliveryStreet sql.NullString
	deliveryZip    sql.NullString
	deliveryStatus string
}

func (r *rootCols) dest() []any {
	return []any{
		&r.orderID, &r.orderDate, &r.status,
		&r.memberID, &r.memberName, &r.memberCity, &r.memberStreet, &r.memberZipcode,
		&r.deliveryID, &r.deliveryCity, &r.deliveryStreet, &r.deliveryZip, &r.deliveryStatus,
	}
}

func (r *rootCols) aggregate() domain.OrderAggregate {
	return domain.OrderAggregate{
		OrderID:   r.orderID,
		OrderDate: r.orderDate.Time,
		Status:    domain.OrderStatus(r.status),
		Member: domain.Member{
			ID:   r.memberID,
			Name: r.memberName,
			Address: domain.Address{
				City:    r.memberCity.String,
				Street:  r.memberStreet.String,
				Zipcode: r.memberZipcode.String,
			},
		},
		Delivery: domain.Delivery{
			ID: r.deliveryID,
			Address: domain.Address{
				City:    r.deliveryCity.String,
				Street:  r.deliveryStreet.String,
				Zipcode: r.deliveryZip.String,
			},
			Status: domain.DeliveryStatus(r.deliveryStatus),
		},
		Items: []domain.OrderItemView{},
	}
}

type itemCols struct {
	orderItemID   sql.NullInt64
	orderID       sql.NullInt64
	orderPrice    sql.NullInt64
	count         sql.NullInt64
	itemID        sql.NullInt64
	dtype         sql.NullString
	name          sql.NullString
	price         sql.NullInt64
	stockQuantity sql.NullInt64
	artist        sql.NullString
	etc           sql.NullString
	author        sql.NullString
	isbn          sql.NullString
	director      sql.NullString
	actor         sql.NullString
}

func (c *itemCols) dest() []any {
	return []any{
		&c.orderItemID, &c.orderID, &c.orderPrice, &c.count,
		&c.itemID, &c.dtype, &c.name, &c.price, &c.stockQuantity,
		&c.artist, &c.etc, &c.author, &c.isbn, &c.director, &c.actor,
	}
}

// view builds the line item. ok is false when the row carries no order item
// (an order without lines under an outer join). A line whose item row is
// missing is a referential-integrity failure.
func (c *itemCols) view() (v domain.OrderItemView, ok bool, err error) {
	if !c.orderItemID.Valid {
		return v, false, nil
	}
	if !c.itemID.Valid {
		return v, false, fmt.Errorf("%w: order item %d", domain.ErrMissingChildReference, c.orderItemID.Int64)
	}
	kind, err := domain.ParseItemKind(c.dtype.String)
	if err != nil {
		return v, false, fmt.Errorf("item %d: %w", c.itemID.Int64, err)
	}

	item := domain.Item{
		ID:            c.itemID.Int64,
		Kind:          kind,
		Name:          c.name.String,
		Price:         int(c.price.Int64),
		StockQuantity: int(c.stockQuantity.Int64),
	}
	switch kind {
	case domain.ItemKindAlbum:
		item.Album = &domain.AlbumDetails{Artist: c.artist.String, Etc: c.etc.String}
	case domain.ItemKindBook:
		item.Book = &domain.BookDetails{Author: c.author.String, ISBN: c.isbn.String}
	case domain.ItemKindMovie:
		item.Movie = &domain.MovieDetails{Director: c.director.String, Actor: c.actor.String}
	}

	return domain.OrderItemView{
		ID:         c.orderItemID.Int64,
		OrderID:    c.orderID.Int64,
		Item:       item,
		OrderPrice: int(c.orderPrice.Int64),
		Count:      int(c.count.Int64),
	}, true, nil
}

// flatRow is one denormalized row: the order, its member and delivery, and at
// most one line.
type flatRow struct {
	rootCols
	itemCols
}

func (r *flatRow) dest() []any {
	return append(r.rootCols.dest(), r.itemCols.dest()...)
}

func scanRoot(rows *sql.Rows) (domain.OrderAggregate, error) {
	var r rootCols
	if err := rows.Scan(r.dest()...); err != nil {
		return domain.OrderAggregate{}, fmt.Errorf("scan order: %w", err)
	}
	return r.aggregate(), nil
}

func scanFlat(rows *sql.Rows) (flatRow, error) {
	var r flatRow
	if err := rows.Scan(r.dest()...); err != nil {
		return flatRow{}, fmt.Errorf("scan order row: %w", err)
	}
	return r, nil
}

func scanItem(rows *sql.Rows) (domain.OrderItemView, error) {
	var c itemCols
	if err := rows.Scan(c.dest()...); err != nil {
		return domain.OrderItemView{}, fmt.Errorf("scan order item: %w", err)
	}
	v, ok, err := c.view()
	if err != nil {
		return domain.OrderItemView{}, err
	}
	if !ok {
		return domain.OrderItemView{}, fmt.Errorf("scan order item: row without order_item_id")
	}
	return v, nil
}
