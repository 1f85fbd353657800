package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rl1809/order-query/internal/core/domain"
)

// OrderLine is one line of an order being seeded.
type OrderLine struct {
	ItemID     int64
	OrderPrice int
	Count      int
}

// NewOrder describes an order together with the rows it owns.
type NewOrder struct {
	MemberID  int64
	Delivery  domain.Delivery
	OrderDate time.Time
	Status    domain.OrderStatus
	Lines     []OrderLine
}

// Seeder writes fixture data for tests, the stress tool and the local sqlite
// mode. Delivery and order_item rows are only written through SeedOrder.
type Seeder struct {
	db *sql.DB
}

func NewSeeder(db *sql.DB) *Seeder {
	return &Seeder{db: db}
}

func (s *Seeder) SeedItem(ctx context.Context, item domain.Item) (int64, error) {
	if err := item.Validate(); err != nil {
		return 0, fmt.Errorf("seed item: %w", err)
	}
	var artist, etc, author, isbn, director, actor sql.NullString
	switch item.Kind {
	case domain.ItemKindAlbum:
		artist = nullable(item.Album.Artist)
		etc = nullable(item.Album.Etc)
	case domain.ItemKindBook:
		author = nullable(item.Book.Author)
		isbn = nullable(item.Book.ISBN)
	case domain.ItemKindMovie:
		director = nullable(item.Movie.Director)
		actor = nullable(item.Movie.Actor)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO item (dtype, name, price, stock_quantity, artist, etc, author, isbn, director, actor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(item.Kind), item.Name, item.Price, item.StockQuantity,
		artist, etc, author, isbn, director, actor,
	)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	return result.LastInsertId()
}

func (s *Seeder) SeedMember(ctx context.Context, m domain.Member) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO member (name, city, street, zipcode) VALUES (?, ?, ?, ?)`,
		m.Name, m.Address.City, m.Address.Street, m.Address.Zipcode,
	)
	if err != nil {
		return 0, fmt.Errorf("insert member: %w", err)
	}
	return result.LastInsertId()
}

// SeedOrder inserts the delivery, the order and its lines in one transaction
// and returns the new order id.
func (s *Seeder) SeedOrder(ctx context.Context, o NewOrder) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	deliveryStatus := o.Delivery.Status
	if deliveryStatus == "" {
		deliveryStatus = domain.DeliveryStatusReady
	}
	result, err := tx.ExecContext(ctx, `
		INSERT INTO delivery (city, street, zipcode, status) VALUES (?, ?, ?, ?)`,
		o.Delivery.Address.City, o.Delivery.Address.Street, o.Delivery.Address.Zipcode, string(deliveryStatus),
	)
	if err != nil {
		return 0, fmt.Errorf("insert delivery: %w", err)
	}
	deliveryID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("delivery id: %w", err)
	}

	result, err = tx.ExecContext(ctx, `
		INSERT INTO orders (member_id, delivery_id, order_date, status) VALUES (?, ?, ?, ?)`,
		o.MemberID, deliveryID, o.OrderDate.UTC(), string(o.Status),
	)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("order id: %w", err)
	}

	for _, line := range o.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_item (order_id, item_id, order_price, count) VALUES (?, ?, ?, ?)`,
			orderID, line.ItemID, line.OrderPrice, line.Count,
		)
		if err != nil {
			return 0, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return orderID, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
