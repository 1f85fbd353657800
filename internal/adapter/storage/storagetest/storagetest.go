// Package storagetest provides a throwaway SQLite order store and a seeded
// scenario for tests in other packages.
package storagetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rl1809/order-query/internal/adapter/storage"
	"github.com/rl1809/order-query/internal/core/domain"
)

// OpenSQLite returns a schema-initialised store under t.TempDir().
func OpenSQLite(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(tb.TempDir(), "orders.db"))
	if err != nil {
		tb.Skipf("sqlite unavailable: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

// Scenario is the seeded data set:
//
//	Alice: order A (ORDER)  -> Book x2, Pen x1
//	       order B (CANCEL) -> Book x1
//	Bob:   order C (ORDER)  -> Album x1, Movie x3, Book x1
//	       order D (ORDER)  -> no lines
type Scenario struct {
	Alice, Bob                     int64
	Book, Pen, Album, Movie        int64
	OrderA, OrderB, OrderC, OrderD int64
}

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func Seed(tb testing.TB, db *sql.DB) Scenario {
	tb.Helper()
	s := storage.NewSeeder(db)
	var sc Scenario

	sc.Book = MustItem(tb, s, domain.NewBook("Book", 10000, 100, domain.BookDetails{Author: "Kim", ISBN: "978-0"}))
	sc.Pen = MustItem(tb, s, domain.NewBook("Pen", 1000, 500, domain.BookDetails{}))
	sc.Album = MustItem(tb, s, domain.NewAlbum("Album", 20000, 10, domain.AlbumDetails{Artist: "IU", Etc: "LP"}))
	sc.Movie = MustItem(tb, s, domain.NewMovie("Movie", 15000, 30, domain.MovieDetails{Director: "Bong", Actor: "Song"}))

	sc.Alice = MustMember(tb, s, "Alice", "Seoul")
	sc.Bob = MustMember(tb, s, "Bob", "Busan")

	sc.OrderA = MustOrder(tb, s, sc.Alice, domain.OrderStatusOrder, base,
		storage.OrderLine{ItemID: sc.Book, OrderPrice: 10000, Count: 2},
		storage.OrderLine{ItemID: sc.Pen, OrderPrice: 1000, Count: 1},
	)
	sc.OrderB = MustOrder(tb, s, sc.Alice, domain.OrderStatusCancel, base.Add(time.Hour),
		storage.OrderLine{ItemID: sc.Book, OrderPrice: 10000, Count: 1},
	)
	sc.OrderC = MustOrder(tb, s, sc.Bob, domain.OrderStatusOrder, base.Add(2*time.Hour),
		storage.OrderLine{ItemID: sc.Album, OrderPrice: 20000, Count: 1},
		storage.OrderLine{ItemID: sc.Movie, OrderPrice: 15000, Count: 3},
		storage.OrderLine{ItemID: sc.Book, OrderPrice: 9000, Count: 1},
	)
	sc.OrderD = MustOrder(tb, s, sc.Bob, domain.OrderStatusOrder, base.Add(3*time.Hour))

	return sc
}

func MustItem(tb testing.TB, s *storage.Seeder, item domain.Item) int64 {
	tb.Helper()
	id, err := s.SeedItem(context.Background(), item)
	if err != nil {
		tb.Fatalf("seed item %s: %v", item.Name, err)
	}
	return id
}

func MustMember(tb testing.TB, s *storage.Seeder, name, city string) int64 {
	tb.Helper()
	id, err := s.SeedMember(context.Background(), domain.Member{
		Name:    name,
		Address: domain.Address{City: city, Street: "1 Main St", Zipcode: "01234"},
	})
	if err != nil {
		tb.Fatalf("seed member %s: %v", name, err)
	}
	return id
}

func MustOrder(tb testing.TB, s *storage.Seeder, memberID int64, status domain.OrderStatus, at time.Time, lines ...storage.OrderLine) int64 {
	tb.Helper()
	id, err := s.SeedOrder(context.Background(), storage.NewOrder{
		MemberID: memberID,
		Delivery: domain.Delivery{
			Address: domain.Address{City: "Seoul", Street: "2 Side St", Zipcode: "04321"},
			Status:  domain.DeliveryStatusReady,
		},
		OrderDate: at,
		Status:    status,
		Lines:     lines,
	})
	if err != nil {
		tb.Fatalf("seed order: %v", err)
	}
	return id
}
