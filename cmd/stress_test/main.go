package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rl1809/order-query/internal/adapter/storage"
	"github.com/rl1809/order-query/internal/core/domain"
	"github.com/rl1809/order-query/internal/core/service"
	"github.com/rl1809/order-query/internal/metrics"
)

const (
	memberCount    = 20
	ordersPerUser  = 10
	linesPerOrder  = 4
	itemCount      = 12
	runsPerWorker  = 5
	workersPerKind = 4
)

type result struct {
	runs    atomic.Int32
	fails   atomic.Int32
	elapsed atomic.Int64
}

// countingQuerier counts the queries one strategy sends to the store.
type countingQuerier struct {
	db    *sql.DB
	calls atomic.Int64
}

func (c *countingQuerier) QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	c.calls.Add(1)
	return c.db.QueryContext(ctx, q, args...)
}

func main() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "orderquery-stress")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	db, err := storage.OpenSQLite(ctx, filepath.Join(dir, "orders.db"))
	if err != nil {
		log.Fatalf("failed to open sqlite: %v", err)
	}
	defer db.Close()

	totalOrders, err := seed(ctx, storage.NewSeeder(db))
	if err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	m := metrics.New(prometheus.NewRegistry())
	newService := func(q *countingQuerier) *service.OrderQueryService {
		return service.NewOrderQueryService(
			storage.NewSQLAdapter(q, storage.WithMetrics(m)),
			service.WithMetrics(m),
			service.WithLogger(zap.NewNop()),
		)
	}

	// Reference result
	want, err := newService(&countingQuerier{db: db}).FindFlat(ctx, domain.FilterSpec{}, domain.Unpaged)
	if err != nil {
		log.Fatalf("failed to load reference: %v", err)
	}

	results := make(map[service.Strategy]*result, len(service.Strategies))
	queriers := make(map[service.Strategy]*countingQuerier, len(service.Strategies))
	services := make(map[service.Strategy]*service.OrderQueryService, len(service.Strategies))
	for _, s := range service.Strategies {
		results[s] = &result{}
		queriers[s] = &countingQuerier{db: db}
		services[s] = newService(queriers[s])
	}

	// Run every strategy concurrently against the same store
	var wg sync.WaitGroup
	start := time.Now()
	for _, s := range service.Strategies {
		for w := 0; w < workersPerKind; w++ {
			wg.Add(1)
			go func(s service.Strategy) {
				defer wg.Done()
				r := results[s]
				for i := 0; i < runsPerWorker; i++ {
					t := time.Now()
					got, err := services[s].Find(ctx, s, domain.FilterSpec{}, domain.Unpaged)
					r.elapsed.Add(int64(time.Since(t)))
					r.runs.Add(1)
					if err != nil || !reflect.DeepEqual(got, want) {
						r.fails.Add(1)
					}
				}
			}(s)
		}
	}
	wg.Wait()
	elapsed := time.Since(start)

	// Results
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Orders:           %d\n", totalOrders)
	fmt.Printf("Loaded:           %d\n", len(want))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("------------------------------------------")
	fmt.Printf("%-8s %6s %6s %12s %12s\n", "strategy", "runs", "fails", "avg", "round trips")

	failed := false
	for _, s := range service.Strategies {
		r := results[s]
		runs := r.runs.Load()
		avg := time.Duration(0)
		if runs > 0 {
			avg = time.Duration(r.elapsed.Load() / int64(runs))
		}
		trips := 0.0
		if runs > 0 {
			trips = float64(queriers[s].calls.Load()) / float64(runs)
		}
		fmt.Printf("%-8s %6d %6d %12v %12.1f\n", s, runs, r.fails.Load(), avg, trips)
		if r.fails.Load() > 0 {
			failed = true
		}
	}
	fmt.Println("==========================================")

	// Assertions
	if len(want) == totalOrders {
		fmt.Printf("PASS: all %d orders loaded\n", totalOrders)
	} else {
		fmt.Printf("FAIL: expected %d orders, got %d\n", totalOrders, len(want))
		failed = true
	}
	if !failed {
		fmt.Println("PASS: all strategies returned identical aggregates")
	} else {
		fmt.Println("FAIL: strategies disagree or errored")
		os.Exit(1)
	}
}

func seed(ctx context.Context, s *storage.Seeder) (int, error) {
	items := make([]int64, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		var item domain.Item
		name := fmt.Sprintf("item-%02d", i)
		switch i % 3 {
		case 0:
			item = domain.NewAlbum(name, 10000+i*100, 100, domain.AlbumDetails{Artist: "artist"})
		case 1:
			item = domain.NewBook(name, 12000+i*100, 100, domain.BookDetails{Author: "author", ISBN: fmt.Sprintf("isbn-%d", i)})
		default:
			item = domain.NewMovie(name, 15000+i*100, 100, domain.MovieDetails{Director: "director"})
		}
		id, err := s.SeedItem(ctx, item)
		if err != nil {
			return 0, err
		}
		items = append(items, id)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	total := 0
	for u := 0; u < memberCount; u++ {
		addr := domain.Address{City: "Seoul", Street: fmt.Sprintf("%d Main St", u), Zipcode: "01234"}
		memberID, err := s.SeedMember(ctx, domain.Member{Name: fmt.Sprintf("member-%02d", u), Address: addr})
		if err != nil {
			return 0, err
		}
		for o := 0; o < ordersPerUser; o++ {
			status := domain.OrderStatusOrder
			if o%4 == 3 {
				status = domain.OrderStatusCancel
			}
			// Every fifth order has no lines.
			n := linesPerOrder
			if o%5 == 4 {
				n = 0
			}
			lines := make([]storage.OrderLine, 0, n)
			for l := 0; l < n; l++ {
				lines = append(lines, storage.OrderLine{
					ItemID:     items[(u+o+l)%len(items)],
					OrderPrice: 10000 + l*500,
					Count:      l + 1,
				})
			}
			_, err := s.SeedOrder(ctx, storage.NewOrder{
				MemberID:  memberID,
				Delivery:  domain.Delivery{Address: addr},
				OrderDate: base.Add(time.Duration(total) * time.Minute),
				Status:    status,
				Lines:     lines,
			})
			if err != nil {
				return 0, err
			}
			total++
		}
	}
	return total, nil
}
