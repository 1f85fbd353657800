package storage

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rl1809/order-query/internal/core/domain"
	"github.com/rl1809/order-query/internal/port"
)

var _ port.RootLoader = (*GormAdapter)(nil)

// GormAdapter builds the root query with gorm's chain API instead of string
// concatenation. Rows are scanned with the same code as SQLAdapter so both
// produce identical aggregates.
type GormAdapter struct {
	db *gorm.DB
	options
}

func NewGormAdapter(db *gorm.DB, opts ...Option) *GormAdapter {
	return &GormAdapter{db: db, options: newOptions(opts)}
}

// OpenGorm wraps an existing connection pool. The MySQL dialector emits
// plain "?" placeholders and LIMIT/OFFSET, which SQLite accepts as well.
func OpenGorm(db *sql.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return gdb, nil
}

func (g *GormAdapter) LoadRootsSeparate(ctx context.Context, cond domain.Condition, page domain.Page) ([]domain.OrderAggregate, error) {
	offset, limit := page.Window()

	out := []domain.OrderAggregate{}
	err := g.observe(ctx, shapeRoots, func(ctx context.Context) (int, error) {
		tx := g.db.WithContext(ctx).
			Table("orders AS o").
			Select(rootColumns).
			Joins("JOIN member m ON m.member_id = o.member_id").
			Joins("JOIN delivery d ON d.delivery_id = o.delivery_id")
		tx = applyCondition(tx, cond).
			Order("o.order_id").
			Limit(limit).
			Offset(offset)

		rows, err := tx.Rows()
		if err != nil {
			return 0, storeError("query roots", err)
		}
		defer func() { _ = rows.Close() }()

		n := 0
		for rows.Next() {
			agg, err := scanRoot(rows)
			if err != nil {
				return n, err
			}
			out = append(out, agg)
			n++
		}
		if err := rows.Err(); err != nil {
			return n, storeError("query roots", err)
		}
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
