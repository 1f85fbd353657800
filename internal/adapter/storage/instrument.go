package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/rl1809/order-query/internal/core/domain"
	"github.com/rl1809/order-query/internal/metrics"
)

// DefaultBatchSize bounds the IN-list of one batched item query. It matches
// the root cap, so a capped root set always needs a single batch.
const DefaultBatchSize = domain.MaxResults

var tracer = otel.Tracer("github.com/rl1809/order-query/internal/adapter/storage")

type Option func(*options)

type options struct {
	batchSize int
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func newOptions(opts []Option) options {
	o := options{batchSize: DefaultBatchSize, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// observe wraps one store round trip: the query and the consumption of its
// rows. fn returns the number of rows it read.
func (o options) observe(ctx context.Context, shape string, fn func(ctx context.Context) (int, error)) error {
	ctx, span := tracer.Start(ctx, "orderquery.store."+shape)
	defer span.End()
	span.SetAttributes(attribute.String("db.query.shape", shape))

	metrics.CountRoundTrip(ctx)
	start := time.Now()
	n, err := fn(ctx)
	elapsed := time.Since(start)

	o.metrics.ObserveQuery(shape, elapsed, err)
	span.SetAttributes(attribute.Int("db.rows", n))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.log.Warn("store query failed",
			zap.String("shape", shape),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return err
	}
	o.log.Debug("store query",
		zap.String("shape", shape),
		zap.Int("rows", n),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

// storeError classifies a failure of the query capability. Cancellation
// stays a context error; anything else is ErrStoreUnavailable with the driver
// error kept in the chain.
func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
