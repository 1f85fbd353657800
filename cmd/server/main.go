package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/order-query/internal/adapter/handler"
	"github.com/rl1809/order-query/internal/adapter/storage"
	"github.com/rl1809/order-query/internal/config"
	"github.com/rl1809/order-query/internal/core/domain"
	"github.com/rl1809/order-query/internal/core/service"
	"github.com/rl1809/order-query/internal/metrics"
	"github.com/rl1809/order-query/internal/platform/logger"
	"github.com/rl1809/order-query/internal/platform/tracing"
)

const healthInterval = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:           "orderquery",
	Short:         "Read-side order aggregate query server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newServeCmd(), newQueryCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is everything both commands share.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *sql.DB
	orders   *service.OrderQueryService
	registry *prometheus.Registry
	shutdown func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tp, err := tracing.NewProvider(cfg.Traces, os.Stdout)
	if err != nil {
		return nil, err
	}
	shutdownTraces := tracing.Install(tp)

	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("connected to order store", zap.String("driver", cfg.Driver))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	adapterOpts := []storage.Option{
		storage.WithBatchSize(cfg.BatchSize),
		storage.WithLogger(log.Named("storage")),
		storage.WithMetrics(m),
	}
	svcOpts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithMetrics(m),
	}
	if cfg.RootQueryStyle == config.RootQueryBuilder {
		gdb, err := storage.OpenGorm(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		svcOpts = append(svcOpts, service.WithRootLoader(storage.NewGormAdapter(gdb, adapterOpts...)))
		log.Info("using builder root loader")
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		orders:   service.NewOrderQueryService(storage.NewSQLAdapter(db, adapterOpts...), svcOpts...),
		registry: registry,
		shutdown: shutdownTraces,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.Driver == config.DriverSQLite {
		return storage.OpenSQLite(ctx, cfg.SQLitePath)
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	return storage.OpenMySQL(ctx, dsn)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.log.Warn("trace shutdown failed", zap.Error(err))
	}
	_ = a.db.Close()
	_ = a.log.Sync()
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP read API and gRPC health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	// gRPC health
	grpcServer := grpc.NewServer()
	grpcHealth := handler.NewGRPCHealth(a.db, a.log.Named("grpc"))
	grpcHealth.Register(grpcServer)
	go grpcHealth.Run(ctx, healthInterval)

	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.GRPCAddr, err)
	}
	go func() {
		a.log.Info("gRPC server listening", zap.String("addr", a.cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			a.log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// HTTP read API
	httpHandler := handler.NewHTTPHandler(a.orders, a.db, a.log.Named("http"))
	httpServer := &http.Server{
		Addr: a.cfg.HTTPAddr,
		Handler: httpHandler.Routes(map[string]http.Handler{
			"/metrics": promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("HTTP server listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.log.Info("shutting down")
	grpcHealth.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("HTTP shutdown failed", zap.Error(err))
	}
	a.log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	a.log.Info("gRPC server stopped")
	return nil
}

func newQueryCmd() *cobra.Command {
	var (
		strategy string
		status   string
		member   string
		offset   int
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Load orders once with one strategy and print them as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := service.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			filter := domain.FilterSpec{MemberNameContains: member}
			if status != "" {
				s, err := domain.ParseOrderStatus(status)
				if err != nil {
					return err
				}
				filter.Status = &s
			}
			page := domain.Unpaged
			switch {
			case limit > 0 || cmd.Flags().Changed("limit"):
				page, err = domain.NewPage(offset, limit)
			case offset > 0 || cmd.Flags().Changed("offset"):
				page, err = domain.NewOffsetPage(offset)
			}
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			orders, err := a.orders.Find(cmd.Context(), st, filter, page)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(orders)
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", string(service.StrategyBatch), "lazy, join, batch or flat")
	cmd.Flags().StringVar(&status, "status", "", "ORDER or CANCEL")
	cmd.Flags().StringVar(&member, "member", "", "member name substring")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset (lazy and batch only)")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (lazy and batch only)")
	return cmd
}
