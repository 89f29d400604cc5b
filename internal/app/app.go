package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/config"
	"github.com/corray333/backend-labs/orderview/internal/dal/interfaces/iordercache"
	"github.com/corray333/backend-labs/orderview/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderview/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/orderview/internal/dal/redis"
	ordercache "github.com/corray333/backend-labs/orderview/internal/dal/repositories/order/redis"
	outboxrepo "github.com/corray333/backend-labs/orderview/internal/dal/repositories/outbox/postgres"
	"github.com/corray333/backend-labs/orderview/internal/otel"
	"github.com/corray333/backend-labs/orderview/internal/service/dispatcher"
	"github.com/corray333/backend-labs/orderview/internal/service/pricing"
	"github.com/corray333/backend-labs/orderview/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/orderview/internal/service/services/viewsvc"
	grpctransport "github.com/corray333/backend-labs/orderview/internal/transport/grpc"
	httptransport "github.com/corray333/backend-labs/orderview/internal/transport/http"
	outboxworker "github.com/corray333/backend-labs/orderview/internal/worker/outbox"
	"github.com/corray333/backend-labs/orderview/internal/worker/sweeper"
	"github.com/corray333/backend-labs/orderview/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App represents the application.
type App struct {
	viewSvc        *viewsvc.ViewService
	httpTransport  *httptransport.HTTPTransport
	grpcTransport  *grpctransport.GRPCTransport
	outboxWorker   *outboxworker.Worker
	sweeper        *sweeper.Worker
	postgresClient *postgres.Client
	redisClient    *redis.Client
	rabbitMqClient *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	redisClient := redis.MustNewClient()
	rabbitMqClient := rabbitmq.MustNewClient()

	exchange := viper.GetString("rabbitmq.exchange")
	if err := rabbitMqClient.DeclareExchange(exchange); err != nil {
		panic("failed to declare exchange: " + err.Error())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var cache iordercache.IOrderCache
	if redisClient != nil {
		cache = ordercache.NewOrderCache(redisClient.Redis(), "orderview", config.CacheTTL())
	}
	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithOrderCache(cache),
		ordersvc.WithEventExchange(exchange, viper.GetInt("rabbitmq.outbox.max_retries")),
	)

	pricingCfg, err := config.PricingConfig()
	if err != nil {
		panic(err)
	}
	engine, err := pricing.NewEngine(pricingCfg)
	if err != nil {
		panic("invalid pricing config: " + err.Error())
	}

	disp := dispatcher.MustNewDispatcher(
		dispatcher.WithOrderRepository(orderSvc),
		dispatcher.WithPaymentProvider(orderSvc),
		dispatcher.WithTimeout(config.CommandTimeout()),
		dispatcher.WithMetrics(m),
	)

	viewSvc := viewsvc.MustNewViewService(
		viewsvc.WithDispatcher(disp),
		viewsvc.WithPricingEngine(engine),
		viewsvc.WithMetrics(m),
	)

	httpTransport := httptransport.NewHTTPTransport(
		viewSvc,
		httptransport.WithMetrics(m, reg),
		httptransport.WithPayPalClientID(os.Getenv("PAYPAL_CLIENT_ID")),
	)
	httpTransport.RegisterRoutes()

	outboxWorker := outboxworker.NewWorker(
		outboxrepo.NewOutboxRepository(postgresClient.Pool()),
		rabbitMqClient,
		m,
	)

	return &App{
		viewSvc:        viewSvc,
		httpTransport:  httpTransport,
		grpcTransport:  grpctransport.NewGRPCTransport(),
		outboxWorker:   outboxWorker,
		sweeper:        sweeper.NewWorker(viewSvc),
		postgresClient: postgresClient,
		redisClient:    redisClient,
		rabbitMqClient: rabbitMqClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting HTTP server")
		if err := a.httpTransport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})
	g.Go(func() error {
		return a.grpcTransport.Run()
	})
	g.Go(func() error {
		a.outboxWorker.Start(gctx)

		return nil
	})
	g.Go(func() error {
		a.sweeper.Start(gctx)

		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.shutdown()

		return nil
	})

	a.grpcTransport.SetServing(true)

	if err := g.Wait(); err != nil {
		slog.Error("Application stopped with error", "error", err)
	}

	a.close()
	slog.Info("Application shutdown complete")
}

// shutdown stops the servers so the run group can drain.
func (a *App) shutdown() {
	slog.Info("Shutdown signal received")
	a.grpcTransport.SetServing(false)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpTransport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.grpcTransport.Shutdown(ctx); err != nil {
		slog.Error("gRPC server shutdown error", "error", err)
	} else {
		slog.Info("gRPC server stopped gracefully")
	}

	a.viewSvc.CloseAll()
}

// close releases the clients once nothing uses them anymore.
func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			slog.Error("Redis connection close error", "error", err)
		}
	}
	a.postgresClient.Close()
	slog.Info("Database connection closed")

	if err := a.otelController.Shutdown(ctx); err != nil {
		slog.Error("Tracer provider shutdown error", "error", err)
	}
}
