package grpctransport

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name reported by the health service for the order view API.
const ServiceName = "orderview.v1.OrderView"

// GRPCTransport serves health checks and reflection for probes and operators.
type GRPCTransport struct {
	server   *grpc.Server
	listener net.Listener
	health   *health.Server
}

// NewGRPCTransport creates a new GRPCTransport listening on server.grpc.port.
func NewGRPCTransport() *GRPCTransport {
	listener, err := net.Listen("tcp", ":"+viper.GetString("server.grpc.port"))
	if err != nil {
		panic(err)
	}

	return newGRPCTransport(listener)
}

func newGRPCTransport(listener net.Listener) *GRPCTransport {
	g := &GRPCTransport{
		server:   newGRPCServer(),
		listener: listener,
		health:   health.NewServer(),
	}
	g.RegisterServices()

	return g
}

// Run starts the gRPC server.
func (g *GRPCTransport) Run() error {
	slog.Info("Starting gRPC server", "address", g.listener.Addr().String())

	return g.server.Serve(g.listener)
}

// SetServing flips the health status of the server and of ServiceName.
func (g *GRPCTransport) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
}

// Shutdown gracefully shuts down the gRPC server.
func (g *GRPCTransport) Shutdown(ctx context.Context) error {
	g.health.Shutdown()

	done := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		g.server.Stop()

		return ctx.Err()
	}
}

// RegisterServices registers the gRPC services.
func (g *GRPCTransport) RegisterServices() {
	healthpb.RegisterHealthServer(g.server, g.health)
	reflection.Register(g.server)
	g.SetServing(false)
}

// newGRPCServer creates a gRPC server with the configured keepalive policy.
func newGRPCServer() *grpc.Server {
	const prefix = "server.grpc.keepalive."
	minutes := func(key string) time.Duration { return time.Duration(viper.GetInt(prefix+key)) * time.Minute }
	seconds := func(key string) time.Duration { return time.Duration(viper.GetInt(prefix+key)) * time.Second }

	return grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     minutes("max_connection_idle"),
			MaxConnectionAge:      minutes("max_connection_age"),
			MaxConnectionAgeGrace: seconds("max_connection_age_grace"),
			Time:                  seconds("time"),
			Timeout:               seconds("timeout"),
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             seconds("min_time"),
			PermitWithoutStream: viper.GetBool(prefix + "permit_without_stream"),
		}),
		grpc.ChainUnaryInterceptor(loggingInterceptor),
	)
}

func loggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "gRPC call failed", "method", info.FullMethod, "duration", time.Since(start), "error", err)
	} else {
		slog.DebugContext(ctx, "gRPC call", "method", info.FullMethod, "duration", time.Since(start))
	}

	return resp, err
}
