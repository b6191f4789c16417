package store

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Transport types.
const (
	TransportTCP = "tcp"
	TransportUDS = "uds"
)

// ServiceRegistrar registers services with the gRPC server.
type ServiceRegistrar func(server *grpc.Server)

// ServerOptions configures the gRPC server.
type ServerOptions struct {
	ServiceName      string
	Transport        string // "tcp" or "uds"
	Address          string // "[::]:port" for TCP or "/path/to/socket" for UDS
	EnableReflection bool
	// OnShutdown runs before the server stops accepting work, e.g. to end
	// long-lived streams.
	OnShutdown func()
}

// Listen opens the listener described by opts. For UDS the socket directory
// is created and a stale socket file removed first.
func Listen(opts ServerOptions) (net.Listener, error) {
	if opts.Transport == TransportUDS {
		if err := os.MkdirAll(filepath.Dir(opts.Address), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create socket dir: %w", err)
		}
		_ = os.Remove(opts.Address)
		return net.Listen("unix", opts.Address)
	}
	return net.Listen("tcp", opts.Address)
}

// CreateServer creates a gRPC server with health checking and optional
// reflection.
func CreateServer(registrar ServiceRegistrar, opts ServerOptions) (*grpc.Server, *health.Server) {
	server := grpc.NewServer()
	registrar(server)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	if opts.ServiceName != "" {
		healthServer.SetServingStatus(opts.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	}

	if opts.EnableReflection {
		reflection.Register(server)
	}
	return server, healthServer
}

// Serve runs server on lis until ctx is cancelled, then marks the health
// service NOT_SERVING, calls OnShutdown and stops gracefully.
func Serve(ctx context.Context, lis net.Listener, registrar ServiceRegistrar, opts ServerOptions, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	server, healthServer := CreateServer(registrar, opts)

	served := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
		case <-served:
			server.Stop()
			return
		}
		logger.Info("shutting down server")
		healthServer.Shutdown()
		if opts.OnShutdown != nil {
			opts.OnShutdown()
		}
		server.GracefulStop()
	}()

	logger.Info("server started",
		zap.String("service", opts.ServiceName),
		zap.String("transport", opts.Transport),
		zap.String("address", lis.Addr().String()),
	)

	err := server.Serve(lis)
	close(served)
	<-stopped
	if err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// RunServer listens according to opts and serves until ctx is cancelled.
func RunServer(ctx context.Context, registrar ServiceRegistrar, opts ServerOptions, logger *zap.Logger) error {
	lis, err := Listen(opts)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.Address, err)
	}
	if opts.Transport == TransportUDS {
		defer CleanupSocket(opts.Address)
	}
	return Serve(ctx, lis, registrar, opts, logger)
}

// CleanupSocket removes a UDS socket file.
func CleanupSocket(socketPath string) {
	if socketPath != "" {
		_ = os.Remove(socketPath)
	}
}
