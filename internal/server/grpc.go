package server

import (
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/musiliandrew/pesamali-financial-journey/internal/config"
)

// GRPCServer hosts the health service so orchestrators can probe the
// engine without speaking the WebSocket protocol.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
	addr   string
}

// NewGRPCServer builds the server with keepalive enforcement.
func NewGRPCServer(cfg config.GRPCConfig, logger *zap.Logger) *GRPCServer {
	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 5 * time.Minute,
			Time:              2 * time.Minute,
			Timeout:           20 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             1 * time.Minute,
			PermitWithoutStream: true,
		}),
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}

	srv := grpc.NewServer(opts...)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &GRPCServer{
		server: srv,
		health: healthSrv,
		logger: logger,
		addr:   cfg.Address,
	}
}

// Serve listens and blocks until the server stops.
func (g *GRPCServer) Serve() error {
	lis, err := net.Listen("tcp", g.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", g.addr, err)
	}
	g.logger.Info("grpc server listening", zap.String("address", g.addr))
	return g.server.Serve(lis)
}

// SetNotServing flips the health status during shutdown so probes fail
// before connections are dropped.
func (g *GRPCServer) SetNotServing() {
	g.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
}

// GracefulStop drains in-flight RPCs.
func (g *GRPCServer) GracefulStop() {
	g.server.GracefulStop()
}
