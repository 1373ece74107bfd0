package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	healthsvc "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCServer exposes the standard gRPC health protocol for infra
// probes that speak grpc_health_v1 instead of HTTP.
type GRPCServer struct {
	monitor *Monitor
	server  *grpc.Server
	health  *healthsvc.Server
	port    int
}

// NewGRPCServer creates a gRPC health server backed by the monitor.
func NewGRPCServer(monitor *Monitor, port int) *GRPCServer {
	srv := grpc.NewServer()
	hs := healthsvc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &GRPCServer{
		monitor: monitor,
		server:  srv,
		health:  hs,
		port:    port,
	}
}

// Start listens and serves, refreshing the reported status in the
// background until the context is cancelled.
func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen for grpc health: %w", err)
	}

	go s.refreshLoop(ctx)

	return s.server.Serve(lis)
}

// Stop gracefully stops the server.
func (s *GRPCServer) Stop() {
	s.server.GracefulStop()
}

func (s *GRPCServer) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	s.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *GRPCServer) refresh(ctx context.Context) {
	report := s.monitor.CheckHealth(ctx)

	status := healthpb.HealthCheckResponse_SERVING
	if report.SystemStatus == StatusCritical {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
}
