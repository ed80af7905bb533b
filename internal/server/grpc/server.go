// Package grpc exposes the standard gRPC health service. Its serving status
// follows a periodic probe of the object store.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gemdeck/internal/logging"
	"github.com/dmitrijs2005/gemdeck/internal/server/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "gemdeck"

// Prober checks a dependency. A nil error means healthy.
type Prober interface {
	Probe(ctx context.Context) error
}

type HealthServer struct {
	address  string
	prober   Prober
	interval time.Duration
	metrics  metrics.Recorder
	logger   logging.Logger
	health   *health.Server
}

func NewHealthServer(a string, p Prober, interval time.Duration, m metrics.Recorder, l logging.Logger) *HealthServer {
	if m == nil {
		m = metrics.Nop{}
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthServer{
		address:  a,
		prober:   p,
		interval: interval,
		metrics:  m,
		logger:   l.With("module", "grpc_server"),
		health:   health.NewServer(),
	}
}

// check runs one probe and publishes the result.
func (s *HealthServer) check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	probeCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := s.prober.Probe(probeCtx); err != nil {
		s.logger.Warn(ctx, "storage probe failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	s.metrics.StorageUp(st == healthpb.HealthCheckResponse_SERVING)
	return st
}

func (s *HealthServer) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *HealthServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *HealthServer) serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.check(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
