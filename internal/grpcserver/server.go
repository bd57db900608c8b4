// Package grpcserver exposes the standard gRPC health service so
// orchestrators can probe the scraper without going through HTTP.
//
// It only handles transport concerns: serving status, request logging and
// shutdown.
package grpcserver

import (
	"context"
	"net"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the health-check service name reported alongside "".
const ServiceName = "scraper.v1.ScraperService"

// Server wraps a grpc.Server with the health service registered.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger arbor.ILogger
}

// New constructs a Server. It reports NOT_SERVING until SetServing(true).
func New(logger arbor.ILogger) *Server {
	s := &Server{health: health.NewServer(), logger: logger}
	s.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(s.logUnary))
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.SetServing(false)
	return s
}

// SetServing flips both the overall and the named service status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Track mirrors alive() into the serving status, polling every interval
// until ctx is done.
func (s *Server) Track(ctx context.Context, alive func() bool, every time.Duration) {
	last := alive()
	s.SetServing(last)

	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if now := alive(); now != last {
				s.logger.Info().Bool("serving", now).Msg("Health status changed")
				s.SetServing(now)
				last = now
			}
		}
	}
}

// Serve blocks accepting connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// ─── Interceptors ─────────────────────────────────────────────────────────────

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	s.logger.Debug().
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("duration", time.Since(start)).
		Msg("gRPC request")
	return resp, err
}
