// Package grpchealth serves the standard gRPC health protocol next to the
// HTTP server so orchestrators can probe either transport.
package grpchealth

import (
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type Server struct {
	GRPC   *grpc.Server
	health *health.Server
	name   string
}

// New registers health and reflection services. Status starts NOT_SERVING.
func New(serviceName string) *Server {
	g := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(g, h)
	reflection.Register(g)

	h.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{GRPC: g, health: h, name: serviceName}
}

func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(s.name, st)
	s.health.SetServingStatus("", st)
}

// Serve blocks on lis until Stop is called.
func (s *Server) Serve(lis net.Listener, log *zap.Logger) error {
	log.Info("grpc server starting", zap.String("addr", lis.Addr().String()))
	return s.GRPC.Serve(lis)
}

// Stop marks the server NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.GRPC.GracefulStop()
}
