// Package health serves the standard gRPC health checking protocol for the hub.
package health

import (
	"context"
	"errors"
	"log/slog"
	"net"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name probes use to ask about the chat hub specifically.
const ServiceName = "listingchat.Hub"

type Server struct {
	GRPC   *grpc.Server
	health *grpchealth.Server
	log    *slog.Logger
	listen func() (net.Listener, error)
}

func NewServer(log *slog.Logger, address string) *Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(log)))
	h := grpchealth.NewServer()
	healthpb.RegisterHealthServer(s, h)
	return &Server{
		GRPC:   s,
		health: h,
		log:    log,
		listen: func() (net.Listener, error) { return net.Listen("tcp", address) },
	}
}

// Run serves until ctx is done, then reports NOT_SERVING and stops.
// A listen or serve failure is returned so the supervisor can retry.
func (s *Server) Run(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		return err
	}

	served := make(chan error, 1)
	go func() { served <- s.GRPC.Serve(listener) }()
	s.log.Info("Starting gRPC health server", "address", listener.Addr().String())
	s.Serving()

	select {
	case <-ctx.Done():
		s.Shutdown()
		<-served
		return nil
	case err := <-served:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// Serving marks the hub as ready.
func (s *Server) Serving() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Shutdown flips every service to NOT_SERVING and stops the gRPC server.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.GRPC.GracefulStop()
	s.log.Info("Health server stopped")
}
