package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vietddude/walletscore/internal/core/domain"
	"github.com/vietddude/walletscore/internal/service"
)

// Server serves the scoring service and the standard health service.
type Server struct {
	port     int
	scorer   service.Scorer
	reporter *service.Reporter
	grpc     *grpc.Server
	health   *health.Server
	log      *slog.Logger
	now      func() time.Time
}

// NewServer creates a gRPC server listening on port once started.
func NewServer(port int, scorer service.Scorer, reporter *service.Reporter) *Server {
	s := &Server{
		port:     port,
		scorer:   scorer,
		reporter: reporter,
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		log:      slog.Default().With("component", "grpc"),
		now:      time.Now,
	}

	RegisterWalletScoringServer(s.grpc, s)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return s
}

// Start listens on the configured port and serves until stopped.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop drains in-flight calls, forcing shutdown when ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.grpc.Stop()
		return ctx.Err()
	}
}

// ScoreWallet implements WalletScoringServer.
func (s *Server) ScoreWallet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start := s.now()

	raw, err := protojson.Marshal(req)
	if err != nil {
		return nil, invalidArgument("", err)
	}
	in, err := domain.ParseWalletInput(raw)
	if err != nil {
		return nil, invalidArgument("", err)
	}
	if err := in.Validate(); err != nil {
		return nil, invalidArgument("wallet_address", err)
	}

	result := s.scorer.Process(in)
	if result == nil {
		return nil, status.Error(codes.Internal, "scoring engine returned no result")
	}

	end := s.now()
	elapsed := end.Sub(start)
	result.ProcessingTimeMs = elapsed.Milliseconds()
	result.Timestamp = end.Unix()

	s.reporter.Report(ctx, domain.TransportGRPC, result, elapsed)

	resp, err := toStruct(result)
	if err != nil {
		s.log.Error("Failed to encode result", "wallet", result.WalletAddress, "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func toStruct(result *domain.WalletScoreResult) (*structpb.Struct, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to convert result: %w", err)
	}
	return out, nil
}

// invalidArgument builds an InvalidArgument status carrying a BadRequest
// detail. An empty field marks a malformed document.
func invalidArgument(field string, cause error) error {
	if field == "" {
		field = "request"
	}
	st := status.New(codes.InvalidArgument, cause.Error())
	detailed, err := st.WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{{
			Field:       field,
			Description: cause.Error(),
		}},
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}
