package registry

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/sam-phinizy/beer-hall/internal/domain/formula"
	repository "github.com/sam-phinizy/beer-hall/internal/repository/registry"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Resolve(ctx context.Context, name, version string, target formula.Target) (*formula.Selection, error)
	ListFormulas(ctx context.Context) ([]formula.Summary, error)
}

// Server implements the Registry gRPC API.
type Server struct {
	// service provides the registry lookups and resolution.
	service Service
}

var _ RegistryServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Resolve returns the artifact selected for the requested package and target.
// Unknown targets reach the service, which reports them as unsupported.
func (s *Server) Resolve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	request, err := ParseResolveRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	selection, err := s.service.Resolve(ctx, request.Name, request.Version, request.Target)
	if err != nil {
		return nil, toStatus(err)
	}

	return SelectionToStruct(selection), nil
}

// ListFormulas returns a summary of every registered package.
func (s *Server) ListFormulas(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	summaries, err := s.service.ListFormulas(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	return SummariesToStruct(summaries), nil
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, formula.ErrUnsupportedPlatform):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
