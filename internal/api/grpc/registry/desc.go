package registry

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "beerhall.v1.Registry"

	// ResolveMethod is the full method name of Resolve.
	ResolveMethod = "/" + ServiceName + "/Resolve"

	// ListFormulasMethod is the full method name of ListFormulas.
	ListFormulasMethod = "/" + ServiceName + "/ListFormulas"
)

// RegistryServer is the server API for the registry service.
type RegistryServer interface {
	Resolve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListFormulas(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the registry service for grpc.Server.
//
//nolint:gochecknoglobals // Mirrors the descriptor protoc-gen-go-grpc would emit.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Resolve",
			Handler:    resolveHandler,
		},
		{
			MethodName: "ListFormulas",
			Handler:    listFormulasHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "beerhall/v1/registry.proto",
}

// RegisterRegistryServer registers srv on s.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func resolveHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(RegistryServer).Resolve(ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ResolveMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegistryServer).Resolve(ctx, req.(*structpb.Struct)) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	return interceptor(ctx, in, info, handler)
}

func listFormulasHandler(
	srv any,
	ctx context.Context, //nolint:revive // Signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(RegistryServer).ListFormulas(ctx, in) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ListFormulasMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegistryServer).ListFormulas(ctx, req.(*structpb.Struct)) //nolint:forcetypeassert // Guaranteed by HandlerType.
	}

	return interceptor(ctx, in, info, handler)
}
