package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "ipcountry.v1.CountryService"

	// LookupMethod is the full method path of the Lookup RPC.
	LookupMethod = "/" + ServiceName + "/Lookup"
)

// CountryServiceServer is the server API for CountryService. Lookup takes
// the IP address as a StringValue and returns the ISO country code.
type CountryServiceServer interface {
	Lookup(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// ServiceDesc describes CountryService for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CountryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Lookup",
			Handler:    lookupHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ipcountry/v1/ipcountry.proto",
}

// RegisterCountryServiceServer registers srv with s.
func RegisterCountryServiceServer(s grpc.ServiceRegistrar, srv CountryServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func lookupHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CountryServiceServer).Lookup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: LookupMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CountryServiceServer).Lookup(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Lookup calls CountryService.Lookup over conn.
func Lookup(ctx context.Context, conn grpc.ClientConnInterface, ip string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := conn.Invoke(ctx, LookupMethod, wrapperspb.String(ip), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
