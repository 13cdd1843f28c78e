package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The Control service speaks well-known protobuf types only, so no generated
// stubs are needed:
//
//	service Control {
//	  rpc GetStatus(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc ListResolutions(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc ListSources(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc GetTrend(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}

const ServiceName = "marketstructure.Control"

// -----------------------------------------------------------------------------

// ControlServer is the server API for the Control service
type ControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListResolutions(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListSources(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetTrend(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&Control_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

func unaryHandler[Req any](
	method string,
	call func(ControlServer, context.Context, *Req) (*structpb.Struct, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ControlServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// -----------------------------------------------------------------------------

var Control_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    unaryHandler("GetStatus", ControlServer.GetStatus),
		},
		{
			MethodName: "ListResolutions",
			Handler:    unaryHandler("ListResolutions", ControlServer.ListResolutions),
		},
		{
			MethodName: "ListSources",
			Handler:    unaryHandler("ListSources", ControlServer.ListSources),
		},
		{
			MethodName: "GetTrend",
			Handler:    unaryHandler("GetTrend", ControlServer.GetTrend),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "control.proto",
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) invoke(ctx context.Context, method string, in interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetStatus", &emptypb.Empty{}, opts...)
}

func (c *ControlClient) ListResolutions(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListResolutions", &emptypb.Empty{}, opts...)
}

func (c *ControlClient) ListSources(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListSources", &emptypb.Empty{}, opts...)
}

func (c *ControlClient) GetTrend(ctx context.Context, symbol, resolution string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"symbol": symbol, "resolution": resolution})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, "GetTrend", in, opts...)
}
