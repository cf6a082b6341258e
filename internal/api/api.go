// Package api defines the Mintflow gRPC service without generated code. The
// messages are protobuf well-known types: identifiers travel as
// StringValue, records as Struct holding their JSON form.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "mintflow.v1.Mintflow"

const (
	MethodPing                  = "Ping"
	MethodStartTransfer         = "StartTransfer"
	MethodStartBatch            = "StartBatch"
	MethodGetInjection          = "GetInjection"
	MethodGetLock               = "GetLock"
	MethodGetCertificate        = "GetCertificate"
	MethodGetBackingProof       = "GetBackingProof"
	MethodVerifyBackedSignature = "VerifyBackedSignature"
	MethodGetBalance            = "GetBalance"
	MethodGetPrices             = "GetPrices"
	MethodGetStatistics         = "GetStatistics"
)

// FullMethod returns the gRPC path of a method, e.g. for interceptors.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// MintflowServer is the server API of the Mintflow service.
type MintflowServer interface {
	Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	StartTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetInjection(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetLock(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetCertificate(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetBackingProof(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	VerifyBackedSignature(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetBalance(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	GetPrices(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetStatistics(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// UnimplementedMintflowServer can be embedded to have forward compatible
// implementations.
type UnimplementedMintflowServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedMintflowServer) Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return nil, unimplemented(MethodPing)
}
func (UnimplementedMintflowServer) StartTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodStartTransfer)
}
func (UnimplementedMintflowServer) StartBatch(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodStartBatch)
}
func (UnimplementedMintflowServer) GetInjection(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetInjection)
}
func (UnimplementedMintflowServer) GetLock(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetLock)
}
func (UnimplementedMintflowServer) GetCertificate(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetCertificate)
}
func (UnimplementedMintflowServer) GetBackingProof(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetBackingProof)
}
func (UnimplementedMintflowServer) VerifyBackedSignature(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, unimplemented(MethodVerifyBackedSignature)
}
func (UnimplementedMintflowServer) GetBalance(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, unimplemented(MethodGetBalance)
}
func (UnimplementedMintflowServer) GetPrices(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetPrices)
}
func (UnimplementedMintflowServer) GetStatistics(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetStatistics)
}

func RegisterMintflowServer(s grpc.ServiceRegistrar, srv MintflowServer) {
	s.RegisterService(&Mintflow_ServiceDesc, srv)
}

// unary builds the method descriptor for one RPC.
func unary[Req proto.Message, Resp proto.Message](method string, newReq func() Req,
	call func(MintflowServer, context.Context, Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MintflowServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MintflowServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func newEmpty() *emptypb.Empty           { return new(emptypb.Empty) }
func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newStruct() *structpb.Struct        { return new(structpb.Struct) }

// Mintflow_ServiceDesc is the grpc.ServiceDesc for the Mintflow service.
var Mintflow_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MintflowServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, newEmpty, MintflowServer.Ping),
		unary(MethodStartTransfer, newStruct, MintflowServer.StartTransfer),
		unary(MethodStartBatch, newStruct, MintflowServer.StartBatch),
		unary(MethodGetInjection, newString, MintflowServer.GetInjection),
		unary(MethodGetLock, newString, MintflowServer.GetLock),
		unary(MethodGetCertificate, newString, MintflowServer.GetCertificate),
		unary(MethodGetBackingProof, newString, MintflowServer.GetBackingProof),
		unary(MethodVerifyBackedSignature, newString, MintflowServer.VerifyBackedSignature),
		unary(MethodGetBalance, newString, MintflowServer.GetBalance),
		unary(MethodGetPrices, newEmpty, MintflowServer.GetPrices),
		unary(MethodGetStatistics, newEmpty, MintflowServer.GetStatistics),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mintflow.proto",
}

// MintflowClient is the client API of the Mintflow service.
type MintflowClient interface {
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	StartTransfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	StartBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetInjection(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetLock(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetCertificate(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetBackingProof(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	VerifyBackedSignature(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetBalance(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	GetPrices(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetStatistics(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type mintflowClient struct{ cc grpc.ClientConnInterface }

func NewMintflowClient(cc grpc.ClientConnInterface) MintflowClient { return &mintflowClient{cc: cc} }

func invoke[Resp proto.Message](ctx context.Context, cc grpc.ClientConnInterface, method string, in proto.Message, out Resp, opts []grpc.CallOption) (Resp, error) {
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		var zero Resp
		return zero, err
	}
	return out, nil
}

func (c *mintflowClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke(ctx, c.cc, MethodPing, in, newString(), opts)
}
func (c *mintflowClient) StartTransfer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodStartTransfer, in, newStruct(), opts)
}
func (c *mintflowClient) StartBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodStartBatch, in, newStruct(), opts)
}
func (c *mintflowClient) GetInjection(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodGetInjection, in, newStruct(), opts)
}
func (c *mintflowClient) GetLock(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodGetLock, in, newStruct(), opts)
}
func (c *mintflowClient) GetCertificate(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodGetCertificate, in, newStruct(), opts)
}
func (c *mintflowClient) GetBackingProof(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodGetBackingProof, in, newStruct(), opts)
}
func (c *mintflowClient) VerifyBackedSignature(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodVerifyBackedSignature, in, newStruct(), opts)
}
func (c *mintflowClient) GetBalance(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke(ctx, c.cc, MethodGetBalance, in, newString(), opts)
}
func (c *mintflowClient) GetPrices(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodGetPrices, in, newStruct(), opts)
}
func (c *mintflowClient) GetStatistics(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, MethodGetStatistics, in, newStruct(), opts)
}
