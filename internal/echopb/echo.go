// Package echopb is a small hand-written gRPC service used by this module's
// own tests and its demo command to exercise all four RequestBuilder shapes
// (unary/unary, unary/stream, stream/unary, stream/stream) plus the health
// check used by PingLoop, without depending on a protoc toolchain. Message
// bodies are the well-known wrapperspb types, so no schema or generated
// marshal code is needed; this package supplies only the service
// registration and stub boilerplate protoc-gen-go-grpc would otherwise
// generate for it.
package echopb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "grpcchannel.echo.EchoService"

// EchoServiceClient is the client API for EchoService.
type EchoServiceClient interface {
	Unary(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	StreamIn(ctx context.Context, opts ...grpc.CallOption) (EchoService_StreamInClient, error)
	StreamOut(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (EchoService_StreamOutClient, error)
	Bidi(ctx context.Context, opts ...grpc.CallOption) (EchoService_BidiClient, error)
}

type echoServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEchoServiceClient returns a client stub bound to cc.
func NewEchoServiceClient(cc grpc.ClientConnInterface) EchoServiceClient {
	return &echoServiceClient{cc: cc}
}

func (c *echoServiceClient) Unary(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Unary", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *echoServiceClient) StreamIn(ctx context.Context, opts ...grpc.CallOption) (EchoService_StreamInClient, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], "/"+serviceName+"/StreamIn", opts...)
	if err != nil {
		return nil, err
	}
	return &echoServiceStreamInClient{stream}, nil
}

func (c *echoServiceClient) StreamOut(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (EchoService_StreamOutClient, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[1], "/"+serviceName+"/StreamOut", opts...)
	if err != nil {
		return nil, err
	}
	x := &echoServiceStreamOutClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *echoServiceClient) Bidi(ctx context.Context, opts ...grpc.CallOption) (EchoService_BidiClient, error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[2], "/"+serviceName+"/Bidi", opts...)
	if err != nil {
		return nil, err
	}
	return &echoServiceBidiClient{stream}, nil
}

// EchoService_StreamInClient is the client-side handle for StreamIn.
type EchoService_StreamInClient interface {
	Send(*wrapperspb.BytesValue) error
	CloseAndRecv() (*wrapperspb.BytesValue, error)
	grpc.ClientStream
}

type echoServiceStreamInClient struct{ grpc.ClientStream }

func (x *echoServiceStreamInClient) Send(m *wrapperspb.BytesValue) error {
	return x.ClientStream.SendMsg(m)
}

func (x *echoServiceStreamInClient) CloseAndRecv() (*wrapperspb.BytesValue, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	out := new(wrapperspb.BytesValue)
	if err := x.ClientStream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

// EchoService_StreamOutClient is the client-side handle for StreamOut.
type EchoService_StreamOutClient interface {
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ClientStream
}

type echoServiceStreamOutClient struct{ grpc.ClientStream }

func (x *echoServiceStreamOutClient) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// EchoService_BidiClient is the client-side handle for Bidi.
type EchoService_BidiClient interface {
	Send(*wrapperspb.BytesValue) error
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ClientStream
}

type echoServiceBidiClient struct{ grpc.ClientStream }

func (x *echoServiceBidiClient) Send(m *wrapperspb.BytesValue) error {
	return x.ClientStream.SendMsg(m)
}

func (x *echoServiceBidiClient) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// EchoServiceServer is the server API for EchoService.
type EchoServiceServer interface {
	Unary(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	StreamIn(EchoService_StreamInServer) error
	StreamOut(*wrapperspb.BytesValue, EchoService_StreamOutServer) error
	Bidi(EchoService_BidiServer) error
}

// UnimplementedEchoServiceServer can be embedded in a server implementation
// to satisfy EchoServiceServer for methods it does not override.
type UnimplementedEchoServiceServer struct{}

func (UnimplementedEchoServiceServer) Unary(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, errUnimplemented("Unary")
}
func (UnimplementedEchoServiceServer) StreamIn(EchoService_StreamInServer) error {
	return errUnimplemented("StreamIn")
}
func (UnimplementedEchoServiceServer) StreamOut(*wrapperspb.BytesValue, EchoService_StreamOutServer) error {
	return errUnimplemented("StreamOut")
}
func (UnimplementedEchoServiceServer) Bidi(EchoService_BidiServer) error {
	return errUnimplemented("Bidi")
}

func errUnimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

// RegisterEchoServiceServer registers srv with s.
func RegisterEchoServiceServer(s grpc.ServiceRegistrar, srv EchoServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

type EchoService_StreamInServer interface {
	SendAndClose(*wrapperspb.BytesValue) error
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ServerStream
}

type echoServiceStreamInServer struct{ grpc.ServerStream }

func (x *echoServiceStreamInServer) SendAndClose(m *wrapperspb.BytesValue) error {
	return x.ServerStream.SendMsg(m)
}
func (x *echoServiceStreamInServer) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type EchoService_StreamOutServer interface {
	Send(*wrapperspb.BytesValue) error
	grpc.ServerStream
}

type echoServiceStreamOutServer struct{ grpc.ServerStream }

func (x *echoServiceStreamOutServer) Send(m *wrapperspb.BytesValue) error {
	return x.ServerStream.SendMsg(m)
}

type EchoService_BidiServer interface {
	Send(*wrapperspb.BytesValue) error
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ServerStream
}

type echoServiceBidiServer struct{ grpc.ServerStream }

func (x *echoServiceBidiServer) Send(m *wrapperspb.BytesValue) error {
	return x.ServerStream.SendMsg(m)
}
func (x *echoServiceBidiServer) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _EchoService_Unary_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EchoServiceServer).Unary(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Unary"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EchoServiceServer).Unary(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _EchoService_StreamIn_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(EchoServiceServer).StreamIn(&echoServiceStreamInServer{stream})
}

func _EchoService_StreamOut_Handler(srv any, stream grpc.ServerStream) error {
	in := new(wrapperspb.BytesValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(EchoServiceServer).StreamOut(in, &echoServiceStreamOutServer{stream})
}

func _EchoService_Bidi_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(EchoServiceServer).Bidi(&echoServiceBidiServer{stream})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EchoServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Unary", Handler: _EchoService_Unary_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamIn", Handler: _EchoService_StreamIn_Handler, ClientStreams: true},
		{StreamName: "StreamOut", Handler: _EchoService_StreamOut_Handler, ServerStreams: true},
		{StreamName: "Bidi", Handler: _EchoService_Bidi_Handler, ClientStreams: true, ServerStreams: true},
	},
	Metadata: "echo.proto",
}
