package main

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tripwire/grpcchannel"
	"github.com/tripwire/grpcchannel/internal/echopb"
)

// echoHandle bundles the typed echo stub with a health-check client built
// from the same connection, so ServiceFactory.Ping has something to call
// without needing access to the raw *grpc.ClientConn itself.
type echoHandle struct {
	Client echopb.EchoServiceClient
	Health grpc_health_v1.HealthClient
}

// echoServiceFactory implements grpcchannel.ServiceFactory[echoHandle] for
// the demo's echo service.
type echoServiceFactory struct {
	name string
}

func (f echoServiceFactory) ServiceName() string { return f.name }

func (f echoServiceFactory) CreateService(conn *grpc.ClientConn, _ grpcchannel.TelemetryContext) echoHandle {
	return echoHandle{
		Client: echopb.NewEchoServiceClient(conn),
		Health: grpc_health_v1.NewHealthClient(conn),
	}
}

func (f echoServiceFactory) Ping(ctx context.Context, svc echoHandle) error {
	resp, err := svc.Health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: f.name})
	if err != nil {
		return err
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("service %q reported status %s", f.name, resp.Status)
	}
	return nil
}

// echoUnary calls the Unary RPC, the executor passed to a UnaryRequestBuilder.
func echoUnary(ctx context.Context, svc echoHandle, in []byte) ([]byte, error) {
	out, err := svc.Client.Unary(ctx, wrapperspb.Bytes(in))
	if err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

// echoStreamOut calls the StreamOut RPC, the executor passed to a
// UnaryStreamRequestBuilder.
func echoStreamOut(ctx context.Context, svc echoHandle, in []byte) (grpcchannel.Receiver[[]byte], error) {
	stream, err := svc.Client.StreamOut(ctx, wrapperspb.Bytes(in))
	if err != nil {
		return nil, err
	}
	return bytesReceiver{stream}, nil
}

// echoStreamIn calls the StreamIn RPC, the executor passed to a
// StreamRequestBuilder.
func echoStreamIn(ctx context.Context, svc echoHandle, in <-chan []byte) ([]byte, error) {
	stream, err := svc.Client.StreamIn(ctx)
	if err != nil {
		return nil, err
	}
	for item := range in {
		if err := stream.Send(wrapperspb.Bytes(item)); err != nil {
			return nil, err
		}
	}
	out, err := stream.CloseAndRecv()
	if err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

// echoBidi calls the Bidi RPC, the executor passed to a
// StreamStreamRequestBuilder.
func echoBidi(ctx context.Context, svc echoHandle, in <-chan []byte) (grpcchannel.Receiver[[]byte], error) {
	stream, err := svc.Client.Bidi(ctx)
	if err != nil {
		return nil, err
	}
	go func() {
		for item := range in {
			if err := stream.Send(wrapperspb.Bytes(item)); err != nil {
				return
			}
		}
		_ = stream.CloseSend()
	}()
	return bytesReceiver{stream}, nil
}

// bytesReceiver adapts an echopb receiver of *wrapperspb.BytesValue to
// grpcchannel.Receiver[[]byte].
type bytesReceiver struct {
	recv interface{ Recv() (*wrapperspb.BytesValue, error) }
}

func (r bytesReceiver) Recv() ([]byte, error) {
	msg, err := r.recv.Recv()
	if err != nil {
		return nil, err
	}
	return msg.GetValue(), nil
}
