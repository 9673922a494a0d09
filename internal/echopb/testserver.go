package echopb

import (
	"context"
	"io"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server is a minimal EchoServiceServer that writes back exactly what it
// receives. It exists to give this module's tests and demo command a real
// peer to dial; it is not a general-purpose RPC handler and implements no
// application logic beyond echoing.
type Server struct {
	UnimplementedEchoServiceServer
}

func (Server) Unary(_ context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return wrapperspb.Bytes(in.GetValue()), nil
}

func (Server) StreamIn(stream EchoService_StreamInServer) error {
	var last []byte
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			return stream.SendAndClose(wrapperspb.Bytes(last))
		}
		if err != nil {
			return err
		}
		last = msg.GetValue()
	}
}

func (Server) StreamOut(in *wrapperspb.BytesValue, stream EchoService_StreamOutServer) error {
	// Echo the single input item back three times, so a test can observe a
	// genuine multi-item stream rather than a single reply dressed up as one.
	for i := 0; i < 3; i++ {
		if err := stream.Send(wrapperspb.Bytes(in.GetValue())); err != nil {
			return err
		}
	}
	return nil
}

func (Server) Bidi(stream EchoService_BidiServer) error {
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := stream.Send(wrapperspb.Bytes(msg.GetValue())); err != nil {
			return err
		}
	}
}
