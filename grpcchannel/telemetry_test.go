package grpcchannel_test

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"

	"github.com/tripwire/grpcchannel"
)

func TestTelemetryContext_Header(t *testing.T) {
	cases := []struct {
		tc   grpcchannel.TelemetryContext
		want string
	}{
		{grpcchannel.EmptyTelemetry, ""},
		{grpcchannel.Single(42), "42"},
		{grpcchannel.Multiple([]int64{1, 2, 3}), "1,2,3"},
	}
	for _, c := range cases {
		if got := c.tc.Header(); got != c.want {
			t.Errorf("Header() = %q, want %q", got, c.want)
		}
	}
}

func TestParseTelemetryContext_RoundTrip(t *testing.T) {
	tc := grpcchannel.Multiple([]int64{7, 8, 9})
	parsed := grpcchannel.ParseTelemetryContext(tc.Header())
	if parsed.Header() != tc.Header() {
		t.Errorf("round trip: got %q, want %q", parsed.Header(), tc.Header())
	}
}

func TestParseTelemetryContext_Malformed(t *testing.T) {
	parsed := grpcchannel.ParseTelemetryContext("1,garbage,3")
	if parsed.Header() != "1,3" {
		t.Errorf("malformed entries should be skipped, got %q", parsed.Header())
	}
}

func TestNewOutgoingContext_EmptyIsNoop(t *testing.T) {
	ctx := grpcchannel.EmptyTelemetry.NewOutgoingContext(context.Background())
	if _, ok := metadata.FromOutgoingContext(ctx); ok {
		t.Errorf("empty telemetry should not attach outgoing metadata")
	}
}

func TestFromIncomingContext(t *testing.T) {
	tc := grpcchannel.Single(99)
	md := metadata.Pairs("process-id", tc.Header())
	ctx := metadata.NewIncomingContext(context.Background(), md)

	got := grpcchannel.FromIncomingContext(ctx)
	if got.Header() != tc.Header() {
		t.Errorf("FromIncomingContext = %q, want %q", got.Header(), tc.Header())
	}
}
