package grpcchannel

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// nopFactory dials real connections but never actually issues an RPC
// through the typed stub; it exists so acquireAndRun has a live connection
// to acquire while the retry/classification tests drive fn's error
// directly, independent of any particular service's wire format.
type nopFactory struct{ name string }

func (f nopFactory) ServiceName() string { return f.name }
func (f nopFactory) CreateService(*grpc.ClientConn, TelemetryContext) struct{} {
	return struct{}{}
}
func (f nopFactory) Ping(context.Context, struct{}) error { return nil }

func startBareServer(t *testing.T) (addr string, stop func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer()
	go func() { _ = srv.Serve(lis) }()
	return lis.Addr().String(), srv.Stop
}

func newTestPool(t *testing.T) (*ChannelPool[struct{}], func()) {
	t.Helper()
	addr, stop := startBareServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	settings := StaticServiceSettings{URL: addr}
	pool := New(ctx, settings, nopFactory{name: "bare"}, Config{
		RequestTimeout: time.Second,
		PingTimeout:    time.Second,
		PingInterval:   time.Hour, // disabled for these tests
	})
	return pool, func() {
		pool.Stop()
		cancel()
		stop()
	}
}

// TestWithRetries_ExhaustsConfiguredAttempts exercises spec scenario 4: a
// request that always fails issues exactly as many executor invocations as
// WithRetries was given (the first attempt included), and returns the last
// error.
func TestWithRetries_ExhaustsConfiguredAttempts(t *testing.T) {
	pool, stop := newTestPool(t)
	defer stop()

	ch := pool.GetChannel(EmptyTelemetry)

	var invocations int
	wantErr := status.Error(codes.Internal, "always fails")

	_, err := NewUnaryRequest[struct{}, int, int](ch, 0).
		WithRetries(3).
		GetResponse(context.Background(), func(ctx context.Context, svc struct{}, in int) (int, error) {
			invocations++
			return 0, wantErr
		})

	if invocations != 3 {
		t.Errorf("invocations = %d, want 3 (3 attempts in total)", invocations)
	}
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
}

// TestWithRetries_SucceedsBeforeExhausting confirms the invariant's lower
// bound: a request that succeeds on its second attempt stops retrying
// immediately and returns the successful result.
func TestWithRetries_SucceedsBeforeExhausting(t *testing.T) {
	pool, stop := newTestPool(t)
	defer stop()

	ch := pool.GetChannel(EmptyTelemetry)

	var invocations int
	out, err := NewUnaryRequest[struct{}, int, int](ch, 0).
		WithRetries(5).
		GetResponse(context.Background(), func(ctx context.Context, svc struct{}, in int) (int, error) {
			invocations++
			if invocations < 2 {
				return 0, status.Error(codes.Internal, "not yet")
			}
			return 42, nil
		})

	if err != nil {
		t.Fatalf("GetResponse: %v", err)
	}
	if out != 42 {
		t.Errorf("out = %d, want 42", out)
	}
	if invocations != 2 {
		t.Errorf("invocations = %d, want 2 (first failure, second success)", invocations)
	}
}

// TestWithRetries_NoRetriesInvokesOnce confirms the invariant's floor: with
// no retries configured, exactly one invocation happens regardless of
// outcome.
func TestWithRetries_NoRetriesInvokesOnce(t *testing.T) {
	pool, stop := newTestPool(t)
	defer stop()

	ch := pool.GetChannel(EmptyTelemetry)

	var invocations int
	_, _ = NewUnaryRequest[struct{}, int, int](ch, 0).
		GetResponse(context.Background(), func(ctx context.Context, svc struct{}, in int) (int, error) {
			invocations++
			return 0, status.Error(codes.Internal, "fails")
		})

	if invocations != 1 {
		t.Errorf("invocations = %d, want 1", invocations)
	}
}

// TestChannelDeathClassification_UnknownDropsHeldConnection covers spec
// property 3: a Status{Unknown} error classifies as fatal and drops the
// held connection, while any other status code leaves it live.
func TestChannelDeathClassification_UnknownDropsHeldConnection(t *testing.T) {
	pool, stop := newTestPool(t)
	defer stop()

	ch := pool.GetChannel(EmptyTelemetry)

	// Warm up: establish and publish a connection.
	_, err := NewUnaryRequest[struct{}, int, int](ch, 0).
		GetResponse(context.Background(), func(ctx context.Context, svc struct{}, in int) (int, error) {
			return 1, nil
		})
	if err != nil {
		t.Fatalf("warm-up: %v", err)
	}
	if pool.holder.Reuse() == nil {
		t.Fatal("expected a held connection after a successful request")
	}

	_, err = NewUnaryRequest[struct{}, int, int](ch, 0).
		GetResponse(context.Background(), func(ctx context.Context, svc struct{}, in int) (int, error) {
			return 0, status.Error(codes.Unknown, "opaque failure")
		})
	if err == nil {
		t.Fatal("expected an error")
	}
	if pool.holder.Reuse() != nil {
		t.Error("a Status{Unknown} error should have dropped the held connection")
	}
}

func TestChannelDeathClassification_OtherStatusKeepsHeldConnection(t *testing.T) {
	pool, stop := newTestPool(t)
	defer stop()

	ch := pool.GetChannel(EmptyTelemetry)

	_, err := NewUnaryRequest[struct{}, int, int](ch, 0).
		GetResponse(context.Background(), func(ctx context.Context, svc struct{}, in int) (int, error) {
			return 1, nil
		})
	if err != nil {
		t.Fatalf("warm-up: %v", err)
	}
	held := pool.holder.Reuse()
	if held == nil {
		t.Fatal("expected a held connection after a successful request")
	}

	_, err = NewUnaryRequest[struct{}, int, int](ch, 0).
		GetResponse(context.Background(), func(ctx context.Context, svc struct{}, in int) (int, error) {
			return 0, status.Error(codes.InvalidArgument, "bad request")
		})
	if err == nil {
		t.Fatal("expected an error")
	}
	if pool.holder.Reuse() != held {
		t.Error("a non-Unknown status error should not have dropped the held connection")
	}
}

// TestDefaultChannelDeathClassifier covers the classifier directly for
// every ErrorKind, independent of any network activity.
func TestDefaultChannelDeathClassifier(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", timeoutError("x", nil), true},
		{"transport", transportError("x", nil), true},
		{"status unknown", statusError(codes.Unknown, "x", nil), true},
		{"status internal", statusError(codes.Internal, "x", nil), false},
		{"status invalid argument", statusError(codes.InvalidArgument, "x", nil), false},
		{"config", configError("x"), false},
		{"non-ChannelError", errors.New("plain"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DefaultChannelDeathClassifier(tc.err); got != tc.want {
				t.Errorf("DefaultChannelDeathClassifier(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
