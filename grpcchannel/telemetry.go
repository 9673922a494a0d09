package grpcchannel

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// telemetryHeader is the outgoing metadata key the interceptor writes and
// the incoming key a server-side handler reads to recover the caller's
// TelemetryContext.
const telemetryHeader = "process-id"

// TelemetryContext identifies the chain of originating process IDs for a
// request, so a server handling several hops deep can attribute an RPC back
// to the process that started it. It is immutable; Single and Multiple both
// return independent values safe to share across goroutines.
type TelemetryContext struct {
	ids []int64
}

// EmptyTelemetry is a TelemetryContext carrying no process IDs. It is the
// zero value of TelemetryContext and serialises to an absent header.
var EmptyTelemetry = TelemetryContext{}

// Single returns a TelemetryContext carrying exactly one process ID.
func Single(id int64) TelemetryContext {
	return TelemetryContext{ids: []int64{id}}
}

// Multiple returns a TelemetryContext carrying a chain of process IDs, in
// the order a request passed through them. ids is copied.
func Multiple(ids []int64) TelemetryContext {
	cp := make([]int64, len(ids))
	copy(cp, ids)
	return TelemetryContext{ids: cp}
}

// IDs returns the process ID chain carried by t. The returned slice must not
// be mutated by the caller.
func (t TelemetryContext) IDs() []int64 { return t.ids }

// IsEmpty reports whether t carries no process IDs.
func (t TelemetryContext) IsEmpty() bool { return len(t.ids) == 0 }

// Header renders t as the comma-joined value written to the "process-id"
// metadata key. An empty TelemetryContext renders to "".
func (t TelemetryContext) Header() string {
	if len(t.ids) == 0 {
		return ""
	}
	parts := make([]string, len(t.ids))
	for i, id := range t.ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// ParseTelemetryContext parses a "process-id" header value produced by
// Header. A malformed entry is skipped rather than failing the whole parse,
// so a handwritten or truncated header degrades gracefully to whatever IDs
// did parse instead of discarding the rest.
func ParseTelemetryContext(header string) TelemetryContext {
	header = strings.TrimSpace(header)
	if header == "" {
		return EmptyTelemetry
	}
	var ids []int64
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return TelemetryContext{ids: ids}
}

// NewOutgoingContext returns a copy of ctx carrying t's header in outgoing
// gRPC metadata. Callers invoking a stub method directly (rather than
// through a RequestBuilder, which does this automatically) should wrap their
// context with this before issuing the call.
func (t TelemetryContext) NewOutgoingContext(ctx context.Context) context.Context {
	if t.IsEmpty() {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, telemetryHeader, t.Header())
}

// FromIncomingContext recovers the TelemetryContext a client attached via
// NewOutgoingContext (or UnaryClientInterceptor/StreamClientInterceptor)
// from a server handler's incoming context. It returns EmptyTelemetry if no
// header is present or ctx carries no incoming metadata.
func FromIncomingContext(ctx context.Context) TelemetryContext {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return EmptyTelemetry
	}
	values := md.Get(telemetryHeader)
	if len(values) == 0 {
		return EmptyTelemetry
	}
	return ParseTelemetryContext(values[0])
}

// UnaryClientInterceptor returns a grpc.UnaryClientInterceptor that stamps
// every outbound unary call with t's header. It is bound to a single
// TelemetryContext at construction time and does not re-read context between
// calls; callers wishing to propagate a different identifier per call should
// prefer NewOutgoingContext, or construct a fresh interceptor.
func UnaryClientInterceptor(t TelemetryContext) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(t.NewOutgoingContext(ctx), method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns a grpc.StreamClientInterceptor that stamps
// every outbound streaming call with t's header. See UnaryClientInterceptor
// for the binding caveat.
func StreamClientInterceptor(t TelemetryContext) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return streamer(t.NewOutgoingContext(ctx), desc, cc, method, opts...)
	}
}
