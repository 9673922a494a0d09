// Package grpcchannel provides a resilient client-side gRPC transport layer.
//
// # Overview
//
// A [ChannelPool] holds at most one live [*grpc.ClientConn] to a named
// remote service, hides connection establishment, failure, and recovery from
// callers, and hands out short-lived [Channel] handles that carry a request
// timeout and a [TelemetryContext]; the retry count is set per request with
// WithRetries on a request builder. A background ping loop
// drives a trivial health-check RPC against the held connection and drops it
// on failure, so the next request transparently reconnects.
//
// # Usage
//
//	pool := grpcchannel.New(ctx, settings, factory, grpcchannel.Config{
//	    RequestTimeout: 5 * time.Second,
//	    PingTimeout:    2 * time.Second,
//	    PingInterval:   15 * time.Second,
//	})
//	ch := pool.GetChannel(grpcchannel.Single(42))
//	resp, err := grpcchannel.NewUnaryRequest[MyStub, *Req, *Resp](ch, req).
//	    GetResponse(ctx, func(ctx context.Context, svc MyStub, in *Req) (*Resp, error) {
//	        return svc.DoThing(ctx, in)
//	    })
//
// # Reconnection
//
// Connection establishment (dial, optional SSH port-forward, optional TLS
// handshake) is handled by [Connect] and retried internally with a bounded
// attempt counter. Liveness is monitored by a background ping loop; a failed
// ping or a request that returns an Unknown gRPC status drops the held
// connection so the next caller transparently reconnects.
package grpcchannel
