package grpcchannel

import (
	"context"
	"time"
)

// UnaryExecutor invokes a unary-in/unary-out RPC on svc.
type UnaryExecutor[S, In, Out any] func(ctx context.Context, svc S, in In) (Out, error)

// UnaryStreamExecutor invokes a unary-in/stream-out RPC on svc.
type UnaryStreamExecutor[S, In, Out any] func(ctx context.Context, svc S, in In) (Receiver[Out], error)

// StreamUnaryExecutor invokes a stream-in/unary-out RPC on svc, sending each
// item read from in before reading the single response.
type StreamUnaryExecutor[S, In, Out any] func(ctx context.Context, svc S, in <-chan In) (Out, error)

// StreamStreamExecutor invokes a bidirectional RPC on svc.
type StreamStreamExecutor[S, In, Out any] func(ctx context.Context, svc S, in <-chan In) (Receiver[Out], error)

// acquireAndRun is the shared pipeline behind every RequestBuilder variant:
// acquire the pool's live connection (connecting if necessary), build the
// typed service stub stamped with the Channel's telemetry, run fn under the
// Channel's request timeout, and classify any resulting error so a dead
// connection is dropped before the caller sees the error.
func acquireAndRun[S, T any](ch *Channel[S], ctx context.Context, fn func(context.Context, S) (T, error)) (T, error) {
	var zero T

	conn, err := ch.acquire(ctx)
	if err != nil {
		return zero, err
	}
	svc := ch.service(conn)

	callCtx, cancel := context.WithTimeout(ch.telemetry.NewOutgoingContext(ctx), ch.requestTimeout)
	defer cancel()

	result, err := fn(callCtx, svc)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			err = timeoutError("rpc deadline exceeded", err)
		}
		return zero, ch.classifyAndMaybeDrop(wrapCallError(err))
	}
	return result, nil
}

func wrapCallError(err error) error {
	if _, ok := err.(*ChannelError); ok {
		return err
	}
	if err == context.DeadlineExceeded {
		return timeoutError("rpc deadline exceeded", err)
	}
	return statusError(statusCodeOf(err), "rpc failed", err)
}

// UnaryRequestBuilder issues a single request and awaits a single response.
type UnaryRequestBuilder[S, In, Out any] struct {
	ch      *Channel[S]
	in      In
	retries int
}

// NewUnaryRequest starts a unary-in/unary-out request over ch.
func NewUnaryRequest[S, In, Out any](ch *Channel[S], in In) *UnaryRequestBuilder[S, In, Out] {
	return &UnaryRequestBuilder[S, In, Out]{ch: ch, in: in}
}

// WithRetries sets the total number of attempts, the first one included; a
// value below 1 means a single attempt. Each attempt after a failure
// reacquires the connection (and thus automatically reconnects if the
// previous attempt dropped it) and re-runs the whole request from scratch.
func (b *UnaryRequestBuilder[S, In, Out]) WithRetries(n int) *UnaryRequestBuilder[S, In, Out] {
	b.retries = n
	return b
}

// GetResponse runs the request, retrying up to the configured count.
func (b *UnaryRequestBuilder[S, In, Out]) GetResponse(ctx context.Context, exec UnaryExecutor[S, In, Out]) (Out, error) {
	return withRetries(b.retries, func() (Out, error) {
		return acquireAndRun(b.ch, ctx, func(callCtx context.Context, svc S) (Out, error) {
			return exec(callCtx, svc, b.in)
		})
	})
}

// UnaryStreamRequestBuilder issues a single request and reads a stream of
// responses.
type UnaryStreamRequestBuilder[S, In, Out any] struct {
	ch      *Channel[S]
	in      In
	retries int
}

// NewUnaryStreamRequest starts a unary-in/stream-out request over ch.
func NewUnaryStreamRequest[S, In, Out any](ch *Channel[S], in In) *UnaryStreamRequestBuilder[S, In, Out] {
	return &UnaryStreamRequestBuilder[S, In, Out]{ch: ch, in: in}
}

func (b *UnaryStreamRequestBuilder[S, In, Out]) WithRetries(n int) *UnaryStreamRequestBuilder[S, In, Out] {
	b.retries = n
	return b
}

// GetStreamedResponse runs the request and wraps the resulting stream with
// the given per-item read timeout.
func (b *UnaryStreamRequestBuilder[S, In, Out]) GetStreamedResponse(ctx context.Context, responseTimeout time.Duration, exec UnaryStreamExecutor[S, In, Out]) (*StreamedResponse[Out], error) {
	recv, err := withRetries(b.retries, func() (Receiver[Out], error) {
		return acquireAndRun(b.ch, ctx, func(callCtx context.Context, svc S) (Receiver[Out], error) {
			return exec(callCtx, svc, b.in)
		})
	})
	if err != nil {
		return nil, err
	}
	return NewStreamedResponse(recv, orDefaultTimeout(responseTimeout, b.ch.requestTimeout)), nil
}

// StreamRequestBuilder sends a stream of requests and awaits a single
// response.
type StreamRequestBuilder[S, In, Out any] struct {
	ch      *Channel[S]
	req     *StreamedRequest[In]
	retries int
}

// NewStreamRequest starts a stream-in/unary-out request over ch.
func NewStreamRequest[S, In, Out any](ch *Channel[S], req *StreamedRequest[In]) *StreamRequestBuilder[S, In, Out] {
	return &StreamRequestBuilder[S, In, Out]{ch: ch, req: req}
}

func (b *StreamRequestBuilder[S, In, Out]) WithRetries(n int) *StreamRequestBuilder[S, In, Out] {
	b.retries = n
	return b
}

// GetResponse runs the request. Retrying a stream-in request re-consumes
// req, which only works if req is materialized (built with
// NewStreamedRequestFromSlice); a live StreamedRequest can be consumed once,
// so WithRetries on a live stream is only meaningful for the first attempt
// and subsequent retries will see an already-closed consumer channel.
func (b *StreamRequestBuilder[S, In, Out]) GetResponse(ctx context.Context, exec StreamUnaryExecutor[S, In, Out]) (Out, error) {
	return withRetries(b.retries, func() (Out, error) {
		return acquireAndRun(b.ch, ctx, func(callCtx context.Context, svc S) (Out, error) {
			return exec(callCtx, svc, b.req.Consume())
		})
	})
}

// StreamStreamRequestBuilder sends a stream of requests and reads a stream
// of responses concurrently (a bidirectional call).
type StreamStreamRequestBuilder[S, In, Out any] struct {
	ch      *Channel[S]
	req     *StreamedRequest[In]
	retries int
}

// NewStreamStreamRequest starts a bidirectional request over ch.
func NewStreamStreamRequest[S, In, Out any](ch *Channel[S], req *StreamedRequest[In]) *StreamStreamRequestBuilder[S, In, Out] {
	return &StreamStreamRequestBuilder[S, In, Out]{ch: ch, req: req}
}

func (b *StreamStreamRequestBuilder[S, In, Out]) WithRetries(n int) *StreamStreamRequestBuilder[S, In, Out] {
	b.retries = n
	return b
}

// GetStreamedResponse runs the request and wraps the resulting stream with
// the given per-item read timeout. See StreamRequestBuilder.GetResponse for
// the retry caveat on a live (non-materialized) req.
func (b *StreamStreamRequestBuilder[S, In, Out]) GetStreamedResponse(ctx context.Context, responseTimeout time.Duration, exec StreamStreamExecutor[S, In, Out]) (*StreamedResponse[Out], error) {
	recv, err := withRetries(b.retries, func() (Receiver[Out], error) {
		return acquireAndRun(b.ch, ctx, func(callCtx context.Context, svc S) (Receiver[Out], error) {
			return exec(callCtx, svc, b.req.Consume())
		})
	})
	if err != nil {
		return nil, err
	}
	return NewStreamedResponse(recv, orDefaultTimeout(responseTimeout, b.ch.requestTimeout)), nil
}

// orDefaultTimeout returns d if it is positive, otherwise fallback.
func orDefaultTimeout(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// withRetries runs fn up to n times in total (at least once), returning the
// first success or the last error.
func withRetries[T any](n int, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	if n < 1 {
		n = 1
	}
	for attempt := 0; attempt < n; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}
	}
	return result, err
}
