package grpcchannel

import (
	"context"
	"io"
	"sync"
	"time"
)

// Receiver is the part of a generated gRPC client streaming-response type
// (e.g. the *_Client returned by a server-streaming or bidi RPC) that
// StreamedResponse needs: Recv returns io.EOF when the stream ends cleanly.
type Receiver[T any] interface {
	Recv() (T, error)
}

// StreamedResponse wraps a Receiver with a per-item read timeout: a peer
// that stops sending without closing the stream would otherwise block a
// caller forever, so every Next call races the underlying Recv against a
// timer.
type StreamedResponse[T any] struct {
	mu      sync.Mutex
	recv    Receiver[T]
	timeout time.Duration
}

// NewStreamedResponse wraps recv with the given per-item timeout.
func NewStreamedResponse[T any](recv Receiver[T], timeout time.Duration) *StreamedResponse[T] {
	return &StreamedResponse[T]{recv: recv, timeout: timeout}
}

// SetTimeout changes the per-item read timeout applied to subsequent Next calls.
func (s *StreamedResponse[T]) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

// Timeout returns the currently configured per-item read timeout.
func (s *StreamedResponse[T]) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

type recvResult[T any] struct {
	item T
	err  error
}

// Next returns the next item from the stream. ok is false with a nil error
// at a clean end of stream; it is false with a non-nil *ChannelError of Kind
// KindTimeout if the timeout elapsed first, or of Kind KindStatus if the
// stream ended with a gRPC error.
//
// Next is not safe to call concurrently with itself; a Receiver has exactly
// one logical reader, the same as the underlying gRPC stream.
func (s *StreamedResponse[T]) Next(ctx context.Context) (item T, ok bool, err error) {
	s.mu.Lock()
	recv := s.recv
	timeout := s.timeout
	s.mu.Unlock()

	resultCh := make(chan recvResult[T], 1)
	go func() {
		it, err := recv.Recv()
		resultCh <- recvResult[T]{item: it, err: err}
	}()

	var timer *time.Timer
	var timerCh <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		timerCh = timer.C
	}

	select {
	case res := <-resultCh:
		if res.err == io.EOF {
			var zero T
			return zero, false, nil
		}
		if res.err != nil {
			var zero T
			return zero, false, statusError(statusCodeOf(res.err), "stream recv", res.err)
		}
		return res.item, true, nil

	case <-timerCh:
		var zero T
		return zero, false, timeoutError("stream recv: timed out waiting for next item", nil)

	case <-ctx.Done():
		var zero T
		return zero, false, timeoutError("stream recv: context done", ctx.Err())
	}
}

// ToSlice drains the stream into a slice, in order, stopping at the first
// error (including a timeout).
func (s *StreamedResponse[T]) ToSlice(ctx context.Context) ([]T, error) {
	var out []T
	for {
		item, ok, err := s.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, item)
	}
}

// Single drains exactly one item from the stream and asserts the stream then
// ends. More than one item is a programming error (the caller asked for a
// single-response shape on a stream that produced more) and panics.
func (s *StreamedResponse[T]) Single(ctx context.Context) (T, error) {
	item, ok, err := s.Next(ctx)
	if err != nil || !ok {
		return item, err
	}
	_, more, err := s.Next(ctx)
	if err != nil {
		return item, err
	}
	if more {
		panic("grpcchannel: StreamedResponse.Single: stream produced more than one item")
	}
	return item, nil
}

// ToMap drains the stream into a map keyed by keyFn(item). Since a
// StreamedResponse method cannot introduce its own type parameter beyond
// T, ToMap is a free function parameterised over the key type K.
func ToMap[T any, K comparable](ctx context.Context, s *StreamedResponse[T], keyFn func(T) K) (map[K]T, error) {
	out := make(map[K]T)
	for {
		item, ok, err := s.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out[keyFn(item)] = item
	}
}

// ToSet drains the stream into a set of keys, discarding the items
// themselves.
func ToSet[T any, K comparable](ctx context.Context, s *StreamedResponse[T], keyFn func(T) K) (map[K]struct{}, error) {
	out := make(map[K]struct{})
	for {
		item, ok, err := s.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out[keyFn(item)] = struct{}{}
	}
}

// OrderedEntry is one key/value pair produced by ToOrderedMap, preserving
// stream arrival order alongside the lookup map.
type OrderedEntry[K comparable, T any] struct {
	Key   K
	Value T
}

// ToOrderedMap drains the stream into both a map keyed by keyFn(item) and a
// slice of entries in arrival order, for callers that need fast lookup and
// a stable iteration order simultaneously.
func ToOrderedMap[T any, K comparable](ctx context.Context, s *StreamedResponse[T], keyFn func(T) K) ([]OrderedEntry[K, T], map[K]T, error) {
	index := make(map[K]T)
	var order []OrderedEntry[K, T]
	for {
		item, ok, err := s.Next(ctx)
		if err != nil {
			return order, index, err
		}
		if !ok {
			return order, index, nil
		}
		key := keyFn(item)
		index[key] = item
		order = append(order, OrderedEntry[K, T]{Key: key, Value: item})
	}
}
