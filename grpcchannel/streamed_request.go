package grpcchannel

import "sync/atomic"

// defaultStreamedRequestBuffer is the channel capacity used by
// NewStreamedRequest when channelSize is not positive.
const defaultStreamedRequestBuffer = 1024

// StreamedRequest is the input side of a client-streaming or bidirectional
// RequestBuilder call. It has two flavours:
//
//   - materialized, built with NewStreamedRequestFromSlice from a slice the
//     caller already has in memory, consumed by ranging over it;
//   - live, built with NewStreamedRequest, whose items are produced
//     incrementally with Send and terminated with SendEOF, for a caller
//     that does not have the whole sequence up front (e.g. streaming rows
//     off a cursor).
//
// Consume may be called at most once; calling it a second time is a
// programming error and panics, the same as sending after SendEOF.
type StreamedRequest[T any] struct {
	materialized   []T
	isMaterialized bool

	ch chan T

	consumed atomic.Bool
	closed   atomic.Bool
}

// NewStreamedRequestFromSlice returns a materialized StreamedRequest that
// replays items, in order, to its single consumer.
func NewStreamedRequestFromSlice[T any](items []T) *StreamedRequest[T] {
	cp := make([]T, len(items))
	copy(cp, items)
	return &StreamedRequest[T]{materialized: cp, isMaterialized: true}
}

// NewStreamedRequest returns a live StreamedRequest fed by Send and
// terminated by SendEOF. channelSize bounds how many produced items may be
// buffered before Send blocks; a value ≤ 0 uses a default of 1024.
func NewStreamedRequest[T any](channelSize int) *StreamedRequest[T] {
	if channelSize <= 0 {
		channelSize = defaultStreamedRequestBuffer
	}
	return &StreamedRequest[T]{ch: make(chan T, channelSize)}
}

// Send appends item to the stream. It blocks if the internal buffer is
// full. Send panics if called on a materialized StreamedRequest, or after
// SendEOF has been called — both are programming errors, not conditions a
// caller should need to handle at runtime.
func (s *StreamedRequest[T]) Send(item T) {
	if s.isMaterialized {
		panic("grpcchannel: StreamedRequest.Send called on a materialized stream")
	}
	if s.closed.Load() {
		panic("grpcchannel: StreamedRequest.Send called after SendEOF")
	}
	s.ch <- item
}

// SendEOF signals that no further items will be produced. It is idempotent:
// calling it more than once has no additional effect. It is a no-op on a
// materialized StreamedRequest, which is already logically complete.
func (s *StreamedRequest[T]) SendEOF() {
	if s.isMaterialized {
		return
	}
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// Consume returns a channel that yields every item sent (or, for a
// materialized stream, every item in the original slice) in order, closed
// once the stream has ended. It may be called at most once; a second call
// panics, since a stream can have only one consumer.
func (s *StreamedRequest[T]) Consume() <-chan T {
	if !s.consumed.CompareAndSwap(false, true) {
		panic("grpcchannel: StreamedRequest.Consume called more than once")
	}
	if !s.isMaterialized {
		return s.ch
	}

	out := make(chan T)
	go func() {
		defer close(out)
		for _, item := range s.materialized {
			out <- item
		}
	}()
	return out
}
