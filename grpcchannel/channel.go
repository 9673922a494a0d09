package grpcchannel

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// Channel is a short-lived handle obtained from ChannelPool.GetChannel. It
// carries the request timeout and TelemetryContext to apply to every RPC
// issued through a RequestBuilder built from it. A Channel does not itself
// hold a connection; every request re-acquires the pool's currently live
// connection (or establishes a new one) through acquire.
type Channel[S any] struct {
	pool           *ChannelPool[S]
	requestTimeout time.Duration
	telemetry      TelemetryContext
}

// RequestTimeout returns the timeout applied to requests issued through ch.
func (ch *Channel[S]) RequestTimeout() time.Duration { return ch.requestTimeout }

// Telemetry returns the TelemetryContext stamped on requests issued through ch.
func (ch *Channel[S]) Telemetry() TelemetryContext { return ch.telemetry }

// acquire returns the pool's currently held connection, connecting if none
// is held.
func (ch *Channel[S]) acquire(ctx context.Context) (*grpc.ClientConn, error) {
	if conn := ch.pool.holder.Reuse(); conn != nil {
		return conn, nil
	}
	return ch.pool.connect(ctx, ch.requestTimeout)
}

// service builds the typed client stub for the currently live connection,
// stamped with ch's telemetry.
func (ch *Channel[S]) service(conn *grpc.ClientConn) S {
	return ch.pool.factory.CreateService(conn, ch.telemetry)
}

// classifyAndMaybeDrop applies the pool's channel-death classifier to err
// and drops the held connection if it reports the channel as dead. It
// returns err unchanged so call sites can classify-then-return in one line.
func (ch *Channel[S]) classifyAndMaybeDrop(err error) error {
	if err != nil && ch.pool.channelDeathClassifier(err) {
		ch.pool.holder.Drop("request classified as fatal: " + err.Error())
	}
	return err
}
