package grpcchannel

import (
	"log/slog"
	"sync"

	"google.golang.org/grpc"
)

// heldChannel pairs a live connection with the bookkeeping needed to log a
// meaningful drop reason later.
type heldChannel struct {
	conn        *grpc.ClientConn
	host        string
	serviceName string
}

// ChannelHolder is a single-slot, mutex-guarded store for at most one live
// *grpc.ClientConn. It is the piece of state a ChannelPool mutates from
// three independent call sites — a request's connect path, the ping loop,
// and a request's failure path — so every read and write goes through the
// same lock rather than each call site keeping its own copy.
type ChannelHolder struct {
	mu      sync.Mutex
	current *heldChannel
	logger  *slog.Logger
}

// NewChannelHolder returns an empty ChannelHolder. A nil logger is replaced
// with slog.Default().
func NewChannelHolder(logger *slog.Logger) *ChannelHolder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelHolder{logger: logger}
}

// Reuse returns the currently held connection, or nil if none is held.
func (h *ChannelHolder) Reuse() *grpc.ClientConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil
	}
	return h.current.conn
}

// Publish stores conn as the current connection for serviceName/host. If a
// different connection was already held, it is closed in the background;
// no drop is logged, since replacing a stale handle with a fresh one is a
// routine part of reconnecting, not a failure.
func (h *ChannelHolder) Publish(serviceName, host string, conn *grpc.ClientConn) {
	h.mu.Lock()
	prev := h.current
	h.current = &heldChannel{conn: conn, host: host, serviceName: serviceName}
	h.mu.Unlock()

	if prev != nil && prev.conn != conn {
		go prev.conn.Close()
	}

	h.logger.Info("grpcchannel: published channel",
		slog.String("service", serviceName),
		slog.String("host", host),
	)
}

// Drop clears the held connection, closes it, and logs reason along with the
// service name and host it was connected to. It reports whether a
// connection was actually held (false is a no-op).
func (h *ChannelHolder) Drop(reason string) (serviceName, host string, ok bool) {
	h.mu.Lock()
	prev := h.current
	h.current = nil
	h.mu.Unlock()

	if prev == nil {
		return "", "", false
	}

	h.logger.Warn("grpcchannel: dropping channel",
		slog.String("service", prev.serviceName),
		slog.String("host", prev.host),
		slog.String("reason", reason),
	)
	_ = prev.conn.Close()
	return prev.serviceName, prev.host, true
}
