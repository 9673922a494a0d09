package grpcchannel

import (
	"context"
	"log/slog"
	"time"
)

// runPingLoop drives p.factory.Ping against the held connection every
// interval, as long as the pool has ever had a Channel handed out (a pool
// nobody uses does not need to keep probing a connection it has never had
// to establish). When no connection is currently held it tries to
// (re)establish one via the pool's Connector before probing, logging and
// skipping the tick on failure rather than going silent until some
// unrelated caller happens to reconnect. A failed or panicking ping drops
// the held connection so the next caller's request transparently reconnects instead
// of attempting the RPC against a connection the ping already proved dead.
func runPingLoop[S any](ctx context.Context, p *ChannelPool[S]) {
	ticker := time.NewTicker(p.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !p.everUsed.Load() {
			continue
		}

		conn := p.holder.Reuse()
		if conn == nil {
			connectCtx, cancel := context.WithTimeout(ctx, p.pingTimeout)
			newConn, err := p.connect(connectCtx, p.pingTimeout)
			cancel()
			if err != nil {
				p.logger.Error("grpcchannel: ping loop failed to establish channel",
					slog.String("service", p.factory.ServiceName()),
					slog.Any("error", err))
				continue
			}
			conn = newConn
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("grpcchannel: ping panicked", slog.Any("recovered", r))
					p.holder.Drop("ping panicked")
				}
			}()

			pingCtx, cancel := context.WithTimeout(ctx, p.pingTimeout)
			defer cancel()

			svc := p.factory.CreateService(conn, EmptyTelemetry)
			if err := p.factory.Ping(pingCtx, svc); err != nil {
				p.logger.Warn("grpcchannel: ping failed, dropping channel",
					slog.String("service", p.factory.ServiceName()),
					slog.Any("error", err))
				p.holder.Drop("ping failed")
			}
		}()
	}
}
