package grpcchannel

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
)

// Config holds the timing policy for a ChannelPool.
type Config struct {
	// RequestTimeout bounds both connection establishment and each
	// individual RPC issued through a Channel's RequestBuilder.
	RequestTimeout time.Duration
	// PingTimeout bounds a single background health-check call.
	PingTimeout time.Duration
	// PingInterval is the delay between background health checks once the
	// pool has handed out at least one Channel.
	PingInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 2 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 15 * time.Second
	}
	return c
}

// ChannelPool owns the single live connection to one named remote service
// and the policy for establishing, probing, and replacing it. Construct one
// with New and obtain a Channel per logical request flow with GetChannel.
type ChannelPool[S any] struct {
	settings ServiceSettings
	factory  ServiceFactory[S]

	holder   *ChannelHolder
	forwards *PortForwardPool
	resolver SSHCredentialsResolver

	requestTimeout time.Duration
	pingTimeout    time.Duration
	pingInterval   time.Duration

	channelDeathClassifier func(error) bool

	logger   *slog.Logger
	everUsed atomic.Bool

	cancelPing context.CancelFunc
}

// Option configures a ChannelPool at construction time.
type Option[S any] func(*ChannelPool[S])

// WithLogger overrides the default slog.Default() logger.
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(p *ChannelPool[S]) { p.logger = logger }
}

// WithPortForwardPool supplies the PortForwardPool used to dial SSH-tunnelled
// endpoints. Required only if the pool's settings can resolve to a
// KindSSHTunnel endpoint.
func WithPortForwardPool[S any](forwards *PortForwardPool) Option[S] {
	return func(p *ChannelPool[S]) { p.forwards = forwards }
}

// WithSSHCredentialsResolver supplies the resolver used to authenticate
// SSH-tunnelled endpoints.
func WithSSHCredentialsResolver[S any](resolver SSHCredentialsResolver) Option[S] {
	return func(p *ChannelPool[S]) { p.resolver = resolver }
}

// WithChannelDeathClassifier overrides DefaultChannelDeathClassifier, the
// policy deciding whether an error observed on a request should drop the
// held connection.
func WithChannelDeathClassifier[S any](classifier func(error) bool) Option[S] {
	return func(p *ChannelPool[S]) { p.channelDeathClassifier = classifier }
}

// New constructs a ChannelPool for the service described by factory, resolved
// through settings, and starts its background ping loop. Callers should
// arrange to cancel ctx (or otherwise stop using the pool) when done; the
// ping loop exits when ctx is done.
func New[S any](ctx context.Context, settings ServiceSettings, factory ServiceFactory[S], cfg Config, opts ...Option[S]) *ChannelPool[S] {
	cfg = cfg.withDefaults()

	p := &ChannelPool[S]{
		settings:               settings,
		factory:                factory,
		requestTimeout:         cfg.RequestTimeout,
		pingTimeout:            cfg.PingTimeout,
		pingInterval:           cfg.PingInterval,
		channelDeathClassifier: DefaultChannelDeathClassifier,
		logger:                 slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.holder = NewChannelHolder(p.logger)

	pingCtx, cancel := context.WithCancel(ctx)
	p.cancelPing = cancel
	go runPingLoop(pingCtx, p)

	return p
}

// Stop cancels the background ping loop. It does not close a currently held
// connection; in-flight requests holding a Channel may continue using it.
func (p *ChannelPool[S]) Stop() {
	if p.cancelPing != nil {
		p.cancelPing()
	}
}

// GetChannel returns a Channel handle carrying telemetry through every
// request issued with it. Obtaining a Channel marks the pool as "in use",
// which activates the background ping loop; a pool that is constructed but
// never asked for a Channel never dials anything.
func (p *ChannelPool[S]) GetChannel(telemetry TelemetryContext) *Channel[S] {
	p.everUsed.Store(true)
	return &Channel[S]{
		pool:           p,
		requestTimeout: p.requestTimeout,
		telemetry:      telemetry,
	}
}

// connect resolves the service's current GRPCURL, parses it, and dials it,
// publishing the result to the pool's ChannelHolder on success.
func (p *ChannelPool[S]) connect(ctx context.Context, timeout time.Duration) (*grpc.ClientConn, error) {
	url, err := p.settings.GetGRPCURL(ctx, p.factory.ServiceName())
	if err != nil {
		return nil, transportError(serviceErrorf(p.factory.ServiceName(), "resolve connect url").Error(), err)
	}

	endpoint, err := ParseEndpoint(url.URL)
	if err != nil {
		return nil, err
	}

	conn, host, err := Connect(ctx, endpoint, p.factory.ServiceName(), timeout, p.forwards, p.resolver)
	if err != nil {
		return nil, err
	}

	p.holder.Publish(p.factory.ServiceName(), host, conn)
	return conn, nil
}
