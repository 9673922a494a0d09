package grpcchannel

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// GRPCURL is the resolved location of a named service: a connect URL
// (see ParseEndpoint for its grammar) plus an opaque piece of host metadata
// the caller may want to log or cache alongside it (a region, a deployment
// tag, whatever the settings source tracks).
type GRPCURL struct {
	URL          string
	HostMetadata string
}

// ServiceSettings resolves a service name to its current GRPCURL. A
// ChannelPool calls GetGRPCURL every time it needs to (re)connect, so an
// implementation backed by a config file watcher or a service-discovery
// client naturally supports the remote endpoint moving between calls.
type ServiceSettings interface {
	GetGRPCURL(ctx context.Context, serviceName string) (GRPCURL, error)
}

// ServiceSettingsFunc adapts a function to ServiceSettings.
type ServiceSettingsFunc func(ctx context.Context, serviceName string) (GRPCURL, error)

func (f ServiceSettingsFunc) GetGRPCURL(ctx context.Context, serviceName string) (GRPCURL, error) {
	return f(ctx, serviceName)
}

// StaticServiceSettings resolves every service name to the same fixed URL.
// It is mainly useful in tests and small single-service deployments.
type StaticServiceSettings struct {
	URL          string
	HostMetadata string
}

func (s StaticServiceSettings) GetGRPCURL(context.Context, string) (GRPCURL, error) {
	return GRPCURL{URL: s.URL, HostMetadata: s.HostMetadata}, nil
}

// SSHCredentials authenticates an SSH port-forward hop. Exactly one of
// Password or PrivateKey should be set; IsPrivateKey reports which.
type SSHCredentials struct {
	Password   string
	PrivateKey []byte
	Passphrase string
}

func (c SSHCredentials) IsPrivateKey() bool { return len(c.PrivateKey) > 0 }

// SSHCredentialsResolver looks up the credentials to use for an SSH hop
// identified by sshLine ("user@host:port"). Implementations typically read
// from an agent, a secrets manager, or a local key file resolved by user.
type SSHCredentialsResolver interface {
	ResolveSSHCredentials(ctx context.Context, sshLine string) (SSHCredentials, error)
}

// SSHCredentialsResolverFunc adapts a function to SSHCredentialsResolver.
type SSHCredentialsResolverFunc func(ctx context.Context, sshLine string) (SSHCredentials, error)

func (f SSHCredentialsResolverFunc) ResolveSSHCredentials(ctx context.Context, sshLine string) (SSHCredentials, error) {
	return f(ctx, sshLine)
}

// ServiceFactory builds the typed client stub S from a live connection and
// knows how to ping the service it builds. Generated gRPC client code
// produces exactly the constructor this interface's CreateService method
// wraps; Ping is typically a one-line call to a health-check RPC.
type ServiceFactory[S any] interface {
	ServiceName() string
	CreateService(conn *grpc.ClientConn, telemetry TelemetryContext) S
	Ping(ctx context.Context, svc S) error
}

func serviceErrorf(serviceName, format string, args ...any) error {
	return fmt.Errorf("grpcchannel: service %q: "+format, append([]any{serviceName}, args...)...)
}
