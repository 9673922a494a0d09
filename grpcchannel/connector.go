package grpcchannel

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// maxConnectAttempts bounds the internal retry loop Connect runs around a
// single dial attempt. It exists so a misconfigured or permanently
// unreachable endpoint fails in bounded time instead of retrying forever
// inside a single Connect call; the ping loop and the next caller's request
// will simply try again later.
const maxConnectAttempts = 4

// Connect dials endpoint and blocks until the resulting connection reaches
// READY, or until requestTimeout elapses on each of up to maxConnectAttempts
// attempts with exponential backoff between them. On success it returns the
// live connection and the host string to record against it (for logging and
// ChannelHolder bookkeeping).
//
// When endpoint.Kind() is KindSSHTunnel, forwards is used to establish (or
// reuse) the local Unix-socket port forward before dialing it; credentials
// is consulted to authenticate the SSH hop. Both may be nil if the endpoint
// never resolves to an SSH tunnel for this pool.
func Connect(
	ctx context.Context,
	endpoint Endpoint,
	serviceName string,
	requestTimeout time.Duration,
	forwards *PortForwardPool,
	credentialsResolver SSHCredentialsResolver,
) (*grpc.ClientConn, string, error) {
	var (
		conn *grpc.ClientConn
		host string
	)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0 // bounded by maxConnectAttempts instead

	var lastErr error
	for attempt := 0; attempt < maxConnectAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.NextBackOff()):
			case <-ctx.Done():
				return nil, "", timeoutError("connect: context done while backing off", ctx.Err())
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		conn, host, lastErr = connectOnce(attemptCtx, endpoint, serviceName, forwards, credentialsResolver)
		cancel()
		if lastErr == nil {
			return conn, host, nil
		}
	}
	return nil, "", lastErr
}

func connectOnce(
	ctx context.Context,
	endpoint Endpoint,
	serviceName string,
	forwards *PortForwardPool,
	credentialsResolver SSHCredentialsResolver,
) (*grpc.ClientConn, string, error) {
	target, creds, host, err := dialParams(ctx, endpoint, serviceName, forwards, credentialsResolver)
	if err != nil {
		return nil, "", err
	}

	conn, err := grpc.NewClient(target, creds)
	if err != nil {
		return nil, "", transportError(fmt.Sprintf("service %q: dial %q", serviceName, target), err)
	}

	if err := waitReady(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, "", err
	}
	return conn, host, nil
}

func dialParams(
	ctx context.Context,
	endpoint Endpoint,
	serviceName string,
	forwards *PortForwardPool,
	credentialsResolver SSHCredentialsResolver,
) (target string, creds grpc.DialOption, host string, err error) {
	switch endpoint.Kind() {
	case KindUnixSocket:
		return "unix:" + endpoint.Path(), grpc.WithTransportCredentials(insecure.NewCredentials()), endpoint.Path(), nil

	case KindSSHTunnel:
		sshTarget, _ := endpoint.SSH()
		if forwards == nil {
			return "", nil, "", transportError(fmt.Sprintf("service %q: ssh endpoint with no PortForwardPool configured", serviceName), nil)
		}
		socketPath, err := forwards.Ensure(ctx, sshTarget, credentialsResolver)
		if err != nil {
			return "", nil, "", err
		}
		dialOpt := grpc.WithTransportCredentials(insecure.NewCredentials())
		if sshTarget.RemoteTLS {
			tlsCreds, err := tlsCredentials(sshTarget.RemoteHost)
			if err != nil {
				return "", nil, "", err
			}
			dialOpt = grpc.WithTransportCredentials(tlsCreds)
		}
		return "unix:" + socketPath, dialOpt, sshTarget.remote(), nil

	default: // KindTCP
		if endpoint.TLS() {
			tlsCreds, err := tlsCredentials(endpoint.Host())
			if err != nil {
				return "", nil, "", err
			}
			return endpoint.Authority(), grpc.WithTransportCredentials(tlsCreds), endpoint.Authority(), nil
		}
		return endpoint.Authority(), grpc.WithTransportCredentials(insecure.NewCredentials()), endpoint.Authority(), nil
	}
}

// tlsCredentials builds client TLS credentials verifying the peer against
// the host's system trust store, with ServerName set for SNI and
// certificate-name verification.
func tlsCredentials(serverName string) (credentials.TransportCredentials, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	return credentials.NewTLS(&tls.Config{
		RootCAs:    pool,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}), nil
}

// waitReady forces conn to start connecting and blocks until it reaches
// connectivity.Ready or ctx is done. grpc.NewClient dials lazily on the
// first RPC by design; Connect needs a definite live/dead answer before
// handing the connection to a ChannelHolder, so it drives the state machine
// itself instead of waiting for an opportunistic first call to discover a
// dead peer.
func waitReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return nil
		}
		if state == connectivity.TransientFailure || state == connectivity.Shutdown {
			// Not treated as terminal: the loop keeps waiting for the next
			// state change until ctx is done, since transient failures are
			// common during a peer's own restart window.
		}
		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return timeoutError("connect: wait for ready", ctx.Err())
			}
			return transportError("connect: connection shut down before becoming ready", nil)
		}
	}
}
