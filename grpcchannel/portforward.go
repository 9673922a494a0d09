package grpcchannel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/ssh"
)

// portForward is a running SSH-tunnelled local Unix listener forwarding
// accepted connections to one remote host:port over one SSH client.
type portForward struct {
	client   *ssh.Client
	listener net.Listener
	socket   string
}

// PortForwardPool deduplicates SSH port forwards across Channels that share
// the same SSH hop and downstream target, so a pool of channels configured
// with identical SSH credentials open one SSH connection and one local
// socket rather than one per Channel. Ensure is safe for concurrent use.
type PortForwardPool struct {
	mu       sync.Mutex
	forwards map[string]*portForward
	logger   *slog.Logger
	baseDir  string
}

// NewPortForwardPool returns an empty PortForwardPool. socketDir is where
// local Unix sockets are created; if empty, os.TempDir() is used. A nil
// logger is replaced with slog.Default().
func NewPortForwardPool(socketDir string, logger *slog.Logger) *PortForwardPool {
	if logger == nil {
		logger = slog.Default()
	}
	if socketDir == "" {
		socketDir = os.TempDir()
	}
	return &PortForwardPool{
		forwards: make(map[string]*portForward),
		logger:   logger,
		baseDir:  socketDir,
	}
}

// key identifies one SSH-hop-plus-downstream pair for deduplication.
func forwardKey(target SSHTarget) string {
	return fmt.Sprintf("%s->%s", target.sshLine(), target.remote())
}

// Ensure returns the local Unix socket path that forwards to target's
// downstream host:port, dialing a new SSH connection and starting the
// forwarding goroutine on first use and reusing it on every subsequent call
// with the same target. target.RemotePort must be non-zero; a zero port
// indicates a configuration bug upstream in endpoint parsing and is a
// programming error, not a runtime failure, so Ensure panics rather than
// returning an error for it.
func (p *PortForwardPool) Ensure(ctx context.Context, target SSHTarget, resolver SSHCredentialsResolver) (string, error) {
	if target.RemotePort == 0 {
		panic("grpcchannel: PortForwardPool.Ensure: SSHTarget has no remote port")
	}

	key := forwardKey(target)
	fail := func(err error) (string, error) {
		p.logger.Warn("grpcchannel: ssh tunnel start failed", slog.String("key", key), slog.Any("error", err))
		return "", err
	}

	p.mu.Lock()
	if existing, ok := p.forwards[key]; ok {
		p.mu.Unlock()
		return existing.socket, nil
	}
	p.mu.Unlock()

	if resolver == nil {
		return fail(transportError("ssh tunnel: no SSHCredentialsResolver configured", nil))
	}
	creds, err := resolver.ResolveSSHCredentials(ctx, target.sshLine())
	if err != nil {
		return fail(transportError(fmt.Sprintf("ssh tunnel: resolve credentials for %q", target.sshLine()), err))
	}

	clientConfig, err := sshClientConfig(target.User, creds)
	if err != nil {
		return fail(transportError("ssh tunnel: build client config", err))
	}

	addr := fmt.Sprintf("%s:%d", target.Host, target.Port)
	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return fail(transportError(fmt.Sprintf("ssh tunnel: dial %q", addr), err))
	}

	socket := filepath.Join(p.baseDir, fmt.Sprintf("grpcchannel-%s-%d--%s-%d.sock",
		sanitizeForPath(target.Host), target.Port, sanitizeForPath(target.RemoteHost), target.RemotePort))
	_ = os.Remove(socket)

	listener, err := net.Listen("unix", socket)
	if err != nil {
		_ = client.Close()
		return fail(transportError(fmt.Sprintf("ssh tunnel: listen on %q", socket), err))
	}

	fwd := &portForward{client: client, listener: listener, socket: socket}

	p.mu.Lock()
	if existing, ok := p.forwards[key]; ok {
		// Lost a race with a concurrent Ensure call for the same target;
		// keep the winner and tear down our redundant tunnel.
		p.mu.Unlock()
		_ = listener.Close()
		_ = client.Close()
		return existing.socket, nil
	}
	p.forwards[key] = fwd
	p.mu.Unlock()

	go p.acceptLoop(fwd, target.remote())
	return socket, nil
}

func (p *PortForwardPool) acceptLoop(fwd *portForward, remote string) {
	for {
		conn, err := fwd.listener.Accept()
		if err != nil {
			return // listener closed
		}
		go p.forwardConn(fwd, conn, remote)
	}
}

func (p *PortForwardPool) forwardConn(fwd *portForward, local net.Conn, remote string) {
	defer local.Close()

	remoteConn, err := fwd.client.Dial("tcp", remote)
	if err != nil {
		p.logger.Warn("grpcchannel: ssh tunnel: dial remote failed", slog.String("remote", remote), slog.Any("error", err))
		return
	}
	defer remoteConn.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = io.Copy(remoteConn, local) }()
	go func() { defer wg.Done(); _, _ = io.Copy(local, remoteConn) }()
	wg.Wait()
}

// Close tears down every forward currently held by the pool.
func (p *PortForwardPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, fwd := range p.forwards {
		_ = fwd.listener.Close()
		_ = fwd.client.Close()
		delete(p.forwards, key)
	}
	return nil
}

func sshClientConfig(user string, creds SSHCredentials) (*ssh.ClientConfig, error) {
	var auth ssh.AuthMethod
	if creds.IsPrivateKey() {
		var signer ssh.Signer
		var err error
		if creds.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(creds.PrivateKey, []byte(creds.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(creds.PrivateKey)
		}
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auth = ssh.PublicKeys(signer)
	} else {
		auth = ssh.Password(creds.Password)
	}

	return &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{auth},
		// The downstream gRPC connection is itself authenticated (TLS or
		// mTLS, or a trusted unix socket); the SSH hop's host key is not
		// the security boundary here, so it is not verified further.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

func sanitizeForPath(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
