package grpcchannel

import (
	"fmt"
	"strconv"
	"strings"
)

// EndpointKind identifies the transport family a connect URL resolves to.
type EndpointKind int

const (
	// KindTCP is a plain TCP (optionally TLS) endpoint.
	KindTCP EndpointKind = iota
	// KindUnixSocket is a local Unix domain socket path.
	KindUnixSocket
	// KindSSHTunnel is a TCP endpoint reached through an SSH port forward.
	KindSSHTunnel
)

func (k EndpointKind) String() string {
	switch k {
	case KindTCP:
		return "tcp"
	case KindUnixSocket:
		return "unix"
	case KindSSHTunnel:
		return "ssh-tunnel"
	default:
		return "unknown"
	}
}

// SSHTarget describes the SSH hop and the downstream host:port it forwards
// to. It is parsed out of a connect URL of the form
//
//	ssh://user@sshhost:sshport->[https://]remotehost:remoteport
//
// and is the value the Connector passes to PortForwardPool.Ensure, which
// reuses a single tunnel across reconnects to the same target.
type SSHTarget struct {
	User       string
	Host       string
	Port       int
	RemoteHost string
	RemotePort int
	RemoteTLS  bool
}

// sshLine is the part of the raw URL that identifies SSH credentials,
// stable across reconnects. It is passed to the SSHCredentialsResolver and
// forms the first half of the PortForwardPool dedup key.
func (t SSHTarget) sshLine() string {
	return fmt.Sprintf("%s@%s:%d", t.User, t.Host, t.Port)
}

func (t SSHTarget) remote() string {
	return fmt.Sprintf("%s:%d", t.RemoteHost, t.RemotePort)
}

// Endpoint is the parsed, classified form of a connect URL. It is comparable
// with ==: two Endpoints parsed from the same raw string are equal.
type Endpoint struct {
	raw  string
	kind EndpointKind

	// KindUnixSocket
	path string

	// KindTCP / KindSSHTunnel
	host string
	port int
	tls  bool

	// KindSSHTunnel only
	ssh SSHTarget
}

func (e Endpoint) Kind() EndpointKind { return e.kind }
func (e Endpoint) Raw() string        { return e.raw }
func (e Endpoint) Path() string       { return e.path }
func (e Endpoint) Host() string       { return e.host }
func (e Endpoint) Port() int          { return e.port }
func (e Endpoint) TLS() bool          { return e.tls }

// SSH returns the SSH tunnel target and true when Kind() is KindSSHTunnel.
func (e Endpoint) SSH() (SSHTarget, bool) {
	if e.kind != KindSSHTunnel {
		return SSHTarget{}, false
	}
	return e.ssh, true
}

// Authority returns "host:port" for TCP and SSH-tunnelled endpoints, and the
// socket path for unix endpoints.
func (e Endpoint) Authority() string {
	if e.kind == KindUnixSocket {
		return e.path
	}
	return fmt.Sprintf("%s:%d", e.host, e.port)
}

func (e Endpoint) String() string { return e.raw }

// ParseEndpoint classifies a raw connect URL string. Three grammars are
// recognised:
//
//   - a path beginning with "/" or "~/" is a Unix domain socket;
//   - a URL beginning with "ssh://" is an SSH-tunnelled TCP endpoint of the
//     form "ssh://user@sshhost:sshport->[https://]remotehost:remoteport";
//   - anything else is a plain TCP endpoint, "host:port" or
//     "https://host:port" for a TLS connection.
//
// An empty or malformed URL returns a *ChannelError of Kind KindConfig.
func ParseEndpoint(raw string) (Endpoint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Endpoint{}, configError("empty connect url")
	}

	switch {
	case strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "~/"):
		return Endpoint{raw: raw, kind: KindUnixSocket, path: trimmed}, nil
	case strings.HasPrefix(trimmed, "ssh://"):
		return parseSSHEndpoint(raw, trimmed)
	default:
		return parseTCPEndpoint(raw, trimmed)
	}
}

func parseTCPEndpoint(raw, trimmed string) (Endpoint, error) {
	tls := strings.HasPrefix(trimmed, "https://")
	hostport := strings.TrimPrefix(strings.TrimPrefix(trimmed, "https://"), "http://")

	host, port, err := splitHostPort(hostport)
	if err != nil {
		return Endpoint{}, configError(fmt.Sprintf("invalid connect url %q: %v", raw, err))
	}
	return Endpoint{raw: raw, kind: KindTCP, host: host, port: port, tls: tls}, nil
}

func parseSSHEndpoint(raw, trimmed string) (Endpoint, error) {
	rest := strings.TrimPrefix(trimmed, "ssh://")
	parts := strings.SplitN(rest, "->", 2)
	if len(parts) != 2 {
		return Endpoint{}, configError(fmt.Sprintf("invalid ssh connect url %q: missing '->' downstream separator", raw))
	}

	hop, downstream := parts[0], parts[1]

	at := strings.SplitN(hop, "@", 2)
	if len(at) != 2 {
		return Endpoint{}, configError(fmt.Sprintf("invalid ssh connect url %q: missing user@host", raw))
	}
	user := at[0]
	sshHost, sshPort, err := splitHostPort(at[1])
	if err != nil {
		return Endpoint{}, configError(fmt.Sprintf("invalid ssh connect url %q: %v", raw, err))
	}

	tls := strings.HasPrefix(downstream, "https://")
	downHostport := strings.TrimPrefix(downstream, "https://")
	remoteHost, remotePort, err := splitHostPort(downHostport)
	if err != nil {
		return Endpoint{}, configError(fmt.Sprintf("invalid ssh connect url %q: downstream: %v", raw, err))
	}

	target := SSHTarget{
		User:       user,
		Host:       sshHost,
		Port:       sshPort,
		RemoteHost: remoteHost,
		RemotePort: remotePort,
		RemoteTLS:  tls,
	}
	return Endpoint{raw: raw, kind: KindSSHTunnel, host: remoteHost, port: remotePort, tls: tls, ssh: target}, nil
}

func splitHostPort(s string) (string, int, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("missing port")
	}
	host := s[:idx]
	port, err := strconv.Atoi(s[idx+1:])
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", s[idx+1:])
	}
	if host == "" {
		return "", 0, fmt.Errorf("missing host")
	}
	return host, port, nil
}
