package grpcchannel

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusCodeOf extracts the gRPC status code from err, defaulting to
// codes.Unknown if err did not carry one.
func statusCodeOf(err error) codes.Code {
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Unknown
}

// ErrorKind classifies a ChannelError so callers can branch on failure
// category without string-matching messages.
type ErrorKind int

const (
	// KindTimeout means the request-level deadline elapsed before the
	// connect attempt or the RPC itself completed, or a stream item did not
	// arrive within its read timeout.
	KindTimeout ErrorKind = iota
	// KindTransport means dialing, the SSH hop, or the TLS handshake failed.
	KindTransport
	// KindStatus means the remote returned a gRPC status error.
	KindStatus
	// KindConfig means a connect URL or SSH credential could not be parsed
	// or resolved.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// ChannelError is the error type returned by this package's endpoint
// parsing, connection, request and stream operations; errors from a
// caller-supplied ServiceSettings are passed through by
// CachingServiceSettings unchanged. Use errors.As to recover it and branch on
// Kind; Unwrap exposes the underlying cause for errors.Is/errors.As chains
// that reach into gRPC's own status errors.
type ChannelError struct {
	Kind    ErrorKind
	Code    codes.Code
	Message string
	Cause   error
}

func (e *ChannelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("grpcchannel: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("grpcchannel: %s: %s", e.Kind, e.Message)
}

func (e *ChannelError) Unwrap() error { return e.Cause }

func timeoutError(msg string, cause error) *ChannelError {
	return &ChannelError{Kind: KindTimeout, Code: codes.DeadlineExceeded, Message: msg, Cause: cause}
}

func transportError(msg string, cause error) *ChannelError {
	return &ChannelError{Kind: KindTransport, Code: codes.Unavailable, Message: msg, Cause: cause}
}

func statusError(code codes.Code, msg string, cause error) *ChannelError {
	return &ChannelError{Kind: KindStatus, Code: code, Message: msg, Cause: cause}
}

func configError(msg string) *ChannelError {
	return &ChannelError{Kind: KindConfig, Code: codes.InvalidArgument, Message: msg}
}

// DefaultChannelDeathClassifier reports whether err should cause the held
// connection to be dropped. The default policy drops on KindTimeout,
// KindTransport, and on a KindStatus error whose code is Unknown — the
// narrow policy this package documents as its default, since codes.Unknown
// in practice means the peer sent something that was not a well-formed gRPC
// status at all (a crash, a proxy truncating the response), rather than a
// deliberate application-level rejection such as InvalidArgument or
// NotFound, which should not force a reconnect. Pass a different classifier
// via WithChannelDeathClassifier to widen or narrow this.
func DefaultChannelDeathClassifier(err error) bool {
	ce, ok := err.(*ChannelError)
	if !ok {
		return false
	}
	switch ce.Kind {
	case KindTimeout, KindTransport:
		return true
	case KindStatus:
		return ce.Code == codes.Unknown
	default:
		return false
	}
}
