// Package tlshandshaker contains the generic tls handshaker model
package tlshandshaker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/ooni/sslprotocols/model"
	"github.com/ooni/sslprotocols/protocolset"
)

// Params contains the parameters of a single handshake.
type Params struct {
	// NextProtos is the optional list of ALPN protocols.
	NextProtos []string

	// Protocols is the set of enabled protocols. The empty set means
	// that we should use the platform default policy.
	Protocols protocolset.Set

	// RootCAs is the optional CA pool. When nil we use system roots.
	RootCAs *x509.CertPool

	// ServerName is the SNI and the name we verify the certificate for.
	ServerName string

	// Timeout bounds the whole handshake.
	Timeout time.Duration

	// Validator decides whether to accept the certificate chain. When
	// nil we use model.DefaultCertificateValidator.
	Validator model.CertificateValidator
}

// OutcomeKind is the kind of a handshake outcome.
type OutcomeKind int

// These are the possible outcome kinds.
const (
	Negotiated OutcomeKind = iota
	Rejected
	TimedOut
	ConnectionClosed
)

var outcomeNames = map[OutcomeKind]string{
	Negotiated:       "negotiated",
	Rejected:         "rejected",
	TimedOut:         "timed_out",
	ConnectionClosed: "connection_closed",
}

func (k OutcomeKind) String() string {
	if s, ok := outcomeNames[k]; ok {
		return s
	}
	return "unknown"
}

// These are the reasons accompanying a Rejected outcome that callers
// may want to distinguish. Other rejections carry the error text.
const (
	ReasonCertificateRejected = "certificate rejected"
	ReasonNoSupportedProtocol = "no supported protocol"
	ReasonOutsideEnabledSet   = "negotiated protocol outside enabled set"
)

// Outcome is the result of a handshake.
type Outcome struct {
	// Conn is the TLS connection. Only set when Kind is Negotiated.
	Conn *tls.Conn

	// Err is the underlying error. Nil when Kind is Negotiated.
	Err error

	// Kind is the outcome kind.
	Kind OutcomeKind

	// Reason explains a Rejected outcome.
	Reason string

	// State is the connection state, if the handshake got far enough
	// to have one. It is nil otherwise.
	State *tls.ConnectionState

	// Version is the negotiated version, if any.
	Version protocolset.Version
}

// Model is the model for all TLS handshakers. Do handshakes exactly
// once and never retries. On failure, the caller still owns conn and
// must close it.
type Model interface {
	Do(ctx context.Context, conn net.Conn, params Params) Outcome
}
