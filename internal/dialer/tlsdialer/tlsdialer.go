// Package tlsdialer contains the TLS dialer
package tlsdialer

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"github.com/ooni/sslprotocols/internal/dialer/connx"
	"github.com/ooni/sslprotocols/internal/errwrapper"
	"github.com/ooni/sslprotocols/internal/tlshandshaker"
	"github.com/ooni/sslprotocols/internal/tlshandshaker/emittingtlshandshaker"
	"github.com/ooni/sslprotocols/internal/tlshandshaker/ootlshandshaker"
	"github.com/ooni/sslprotocols/internal/tracing"
	"github.com/ooni/sslprotocols/model"
	"github.com/ooni/sslprotocols/protocolset"
	"github.com/ooni/sslprotocols/tlsconf"
)

// TLSDialer is the TLS dialer
type TLSDialer struct {
	Beginning  time.Time
	Handler    model.Handler
	Handshaker tlshandshaker.Model
	NextProtos []string
	dialer     model.Dialer
	options    *tlsconf.Options
}

// New creates a new TLS dialer that reads its configuration
// from options and opens raw connections using dialer.
func New(
	beginning time.Time, handler model.Handler,
	dialer model.Dialer, options *tlsconf.Options,
) *TLSDialer {
	return &TLSDialer{
		Beginning:  beginning,
		Handler:    handler,
		Handshaker: emittingtlshandshaker.New(ootlshandshaker.New()),
		dialer:     dialer,
		options:    options,
	}
}

// DialTLS dials a new TLS connection
func (d *TLSDialer) DialTLS(network, address string) (net.Conn, error) {
	ctx := context.Background()
	return d.DialTLSContext(ctx, network, address)
}

// DialTLSContext is like DialTLS, but with context. The returned
// conn is a *tls.Conn because the HTTP code assumes that when it
// implements ALPN. The returned error is a *model.ErrWrapper unless
// the address is malformed. We never retry.
func (d *TLSDialer) DialTLSContext(
	ctx context.Context, network, address string,
) (net.Conn, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	conn, err := d.connect(ctx, network, address)
	if err != nil {
		return nil, err
	}
	snapshot := d.options.Snapshot()
	serverName := snapshot.ServerName
	if serverName == "" {
		serverName = host
	}
	var connID int64
	if mconn, ok := conn.(*connx.MeasuringConn); ok {
		connID = mconn.ID
	}
	ctx = tracing.WithInfo(ctx, &tracing.Info{
		Beginning: d.Beginning,
		ConnID:    connID,
		Handler:   d.Handler,
	})
	outcome := d.Handshaker.Do(ctx, conn, tlshandshaker.Params{
		NextProtos: d.NextProtos,
		Protocols:  snapshot.EnabledProtocols,
		RootCAs:    snapshot.RootCAs,
		ServerName: serverName,
		Timeout:    snapshot.HandshakeTimeout,
		Validator:  snapshot.CertificateValidator,
	})
	if outcome.Kind == tlshandshaker.Negotiated {
		return outcome.Conn, nil
	}
	conn.Close()
	return nil, newError(connID, outcome)
}

func (d *TLSDialer) connect(
	ctx context.Context, network, address string,
) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, d.options.ConnectTimeout())
	defer cancel()
	return d.dialer.DialContext(ctx, network, address)
}

func newError(connID int64, outcome tlshandshaker.Outcome) error {
	builder := errwrapper.SafeErrWrapperBuilder{
		ConnID:    connID,
		Error:     outcome.Err,
		Operation: errwrapper.TLSHandshakeOperation,
	}
	switch outcome.Kind {
	case tlshandshaker.TimedOut:
		builder.Failure = errwrapper.FailureGenericTimeoutError
		builder.Kind = model.KindHandshakeTimeout
	case tlshandshaker.ConnectionClosed:
		builder.Kind = model.KindPeerClosedConnection
		if errors.Is(outcome.Err, context.Canceled) {
			builder.Kind = model.KindInterrupted
		}
	default:
		switch outcome.Reason {
		case tlshandshaker.ReasonNoSupportedProtocol:
			builder.Failure = errwrapper.FailureSSLUnsupportedProtocolSet
			builder.Kind = model.KindUnsupportedProtocolSet
		case tlshandshaker.ReasonOutsideEnabledSet:
			builder.Failure = errwrapper.FailureSSLProtocolOutsideSet
			builder.Kind = model.KindNegotiationMismatch
		case tlshandshaker.ReasonCertificateRejected:
			builder.Kind = model.KindCertificateRejected
		default:
			builder.Kind = model.KindNegotiationMismatch
		}
	}
	if builder.Error == nil {
		builder.Error = errors.New(outcome.Kind.String())
	}
	return builder.MaybeBuild()
}

type connectionStater interface {
	ConnectionState() tls.ConnectionState
}

// NegotiatedProtocol returns the protocol negotiated by conn. It
// returns false when conn is not a TLS conn or the handshake has
// not completed.
func NegotiatedProtocol(conn net.Conn) (protocolset.Version, bool) {
	stater, ok := conn.(connectionStater)
	if !ok {
		return 0, false
	}
	state := stater.ConnectionState()
	if !state.HandshakeComplete {
		return 0, false
	}
	return protocolset.Version(state.Version), true
}
