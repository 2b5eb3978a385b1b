// Package ootlshandshaker contains OONI's TLS handshaker
package ootlshandshaker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/ooni/sslprotocols/internal/tlshandshaker"
	"github.com/ooni/sslprotocols/model"
	"github.com/ooni/sslprotocols/protocolset"
)

// EngineProtocols is the set of protocols that crypto/tls can negotiate
// as a client. SSLv2 and SSLv3 are not implemented.
var EngineProtocols = protocolset.Union(
	protocolset.Union(protocolset.TLS10, protocolset.TLS11),
	protocolset.Union(protocolset.TLS12, protocolset.TLS13),
)

// DefaultProtocols returns the protocols crypto/tls enables as a client
// when the configuration leaves MinVersion and MaxVersion alone.
func DefaultProtocols() protocolset.Set {
	return protocolset.Union(protocolset.TLS12, protocolset.TLS13)
}

// DefaultTimeout is the timeout used when Params.Timeout is not positive.
const DefaultTimeout = 10 * time.Second

var (
	errNoSupportedProtocol = errors.New("ootlshandshaker: no supported protocol")
	errOutsideEnabledSet   = errors.New("ootlshandshaker: negotiated protocol outside enabled set")
	errNoPeerCertificates  = errors.New("ootlshandshaker: no peer certificates")
)

// Handshaker is OONI's TLS handshaker
type Handshaker struct {
	// Capability is the set of protocols we can negotiate. New
	// initializes it to EngineProtocols.
	Capability protocolset.Set
}

// New creates a new OONI TLS handshaker
func New() *Handshaker {
	return &Handshaker{Capability: EngineProtocols}
}

// Supported returns the protocols this handshaker can negotiate.
func (h *Handshaker) Supported() protocolset.Set {
	return h.Capability
}

// Do handshakes a TLS connection over conn. When the enabled protocols
// have no overlap with Supported, Do returns a Rejected outcome without
// reading or writing conn.
func (h *Handshaker) Do(
	ctx context.Context, conn net.Conn, params tlshandshaker.Params,
) tlshandshaker.Outcome {
	enabled := params.Protocols
	if !enabled.IsEmpty() {
		enabled = protocolset.Intersect(enabled, h.Supported())
		if enabled.IsEmpty() {
			return tlshandshaker.Outcome{
				Err: fmt.Errorf("%w: requested %s, supported %s",
					errNoSupportedProtocol, params.Protocols, h.Supported()),
				Kind:   tlshandshaker.Rejected,
				Reason: tlshandshaker.ReasonNoSupportedProtocol,
			}
		}
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return tlshandshaker.Outcome{Err: err, Kind: tlshandshaker.ConnectionClosed}
	}
	tlsconn := tls.Client(conn, newConfig(enabled, params))
	if err := tlsconn.HandshakeContext(ctx); err != nil {
		kind, reason := classify(err)
		return tlshandshaker.Outcome{Err: err, Kind: kind, Reason: reason}
	}
	state := tlsconn.ConnectionState()
	version := protocolset.Version(state.Version)
	if !enabled.IsEmpty() && !enabled.Contains(version) {
		// The span between Min and Max may include versions that
		// are not in a set with gaps.
		tlsconn.Close()
		return tlshandshaker.Outcome{
			Err:     fmt.Errorf("%w: %s not in %s", errOutsideEnabledSet, version, enabled),
			Kind:    tlshandshaker.Rejected,
			Reason:  tlshandshaker.ReasonOutsideEnabledSet,
			State:   &state,
			Version: version,
		}
	}
	// The following call fails if the connection is not connected
	// which should not be the case at this point. If the connection
	// has just been disconnected, we'll notice when doing I/O, so
	// it is fine to ignore the return value of SetDeadline.
	conn.SetDeadline(time.Time{})
	return tlshandshaker.Outcome{
		Conn:    tlsconn,
		Kind:    tlshandshaker.Negotiated,
		State:   &state,
		Version: version,
	}
}

func newConfig(enabled protocolset.Set, params tlshandshaker.Params) *tls.Config {
	validator := params.Validator
	if validator == nil {
		validator = model.DefaultCertificateValidator
	}
	serverName := params.ServerName
	config := &tls.Config{
		NextProtos: params.NextProtos,
		ServerName: serverName,
		// We run platform verification ourselves inside VerifyConnection
		// so that the validator sees its result.
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			info := verify(cs, serverName, params.RootCAs)
			if validator(info) {
				return nil
			}
			if info.VerifyError != nil {
				return fmt.Errorf("%w: %w", model.ErrCertificateRejected, info.VerifyError)
			}
			return model.ErrCertificateRejected
		},
	}
	if !enabled.IsEmpty() {
		config.MinVersion = uint16(enabled.Min())
		config.MaxVersion = uint16(enabled.Max())
	}
	return config
}

func verify(cs tls.ConnectionState, serverName string, roots *x509.CertPool) model.CertificateInfo {
	info := model.CertificateInfo{
		PeerCertificates: cs.PeerCertificates,
		ServerName:       serverName,
	}
	if len(cs.PeerCertificates) < 1 {
		info.VerifyError = errNoPeerCertificates
		return info
	}
	opts := x509.VerifyOptions{
		DNSName:       serverName,
		Intermediates: x509.NewCertPool(),
		Roots:         roots,
	}
	for _, cert := range cs.PeerCertificates[1:] {
		opts.Intermediates.AddCert(cert)
	}
	info.VerifiedChains, info.VerifyError = cs.PeerCertificates[0].Verify(opts)
	return info
}

func classify(err error) (tlshandshaker.OutcomeKind, string) {
	if errors.Is(err, model.ErrCertificateRejected) {
		return tlshandshaker.Rejected, tlshandshaker.ReasonCertificateRejected
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return tlshandshaker.TimedOut, ""
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return tlshandshaker.TimedOut, ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return tlshandshaker.ConnectionClosed, ""
	}
	if strings.HasSuffix(err.Error(), "connection reset by peer") {
		return tlshandshaker.ConnectionClosed, ""
	}
	// What remains are alerts, sent or received, and other failures
	// of the negotiation itself.
	return tlshandshaker.Rejected, err.Error()
}
