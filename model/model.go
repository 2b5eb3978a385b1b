// Package model contains the data model. Network events are tagged
// using a unique int64 ConnID. Dial events (resolve and connect) also
// share a unique int64 DialID. These IDs are never reused.
//
// All events also have a Time. This is always the time in which
// an event has been emitted. We use a monotonic clock. Hence, the
// Time is relative to a predefined zero in time.
//
// Duration, where present, indicates for how long the code
// has been waiting for an event to happen. For example,
// ReadEvent.Duration indicates for how long the code has
// been blocked inside Read().
//
// When an operation may fail, we also include the Error.
package model

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/ooni/sslprotocols/protocolset"
)

// CloseEvent is emitted when conn.Close returns.
type CloseEvent struct {
	ConnID   int64
	Duration time.Duration
	Error    error
	Time     time.Duration
}

// ConnectEvent is emitted when connect() returns.
type ConnectEvent struct {
	ConnID        int64
	DialID        int64
	Duration      time.Duration
	Error         error
	Network       string
	RemoteAddress string
	Time          time.Duration
}

// ReadEvent is emitted when conn.Read returns.
type ReadEvent struct {
	ConnID   int64
	Duration time.Duration
	Error    error
	NumBytes int64
	Time     time.Duration
}

// ResolveEvent is emitted when resolver.LookupHost returns.
type ResolveEvent struct {
	Addresses []string
	DialID    int64
	Duration  time.Duration
	Error     error
	Hostname  string
	Time      time.Duration
}

// TLSConfig contains the TLS configuration used for a handshake.
type TLSConfig struct {
	// EnabledProtocols is the snapshot of the enabled protocols. When
	// it is empty, the platform default policy applied.
	EnabledProtocols protocolset.Set
	NextProtos       []string
	ServerName       string
}

// X509Certificate is an x.509 certificate.
type X509Certificate struct {
	// Data contains the certificate bytes in DER format.
	Data []byte
}

// TLSConnectionState contains the TLS connection state.
type TLSConnectionState struct {
	CipherSuite        uint16
	NegotiatedProtocol string
	PeerCertificates   []X509Certificate
	Version            protocolset.Version
}

// NewTLSConnectionState creates a new TLSConnectionState.
func NewTLSConnectionState(s tls.ConnectionState) TLSConnectionState {
	return TLSConnectionState{
		CipherSuite:        s.CipherSuite,
		NegotiatedProtocol: s.NegotiatedProtocol,
		PeerCertificates:   simplifyCerts(s.PeerCertificates),
		Version:            protocolset.Version(s.Version),
	}
}

func simplifyCerts(in []*x509.Certificate) (out []X509Certificate) {
	for _, cert := range in {
		out = append(out, X509Certificate{
			Data: cert.Raw,
		})
	}
	return
}

// TLSHandshakeStartEvent is emitted when the TLS handshake starts.
type TLSHandshakeStartEvent struct {
	Config TLSConfig
	ConnID int64
	Time   time.Duration
}

// TLSHandshakeDoneEvent is emitted when the TLS handshake is done.
type TLSHandshakeDoneEvent struct {
	Config          TLSConfig
	ConnectionState TLSConnectionState
	ConnID          int64
	Duration        time.Duration
	Error           error

	// Outcome is the handshake outcome name: one of "negotiated",
	// "rejected", "timed_out" or "connection_closed".
	Outcome string
	Time    time.Duration
}

// WriteEvent is emitted when conn.Write returns.
type WriteEvent struct {
	ConnID   int64
	Duration time.Duration
	Error    error
	NumBytes int64
	Time     time.Duration
}

// Measurement contains zero or more events. Do not assume that at any
// time a Measurement will only contain a single event. When a Measurement
// contains an event, the corresponding pointer is non nil.
type Measurement struct {
	Close             *CloseEvent             `json:",omitempty"`
	Connect           *ConnectEvent           `json:",omitempty"`
	Read              *ReadEvent              `json:",omitempty"`
	Resolve           *ResolveEvent           `json:",omitempty"`
	TLSHandshakeStart *TLSHandshakeStartEvent `json:",omitempty"`
	TLSHandshakeDone  *TLSHandshakeDoneEvent  `json:",omitempty"`
	Write             *WriteEvent             `json:",omitempty"`
}

// Handler handles measurement events.
type Handler interface {
	// OnMeasurement is called when an event occurs. There will be no
	// events after the code that is using the modified Dialer, Transport,
	// or Client is returned. OnMeasurement may be called by background
	// goroutines and OnMeasurement calls may happen concurrently.
	OnMeasurement(Measurement)
}

// Dialer is the interface of net.Dialer we use.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TLSDialer is a dialer that establishes TLS connections.
type TLSDialer interface {
	DialTLSContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DNSResolver is the interface of net.Resolver we use.
type DNSResolver interface {
	LookupHost(ctx context.Context, hostname string) ([]string, error)
}

// CertificateInfo is the certificate chain metadata that we pass
// to a CertificateValidator.
type CertificateInfo struct {
	// ServerName is the name we expected the server to have.
	ServerName string

	// PeerCertificates is the chain sent by the server, leaf first.
	PeerCertificates []*x509.Certificate

	// VerifiedChains is the result of platform verification, which
	// is empty when VerifyError is not nil.
	VerifiedChains [][]*x509.Certificate

	// VerifyError is the platform verification error, if any.
	VerifyError error
}

// CertificateValidator decides whether to accept the certificate
// chain presented by the server.
type CertificateValidator func(info CertificateInfo) bool

// DefaultCertificateValidator accepts a chain if and only if
// platform verification succeeded.
func DefaultCertificateValidator(info CertificateInfo) bool {
	return info.VerifyError == nil
}

// AllowAllCertificates accepts any chain. Only use it for testing.
func AllowAllCertificates(info CertificateInfo) bool {
	return true
}
