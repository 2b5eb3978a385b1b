package model

import (
	"encoding/json"
	"errors"
)

// ErrConfigurationFrozen is returned when you attempt to modify a
// TLS configuration after a connection attempt has already used it.
var ErrConfigurationFrozen = errors.New("tls configuration is frozen after first use")

// ErrorKind is the logical kind of a connection failure.
type ErrorKind int

// These are the possible kinds of connection failure.
const (
	// KindUnknown is the kind of errors we could not classify.
	KindUnknown ErrorKind = iota

	// KindConnectFailed means we could not resolve the destination
	// or open the underlying stream.
	KindConnectFailed

	// KindUnsupportedProtocolSet means that the TLS engine cannot
	// perform any of the enabled protocol versions.
	KindUnsupportedProtocolSet

	// KindNegotiationMismatch means that the peer and us did not
	// agree on a protocol version, or the peer refused to continue.
	KindNegotiationMismatch

	// KindHandshakeTimeout means the handshake did not complete in time.
	KindHandshakeTimeout

	// KindPeerClosedConnection means the stream was closed or reset
	// before the handshake completed without any TLS alert.
	KindPeerClosedConnection

	// KindCertificateRejected means the certificate validator
	// refused the chain presented by the peer.
	KindCertificateRejected

	// KindInterrupted means the caller canceled the attempt.
	KindInterrupted
)

// These sentinels allow to use errors.Is with an *ErrWrapper.
var (
	ErrConnectFailed          = errors.New("connect failed")
	ErrUnsupportedProtocolSet = errors.New("no supported protocol in the enabled set")
	ErrNegotiationMismatch    = errors.New("protocol negotiation failed")
	ErrHandshakeTimeout       = errors.New("tls handshake timeout")
	ErrPeerClosedConnection   = errors.New("peer closed connection")
	ErrCertificateRejected    = errors.New("certificate rejected")
	ErrInterrupted            = errors.New("interrupted")
)

var kindInfo = map[ErrorKind]struct {
	name     string
	sentinel error
}{
	KindUnknown:                {"unknown", nil},
	KindConnectFailed:          {"connect_failed", ErrConnectFailed},
	KindUnsupportedProtocolSet: {"unsupported_protocol_set", ErrUnsupportedProtocolSet},
	KindNegotiationMismatch:    {"negotiation_mismatch", ErrNegotiationMismatch},
	KindHandshakeTimeout:       {"handshake_timeout", ErrHandshakeTimeout},
	KindPeerClosedConnection:   {"peer_closed_connection", ErrPeerClosedConnection},
	KindCertificateRejected:    {"certificate_rejected", ErrCertificateRejected},
	KindInterrupted:            {"interrupted", ErrInterrupted},
}

// String returns the kind name.
func (k ErrorKind) String() string {
	if info, found := kindInfo[k]; found {
		return info.name
	}
	return "unknown"
}

// Sentinel returns the sentinel error for this kind or nil.
func (k ErrorKind) Sentinel() error {
	return kindInfo[k].sentinel
}

// MarshalJSON converts an ErrorKind to its name.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// ErrWrapper is the unified connection failure. The Failure field
// is also returned by the Error() method.
type ErrWrapper struct {
	// ConnID is the connection ID, or zero if not known.
	ConnID int64

	// DialID is the dial ID, or zero if not known.
	DialID int64

	// Failure is the failure string.
	Failure string

	// Kind is the logical kind of failure.
	Kind ErrorKind

	// Operation is the operation that failed (e.g. "tls_handshake").
	Operation string

	// TransactionID is the HTTP transaction ID, or zero if not known.
	TransactionID int64

	// WrappedErr is the error that we're wrapping.
	WrappedErr error
}

// Error returns a description of the error that occurred.
func (e *ErrWrapper) Error() string {
	return e.Failure
}

// Unwrap allows to access the underlying error.
func (e *ErrWrapper) Unwrap() error {
	return e.WrappedErr
}

// Is allows to match the sentinel of e.Kind with errors.Is.
func (e *ErrWrapper) Is(target error) bool {
	sentinel := e.Kind.Sentinel()
	return sentinel != nil && sentinel == target
}

// MarshalJSON converts an ErrWrapper to a JSON value.
func (e *ErrWrapper) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Failure)
}

// IsConnectionFailure returns true if err is a failure that occurred
// while trying to establish a connection. A failed protocol negotiation
// may surface as a rejection, a timeout or an abrupt close depending on
// the peer, and all of these are connection failures.
func IsConnectionFailure(err error) bool {
	var wrapper *ErrWrapper
	return errors.As(err, &wrapper)
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var wrapper *ErrWrapper
	if errors.As(err, &wrapper) {
		return wrapper.Kind
	}
	return KindUnknown
}
