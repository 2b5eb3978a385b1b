// Package errwrapper contains our error wrapper
package errwrapper

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/ooni/sslprotocols/model"
)

// These are the operations that may fail.
const (
	ResolveOperation      = "resolve"
	ConnectOperation      = "connect"
	TLSHandshakeOperation = "tls_handshake"
)

// These are the failure strings we use. They are loosely compatible
// with https://github.com/ooni/spec/blob/master/data-formats/df-007-errors.md.
const (
	FailureConnectionAlreadyClosed   = "connection_already_closed"
	FailureConnectionRefused         = "connection_refused"
	FailureConnectionReset           = "connection_reset"
	FailureDNSNXDOMAINError          = "dns_nxdomain_error"
	FailureEOFError                  = "eof_error"
	FailureGenericTimeoutError       = "generic_timeout_error"
	FailureInterrupted               = "interrupted"
	FailureSSLCertificateRejected    = "ssl_certificate_rejected"
	FailureSSLFailedHandshake        = "ssl_failed_handshake"
	FailureSSLInvalidCertificate     = "ssl_invalid_certificate"
	FailureSSLInvalidHostname        = "ssl_invalid_hostname"
	FailureSSLProtocolOutsideSet     = "ssl_protocol_outside_enabled_set"
	FailureSSLUnknownAuthority       = "ssl_unknown_authority"
	FailureSSLUnsupportedProtocolSet = "ssl_unsupported_protocol_set"
)

// SafeErrWrapperBuilder contains a builder for model.ErrWrapper that
// is safe, i.e., behaves correctly when the error is nil.
type SafeErrWrapperBuilder struct {
	// ConnID is the connection ID, if any
	ConnID int64

	// DialID is the dial ID, if any
	DialID int64

	// Error is the error, if any
	Error error

	// Failure is the OPTIONAL failure string. When empty, we
	// classify Error to obtain the failure string.
	Failure string

	// Kind is the OPTIONAL error kind. When zero, we derive the kind
	// from the operation and the failure string.
	Kind model.ErrorKind

	// Operation is the operation that failed
	Operation string

	// TransactionID is the transaction ID, if any
	TransactionID int64
}

// MaybeBuild builds a new model.ErrWrapper, if b.Error is not nil, and
// returns a nil error value, instead, if b.Error is nil.
func (b SafeErrWrapperBuilder) MaybeBuild() (err error) {
	if b.Error == nil {
		return
	}
	var wrapper *model.ErrWrapper
	if errors.As(b.Error, &wrapper) {
		// Keep the innermost classification: it was computed
		// closer to where the error actually happened.
		return &model.ErrWrapper{
			ConnID:        pick(b.ConnID, wrapper.ConnID),
			DialID:        pick(b.DialID, wrapper.DialID),
			Failure:       wrapper.Failure,
			Kind:          wrapper.Kind,
			Operation:     wrapper.Operation,
			TransactionID: pick(b.TransactionID, wrapper.TransactionID),
			WrappedErr:    b.Error,
		}
	}
	failure := b.Failure
	if failure == "" {
		failure = toFailureString(b.Error)
	}
	kind := b.Kind
	if kind == model.KindUnknown {
		kind = toKind(b.Operation, failure)
	}
	return &model.ErrWrapper{
		ConnID:        b.ConnID,
		DialID:        b.DialID,
		Failure:       failure,
		Kind:          kind,
		Operation:     b.Operation,
		TransactionID: b.TransactionID,
		WrappedErr:    b.Error,
	}
}

func pick(outer, inner int64) int64 {
	if outer != 0 {
		return outer
	}
	return inner
}

func toFailureString(err error) string {
	// The list returned here matches the values used by MK unless
	// explicitly noted otherwise with a comment.

	var errwrapper *model.ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}

	if errors.Is(err, context.Canceled) {
		return FailureInterrupted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureGenericTimeoutError
	}
	var x509HostnameError x509.HostnameError
	if errors.As(err, &x509HostnameError) {
		// Test case: https://wrong.host.badssl.com/
		return FailureSSLInvalidHostname
	}
	var x509UnknownAuthorityError x509.UnknownAuthorityError
	if errors.As(err, &x509UnknownAuthorityError) {
		// Test case: https://self-signed.badssl.com/. This error has
		// never been among the ones returned by MK.
		return FailureSSLUnknownAuthority
	}
	var x509CertificateInvalidError x509.CertificateInvalidError
	if errors.As(err, &x509CertificateInvalidError) {
		// Test case: https://expired.badssl.com/
		return FailureSSLInvalidCertificate
	}
	if errors.Is(err, model.ErrCertificateRejected) {
		// The validator refused a chain that passed verification.
		return FailureSSLCertificateRejected
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return FailureConnectionRefused
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return FailureConnectionReset
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return FailureEOFError
	}
	if errors.Is(err, net.ErrClosed) {
		return FailureConnectionAlreadyClosed
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureGenericTimeoutError
	}

	s := err.Error()
	if strings.HasSuffix(s, "operation was canceled") {
		return FailureInterrupted
	}
	if strings.HasSuffix(s, "EOF") {
		return FailureEOFError
	}
	if strings.HasSuffix(s, "connection reset by peer") {
		return FailureConnectionReset
	}
	if strings.HasSuffix(s, "i/o timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "TLS handshake timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "no such host") {
		// This is dns_lookup_error in MK but such error is used as a
		// generic "hey, the lookup failed" error. Instead, this error
		// that we return here is significantly more specific.
		return FailureDNSNXDOMAINError
	}
	if strings.HasSuffix(s, "use of closed network connection") {
		return FailureConnectionAlreadyClosed
	}
	if strings.Contains(s, "tls: ") {
		// Any remaining TLS alert, sent or received, means
		// that the negotiation failed.
		return FailureSSLFailedHandshake
	}
	return fmt.Sprintf("unknown_failure: %s", s)
}

func toKind(operation, failure string) model.ErrorKind {
	if failure == FailureInterrupted {
		return model.KindInterrupted
	}
	if operation == ResolveOperation || operation == ConnectOperation {
		return model.KindConnectFailed
	}
	if operation != TLSHandshakeOperation {
		return model.KindUnknown
	}
	switch failure {
	case FailureSSLUnsupportedProtocolSet:
		return model.KindUnsupportedProtocolSet
	case FailureGenericTimeoutError:
		return model.KindHandshakeTimeout
	case FailureEOFError, FailureConnectionReset, FailureConnectionAlreadyClosed:
		return model.KindPeerClosedConnection
	case FailureSSLInvalidHostname, FailureSSLUnknownAuthority,
		FailureSSLInvalidCertificate, FailureSSLCertificateRejected:
		return model.KindCertificateRejected
	default:
		return model.KindNegotiationMismatch
	}
}
