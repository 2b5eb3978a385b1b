package model

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/ooni/sslprotocols/protocolset"
)

func TestNewTLSConnectionState(t *testing.T) {
	state := NewTLSConnectionState(tls.ConnectionState{
		CipherSuite:        tls.TLS_AES_128_GCM_SHA256,
		NegotiatedProtocol: "h2",
		PeerCertificates: []*x509.Certificate{
			{Raw: []byte("abc")},
			{Raw: []byte("def")},
		},
		Version: tls.VersionTLS13,
	})
	if len(state.PeerCertificates) != 2 {
		t.Fatal("too few certificates")
	}
	if string(state.PeerCertificates[1].Data) != "def" {
		t.Fatal("invalid second certificate")
	}
	if state.Version != protocolset.VersionTLS13 {
		t.Fatal("unexpected TLS version")
	}
	if state.NegotiatedProtocol != "h2" {
		t.Fatal("unexpected ALPN")
	}
}

func TestErrWrapperIs(t *testing.T) {
	err := &ErrWrapper{
		Failure:    "generic_timeout_error",
		Kind:       KindHandshakeTimeout,
		Operation:  "tls_handshake",
		WrappedErr: io.EOF,
	}
	wrapped := fmt.Errorf("round trip: %w", err)
	if !errors.Is(wrapped, ErrHandshakeTimeout) {
		t.Fatal("expected to match the kind sentinel")
	}
	if errors.Is(wrapped, ErrNegotiationMismatch) {
		t.Fatal("matched the wrong sentinel")
	}
	if !errors.Is(wrapped, io.EOF) {
		t.Fatal("expected to match the wrapped error")
	}
	if !IsConnectionFailure(wrapped) {
		t.Fatal("expected a connection failure")
	}
	if KindOf(wrapped) != KindHandshakeTimeout {
		t.Fatal("unexpected kind")
	}
	if wrapped.Error() != "round trip: generic_timeout_error" {
		t.Fatal("unexpected error string")
	}
}

func TestErrWrapperUnknownKindMatchesNothing(t *testing.T) {
	err := &ErrWrapper{Failure: "unknown_failure: x"}
	for _, sentinel := range []error{
		ErrConnectFailed, ErrUnsupportedProtocolSet, ErrNegotiationMismatch,
		ErrHandshakeTimeout, ErrPeerClosedConnection, ErrCertificateRejected,
		ErrInterrupted,
	} {
		if errors.Is(err, sentinel) {
			t.Fatal("unexpected match", sentinel)
		}
	}
}

func TestErrWrapperMarshalJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Failure error
		Kind    ErrorKind
	}{
		Failure: &ErrWrapper{Failure: "eof_error"},
		Kind:    KindPeerClosedConnection,
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"Failure":"eof_error","Kind":"peer_closed_connection"}` {
		t.Fatal("unexpected JSON", string(data))
	}
}

func TestKindOfOtherErrors(t *testing.T) {
	if KindOf(io.EOF) != KindUnknown {
		t.Fatal("expected KindUnknown")
	}
	if IsConnectionFailure(ErrConfigurationFrozen) {
		t.Fatal("a frozen configuration is not a connection failure")
	}
	if ErrorKind(100).String() != "unknown" {
		t.Fatal("unexpected name for an invalid kind")
	}
}

func TestCertificateValidators(t *testing.T) {
	bad := CertificateInfo{VerifyError: errors.New("mocked error")}
	if DefaultCertificateValidator(bad) {
		t.Fatal("default validator accepted a failed verification")
	}
	if !DefaultCertificateValidator(CertificateInfo{}) {
		t.Fatal("default validator refused a verified chain")
	}
	if !AllowAllCertificates(bad) {
		t.Fatal("AllowAllCertificates refused a chain")
	}
}
