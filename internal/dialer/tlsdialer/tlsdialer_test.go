package tlsdialer

import (
	"crypto/tls"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ooni/sslprotocols/internal/dialer/dnsdialer"
	"github.com/ooni/sslprotocols/internal/handlers/savinghandler"
	"github.com/ooni/sslprotocols/model"
	"github.com/ooni/sslprotocols/protocolset"
	"github.com/ooni/sslprotocols/tlsconf"
	"golang.org/x/sync/errgroup"
)

func newServer(t *testing.T, min, max uint16) *httptest.Server {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(204)
		}),
	)
	srv.TLS = &tls.Config{MinVersion: min, MaxVersion: max}
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv
}

func newOptions(t *testing.T, srv *httptest.Server) *tlsconf.Options {
	path := filepath.Join(t.TempDir(), "cacert.pem")
	data := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: srv.Certificate().Raw,
	})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	options := tlsconf.New()
	if err := options.SetCABundle(path); err != nil {
		t.Fatal(err)
	}
	return options
}

func newTLSDialer(handler model.Handler, options *tlsconf.Options) *TLSDialer {
	beginning := time.Now()
	return New(beginning, handler, dnsdialer.New(
		beginning, handler, new(net.Resolver), new(net.Dialer),
	), options)
}

func TestDialTLS12AgainstTLS12Server(t *testing.T) {
	srv := newServer(t, tls.VersionTLS12, tls.VersionTLS12)
	options := newOptions(t, srv)
	if err := options.SetEnabledProtocols(protocolset.TLS12); err != nil {
		t.Fatal(err)
	}
	dialer := newTLSDialer(&savinghandler.Handler{}, options)
	conn, err := dialer.DialTLS("tcp", srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, ok := conn.(*tls.Conn); !ok {
		t.Fatal("expected a *tls.Conn")
	}
	version, ok := NegotiatedProtocol(conn)
	if !ok || version != protocolset.VersionTLS12 {
		t.Fatal("unexpected negotiated protocol", version)
	}
	if err := options.SetEnabledProtocols(protocolset.TLS13); !errors.Is(err, model.ErrConfigurationFrozen) {
		t.Fatal("expected the options to be frozen", err)
	}
}

func TestDialDefaultAgainstTLS12Server(t *testing.T) {
	srv := newServer(t, tls.VersionTLS12, tls.VersionTLS12)
	dialer := newTLSDialer(&savinghandler.Handler{}, newOptions(t, srv))
	conn, err := dialer.DialTLS("tcp", srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if version, _ := NegotiatedProtocol(conn); version != protocolset.VersionTLS12 {
		t.Fatal("unexpected negotiated protocol", version)
	}
}

func TestDialTLS11AgainstTLS12ServerFails(t *testing.T) {
	srv := newServer(t, tls.VersionTLS12, tls.VersionTLS12)
	options := newOptions(t, srv)
	if err := options.SetEnabledProtocols(protocolset.TLS11); err != nil {
		t.Fatal(err)
	}
	dialer := newTLSDialer(&savinghandler.Handler{}, options)
	conn, err := dialer.DialTLS("tcp", srv.Listener.Addr().String())
	if conn != nil {
		t.Fatal("expected a nil conn here")
	}
	if !model.IsConnectionFailure(err) {
		t.Fatal("expected a connection failure", err)
	}
	switch model.KindOf(err) {
	case model.KindNegotiationMismatch, model.KindHandshakeTimeout,
		model.KindPeerClosedConnection:
	default:
		t.Fatal("unexpected kind", model.KindOf(err))
	}
}

func TestDialUnsupportedSet(t *testing.T) {
	srv := newServer(t, 0, 0)
	options := newOptions(t, srv)
	if err := options.SetEnabledProtocols(protocolset.SSL3); err != nil {
		t.Fatal(err)
	}
	dialer := newTLSDialer(&savinghandler.Handler{}, options)
	_, err := dialer.DialTLS("tcp", srv.Listener.Addr().String())
	if !errors.Is(err, model.ErrUnsupportedProtocolSet) {
		t.Fatal("not the error we expected", err)
	}
	var wrapper *model.ErrWrapper
	if !errors.As(err, &wrapper) || wrapper.Failure != "ssl_unsupported_protocol_set" {
		t.Fatal("unexpected failure", err)
	}
	if wrapper.Operation != "tls_handshake" {
		t.Fatal("unexpected operation", wrapper.Operation)
	}
}

func TestDialHandshakeTimeout(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				io.Copy(io.Discard, conn)
				conn.Close()
			}()
		}
	}()
	options := tlsconf.New()
	if err := options.SetHandshakeTimeout(250 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	dialer := newTLSDialer(&savinghandler.Handler{}, options)
	_, err = dialer.DialTLS("tcp", listener.Addr().String())
	if !errors.Is(err, model.ErrHandshakeTimeout) {
		t.Fatal("not the error we expected", err)
	}
}

func TestDialCertificateRejected(t *testing.T) {
	srv := newServer(t, 0, 0)
	dialer := newTLSDialer(&savinghandler.Handler{}, tlsconf.New())
	_, err := dialer.DialTLS("tcp", srv.Listener.Addr().String())
	if !errors.Is(err, model.ErrCertificateRejected) {
		t.Fatal("not the error we expected", err)
	}
}

func TestDialConnectFailureDoesNotFreeze(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	address := listener.Addr().String()
	listener.Close()
	options := tlsconf.New()
	dialer := newTLSDialer(&savinghandler.Handler{}, options)
	_, err = dialer.DialTLS("tcp", address)
	if !errors.Is(err, model.ErrConnectFailed) {
		t.Fatal("not the error we expected", err)
	}
	if options.Frozen() {
		t.Fatal("the options should not be frozen")
	}
}

func TestDialInvalidAddress(t *testing.T) {
	dialer := newTLSDialer(&savinghandler.Handler{}, tlsconf.New())
	conn, err := dialer.DialTLS("tcp", "www.google.com")
	if err == nil {
		t.Fatal("expected an error here")
	}
	if conn != nil {
		t.Fatal("expected a nil conn here")
	}
}

func TestDialEmitsHandshakeEvents(t *testing.T) {
	srv := newServer(t, 0, 0)
	handler := &savinghandler.Handler{}
	dialer := newTLSDialer(handler, newOptions(t, srv))
	conn, err := dialer.DialTLS("tcp", srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()
	var start, done int
	for _, m := range handler.Snapshot() {
		if m.TLSHandshakeStart != nil {
			start++
		}
		if m.TLSHandshakeDone != nil {
			done++
			if m.TLSHandshakeDone.Outcome != "negotiated" {
				t.Fatal("unexpected outcome", m.TLSHandshakeDone.Outcome)
			}
			if m.TLSHandshakeDone.ConnID == 0 {
				t.Fatal("expected a nonzero ConnID")
			}
		}
	}
	if start != 1 || done != 1 {
		t.Fatal("unexpected number of handshake events", start, done)
	}
}

func TestNegotiatedProtocolWithoutTLS(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	if _, ok := NegotiatedProtocol(client); ok {
		t.Fatal("expected false for a non TLS conn")
	}
	if _, ok := NegotiatedProtocol(tls.Client(client, &tls.Config{})); ok {
		t.Fatal("expected false before the handshake")
	}
}

// TestConcurrentDialsRacingSetter checks that all the attempts observe
// the same snapshot: either all before or all after the setter call.
func TestConcurrentDialsRacingSetter(t *testing.T) {
	srv := newServer(t, tls.VersionTLS12, tls.VersionTLS12)
	options := newOptions(t, srv)
	if err := options.SetEnabledProtocols(protocolset.TLS12); err != nil {
		t.Fatal(err)
	}
	dialer := newTLSDialer(&savinghandler.Handler{}, options)
	const attempts = 16
	var (
		eg        errgroup.Group
		mu        sync.Mutex
		successes int
		setErr    error
	)
	for i := 0; i < attempts; i++ {
		eg.Go(func() error {
			conn, err := dialer.DialTLS("tcp", srv.Listener.Addr().String())
			if err != nil {
				return nil
			}
			defer conn.Close()
			if version, _ := NegotiatedProtocol(conn); version != protocolset.VersionTLS12 {
				return errors.New("negotiated an unexpected version")
			}
			mu.Lock()
			successes++
			mu.Unlock()
			return nil
		})
	}
	eg.Go(func() error {
		setErr = options.SetEnabledProtocols(protocolset.TLS13)
		return nil
	})
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}
	switch {
	case setErr == nil && successes != 0:
		t.Fatal("some attempt used the old value after the setter succeeded")
	case setErr != nil && successes != attempts:
		t.Fatal("some attempt did not use the frozen value", successes)
	}
}
