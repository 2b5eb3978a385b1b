package httpx_test

import (
	"crypto/tls"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ooni/sslprotocols/handlers"
	"github.com/ooni/sslprotocols/httpx"
	"github.com/ooni/sslprotocols/model"
	"github.com/ooni/sslprotocols/protocolset"
)

func newServer(t *testing.T, min, max uint16) *httptest.Server {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello"))
		}),
	)
	srv.TLS = &tls.Config{MinVersion: min, MaxVersion: max}
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *httpx.Client {
	path := filepath.Join(t.TempDir(), "cacert.pem")
	data := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: srv.Certificate().Raw,
	})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	client := httpx.NewClient(handlers.NoHandler)
	if err := client.SslOptions().SetCABundle(path); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(client.Transport.CloseIdleConnections)
	return client
}

func fetch(client *httpx.Client, URL string) (*http.Response, error) {
	resp, err := client.HTTPClient.Get(URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if _, err := io.ReadAll(resp.Body); err != nil {
		return nil, err
	}
	return resp, nil
}

func TestTLS12Loopback(t *testing.T) {
	srv := newServer(t, tls.VersionTLS12, tls.VersionTLS12)
	client := newClient(t, srv)
	if err := client.SslOptions().SetEnabledProtocols(protocolset.TLS12); err != nil {
		t.Fatal(err)
	}
	resp, err := fetch(client, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	version, ok := httpx.NegotiatedProtocol(resp)
	if !ok || version != protocolset.VersionTLS12 {
		t.Fatal("unexpected negotiated protocol", version)
	}
	err = client.SslOptions().SetEnabledProtocols(protocolset.TLS13)
	if !errors.Is(err, model.ErrConfigurationFrozen) {
		t.Fatal("expected the options to be frozen", err)
	}
	// The second request reuses the connection, which keeps TLSv1.2.
	resp, err = fetch(client, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if version, _ := httpx.NegotiatedProtocol(resp); version != protocolset.VersionTLS12 {
		t.Fatal("unexpected negotiated protocol", version)
	}
}

func TestMismatchFailsWithConnectionError(t *testing.T) {
	srv := newServer(t, tls.VersionTLS13, tls.VersionTLS13)
	client := newClient(t, srv)
	if err := client.SslOptions().SetEnabledProtocols(protocolset.TLS12); err != nil {
		t.Fatal(err)
	}
	resp, err := fetch(client, srv.URL)
	if resp != nil {
		t.Fatal("expected a nil response here")
	}
	if !model.IsConnectionFailure(err) {
		t.Fatal("expected a connection failure", err)
	}
}

func TestUnsupportedSet(t *testing.T) {
	srv := newServer(t, 0, 0)
	client := newClient(t, srv)
	if err := client.SslOptions().SetEnabledProtocols(protocolset.SSL2); err != nil {
		t.Fatal(err)
	}
	_, err := fetch(client, srv.URL)
	if !errors.Is(err, model.ErrUnsupportedProtocolSet) {
		t.Fatal("not the error we expected", err)
	}
}

func TestConfigureDNS(t *testing.T) {
	client := httpx.NewClient(handlers.NoHandler)
	if err := client.ConfigureDNS("system", ""); err != nil {
		t.Fatal(err)
	}
	if err := client.ConfigureDNS("udp", "127.0.0.1"); err != nil {
		t.Fatal(err)
	}
	if err := client.ConfigureDNS("antani", ""); err == nil {
		t.Fatal("expected an error here")
	}
}

func TestNegotiatedProtocolCleartext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {}),
	)
	defer srv.Close()
	client := httpx.NewClient(handlers.NoHandler)
	defer client.Transport.CloseIdleConnections()
	resp, err := fetch(client, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := httpx.NegotiatedProtocol(resp); ok {
		t.Fatal("expected no TLS protocol")
	}
	if _, ok := httpx.NegotiatedProtocol(nil); ok {
		t.Fatal("expected no TLS protocol")
	}
}
