// Package httpx contains net/http extensions. It defines the Client and
// the Transport replacements that restrict the TLS protocol versions
// used by HTTPS connections. They emit measurements collected at network
// and TLS level using a specific handler.
package httpx

import (
	"net/http"
	"time"

	"github.com/ooni/sslprotocols/internal/dnsconf"
	"github.com/ooni/sslprotocols/internal/httptransport"
	"github.com/ooni/sslprotocols/model"
	"github.com/ooni/sslprotocols/protocolset"
	"github.com/ooni/sslprotocols/tlsconf"
)

// Transport performs measurements during HTTP round trips.
type Transport struct {
	transport *httptransport.Transport
}

// NewTransport creates a new Transport. The handler will receive
// the measurements. The time of the events is relative to when this
// function has been called.
func NewTransport(handler model.Handler) *Transport {
	return &Transport{
		transport: httptransport.NewTransport(time.Now(), handler),
	}
}

// RoundTrip executes a single HTTP transaction, returning
// a Response for the provided Request.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.transport.RoundTrip(req)
}

// CloseIdleConnections closes any connections which were previously connected
// from previous requests but are now sitting idle in a "keep-alive" state. It
// does not interrupt any connections currently in use.
func (t *Transport) CloseIdleConnections() {
	t.transport.CloseIdleConnections()
}

// ConfigureDNS configures the DNS resolver. The network argument is
// one of "system", "udp" and "tcp". For "udp" and "tcp", the address
// is the resolver endpoint, where the port defaults to 53.
func (t *Transport) ConfigureDNS(network, address string) error {
	return dnsconf.ConfigureDNS(t.transport, network, address)
}

// SslOptions returns the TLS options. Configure them before the first
// HTTPS request: after that every setter fails.
func (t *Transport) SslOptions() *tlsconf.Options {
	return t.transport.Options()
}

// Client is a replacement for http.Client.
type Client struct {
	// HTTPClient is the underlying client. Pass this client to existing code
	// that expects an *http.HTTPClient. For this reason we can't embed it.
	HTTPClient *http.Client

	// Transport is the transport configured by NewClient to be used
	// by the HTTPClient field.
	Transport *Transport
}

// NewClient creates a new client instance.
func NewClient(handler model.Handler) *Client {
	transport := NewTransport(handler)
	return &Client{
		HTTPClient: &http.Client{
			Transport: transport,
		},
		Transport: transport,
	}
}

// ConfigureDNS is exactly like Transport.ConfigureDNS.
func (c *Client) ConfigureDNS(network, address string) error {
	return c.Transport.ConfigureDNS(network, address)
}

// SslOptions is exactly like Transport.SslOptions.
func (c *Client) SslOptions() *tlsconf.Options {
	return c.Transport.SslOptions()
}

// NegotiatedProtocol returns the TLS protocol of the connection that
// produced resp. It returns false for cleartext responses.
func NegotiatedProtocol(resp *http.Response) (protocolset.Version, bool) {
	if resp == nil || resp.TLS == nil || !resp.TLS.HandshakeComplete {
		return 0, false
	}
	return protocolset.Version(resp.TLS.Version), true
}
