// Package httptransport contains HTTP transport extensions. Here we
// define a http.Transport that dials TLS using our TLS dialer, so that
// every HTTPS connection honours the enabled protocols.
package httptransport

import (
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ooni/sslprotocols/internal/dialer/dnsdialer"
	"github.com/ooni/sslprotocols/internal/dialer/tlsdialer"
	"github.com/ooni/sslprotocols/internal/errwrapper"
	"github.com/ooni/sslprotocols/internal/resolver"
	"github.com/ooni/sslprotocols/model"
	"github.com/ooni/sslprotocols/tlsconf"
	"golang.org/x/net/http2"
)

var nextTransactionID int64

// Transport performs single HTTP transactions.
type Transport struct {
	http.Transport
	options   *tlsconf.Options
	resolver  *resolver.Switchable
	tlsDialer *tlsdialer.TLSDialer
}

// NewTransport creates a new Transport.
func NewTransport(beginning time.Time, handler model.Handler) *Transport {
	options := tlsconf.New()
	switchable := new(resolver.Switchable)
	dialer := dnsdialer.New(beginning, handler, switchable, new(net.Dialer))
	transport := &Transport{
		Transport: http.Transport{
			ExpectContinueTimeout: 1 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
			// No proxy: with a proxy net/http would perform the TLS
			// handshake itself, bypassing DialTLSContext.
			Proxy: nil,
		},
		options:  options,
		resolver: switchable,
	}
	// Configure h2 and make sure that the ALPN we offer when dialing
	// is compatible with upgrading to h2. Because ConfigureTransport only
	// fails when h2 is already configured, we can ignore its return value.
	http2.ConfigureTransport(&transport.Transport)
	transport.tlsDialer = tlsdialer.New(beginning, handler, dialer, options)
	transport.tlsDialer.NextProtos = transport.TLSClientConfig.NextProtos
	transport.DialContext = dialer.DialContext
	transport.DialTLSContext = transport.tlsDialer.DialTLSContext
	return transport
}

// Options returns the TLS options used by this transport.
func (t *Transport) Options() *tlsconf.Options {
	return t.options
}

// SetResolver replaces the resolver used when dialing.
func (t *Transport) SetResolver(r model.DNSResolver) {
	t.resolver.SetResolver(r)
}

// RoundTrip executes a single HTTP transaction, returning
// a Response for the provided Request. Connection errors are
// tagged with the transaction ID.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tid := atomic.AddInt64(&nextTransactionID, 1)
	resp, err := t.Transport.RoundTrip(req)
	var wrapper *model.ErrWrapper
	if err != nil && errors.As(err, &wrapper) {
		err = errwrapper.SafeErrWrapperBuilder{
			Error:         err,
			TransactionID: tid,
		}.MaybeBuild()
	}
	return resp, err
}
