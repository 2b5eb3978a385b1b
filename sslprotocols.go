// Package sslprotocols lets callers restrict which TLS protocol
// versions outbound connections may use.
//
// This package provides a replacement for net.Dialer that can Dial,
// DialContext, DialTLS and DialTLSContext. The TLS methods honour the
// protocols enabled through SslOptions and fail with a *model.ErrWrapper
// when the peer cannot speak any of them. During its lifecycle the
// Dialer emits Measurements to the configured model.Handler.
//
// See package httpx for the equivalent HTTP client.
package sslprotocols

import (
	"context"
	"net"
	"time"

	"github.com/ooni/sslprotocols/internal/dialer/dnsdialer"
	"github.com/ooni/sslprotocols/internal/dialer/tlsdialer"
	"github.com/ooni/sslprotocols/internal/dnsconf"
	"github.com/ooni/sslprotocols/internal/resolver"
	"github.com/ooni/sslprotocols/model"
	"github.com/ooni/sslprotocols/protocolset"
	"github.com/ooni/sslprotocols/tlsconf"
)

// Dialer performs measurements while dialing.
type Dialer struct {
	dialer    *dnsdialer.Dialer
	options   *tlsconf.Options
	resolver  *resolver.Switchable
	tlsDialer *tlsdialer.TLSDialer
}

// NewDialer returns a new Dialer instance.
func NewDialer(handler model.Handler) *Dialer {
	beginning := time.Now()
	d := &Dialer{
		options:  tlsconf.New(),
		resolver: new(resolver.Switchable),
	}
	d.dialer = dnsdialer.New(beginning, handler, d.resolver, new(net.Dialer))
	d.tlsDialer = tlsdialer.New(beginning, handler, d.dialer, d.options)
	return d
}

// ConfigureDNS configures the DNS resolver. The network argument
// selects the type of resolver. The address argument indicates the
// resolver address and depends on the network. The following is a
// list of all the possible network values:
//
// - "system": we use the system resolver and ignore the address.
//
// - "udp": indicates that we should send queries using UDP. In this
// case the address is a host, port UDP endpoint.
//
// - "tcp": like UDP but we use DNS over TCP.
//
// Examples
//
//	d.ConfigureDNS("udp", "8.8.8.8:53")
//	d.ConfigureDNS("tcp", "8.8.8.8:53")
func (d *Dialer) ConfigureDNS(network, address string) error {
	return dnsconf.ConfigureDNS(d.resolver, network, address)
}

// NewResolver returns a new resolver using the same network and
// address semantics of ConfigureDNS.
func (d *Dialer) NewResolver(network, address string) (model.DNSResolver, error) {
	return resolver.New(network, address)
}

// SslOptions returns the TLS options. Configure them before the first
// TLS connection attempt: after that every setter fails.
func (d *Dialer) SslOptions() *tlsconf.Options {
	return d.options
}

// Dial creates a TCP or UDP connection. See net.Dial docs.
func (d *Dialer) Dial(network, address string) (net.Conn, error) {
	return d.dialer.Dial(network, address)
}

// DialContext is like Dial but the context allows to interrupt a
// pending connection attempt at any time.
func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d.dialer.DialContext(ctx, network, address)
}

// DialTLS is like Dial, but creates TLS connections.
func (d *Dialer) DialTLS(network, address string) (net.Conn, error) {
	return d.tlsDialer.DialTLS(network, address)
}

// DialTLSContext is like DialTLS, but with context.
func (d *Dialer) DialTLSContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d.tlsDialer.DialTLSContext(ctx, network, address)
}

// NegotiatedProtocol returns the protocol negotiated by a connection
// returned by DialTLS. It returns false for any other connection.
func NegotiatedProtocol(conn net.Conn) (protocolset.Version, bool) {
	return tlsdialer.NegotiatedProtocol(conn)
}
