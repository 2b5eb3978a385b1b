// Package resolver contains code to create a resolver
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/ooni/sslprotocols/internal/oodns"
	"github.com/ooni/sslprotocols/model"
)

// ErrUnsupportedNetwork indicates that we don't support a DNS network.
var ErrUnsupportedNetwork = errors.New("resolver: unsupported network")

// New creates a new resolver. The network is one of "system", "udp"
// and "tcp". The address is ignored for "system" and defaults to port
// 53 for the other networks when no port is specified.
func New(network, address string) (model.DNSResolver, error) {
	switch network {
	case "system":
		return new(net.Resolver), nil
	case "udp":
		return oodns.NewClient(oodns.NewTransportUDP(
			withDefaultPort(address), (&net.Dialer{}).DialContext,
		)), nil
	case "tcp":
		return oodns.NewClient(oodns.NewTransportTCP(
			withDefaultPort(address), (&net.Dialer{}).DialContext,
		)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, network)
	}
}

func withDefaultPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err != nil {
		return net.JoinHostPort(address, "53")
	}
	return address
}

// Switchable is a resolver that may be replaced while in use. The
// zero value uses the system resolver.
type Switchable struct {
	mu       sync.RWMutex
	resolver model.DNSResolver
}

// LookupHost implements model.DNSResolver.LookupHost
func (r *Switchable) LookupHost(ctx context.Context, hostname string) ([]string, error) {
	r.mu.RLock()
	resolver := r.resolver
	r.mu.RUnlock()
	if resolver == nil {
		resolver = new(net.Resolver)
	}
	return resolver.LookupHost(ctx, hostname)
}

// SetResolver replaces the underlying resolver.
func (r *Switchable) SetResolver(resolver model.DNSResolver) {
	r.mu.Lock()
	r.resolver = resolver
	r.mu.Unlock()
}
