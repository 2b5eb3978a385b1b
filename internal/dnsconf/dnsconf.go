// Package dnsconf allows to configure a DNS resolver
package dnsconf

import (
	"github.com/ooni/sslprotocols/internal/resolver"
	"github.com/ooni/sslprotocols/model"
)

// Configurable is a type whose resolver we can replace.
type Configurable interface {
	SetResolver(r model.DNSResolver)
}

// ConfigureDNS configures c to use the resolver for network and
// address. See resolver.New for the supported networks. On failure
// c is left unchanged.
func ConfigureDNS(c Configurable, network, address string) error {
	r, err := resolver.New(network, address)
	if err == nil {
		c.SetResolver(r)
	}
	return err
}
