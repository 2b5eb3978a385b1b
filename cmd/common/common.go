// Package common contains common flags
package common

import (
	"flag"
	"io"
	"os"

	"github.com/ooni/sslprotocols/model"
	"github.com/ooni/sslprotocols/protocolset"
	"github.com/ooni/sslprotocols/tlsconf"
)

var (
	// FlagDNSAddress is the address of the DNS resolver
	FlagDNSAddress = flag.String("dns-address", "", "Transport dependent address")

	// FlagDNSTransport is the DNS transport
	FlagDNSTransport = flag.String("dns-transport", "system", "DNS transport: system, udp or tcp")

	// FlagHelp is used to request the help screen
	FlagHelp = flag.Bool("help", false, "Print usage")

	// FlagInsecure disables certificate validation
	FlagInsecure = flag.Bool("insecure", false, "Accept any certificate")

	// FlagProtocols is the comma separated list of enabled protocols
	FlagProtocols = flag.String("protocols", "", "Enabled protocols (e.g. TLSv1.2,TLSv1.3)")

	// FlagSNI forces a specific SNI
	FlagSNI = flag.String("sni", "", "Force specific SNI")
)

// Stdout is where the commands write their results.
var Stdout io.Writer = os.Stdout

// DNSConfigurer is something whose resolver we can configure.
type DNSConfigurer interface {
	ConfigureDNS(network, address string) error
}

// Configure applies the common flags to options and to the
// resolver of c.
func Configure(options *tlsconf.Options, c DNSConfigurer) error {
	set, err := protocolset.Parse(*FlagProtocols)
	if err != nil {
		return err
	}
	if err := options.SetEnabledProtocols(set); err != nil {
		return err
	}
	if *FlagInsecure {
		if err := options.SetCertificateValidator(model.AllowAllCertificates); err != nil {
			return err
		}
	}
	if err := options.ForceSpecificSNI(*FlagSNI); err != nil {
		return err
	}
	return c.ConfigureDNS(*FlagDNSTransport, *FlagDNSAddress)
}
