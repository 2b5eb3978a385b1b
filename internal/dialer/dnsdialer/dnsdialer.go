// Package dnsdialer contains a dialer with DNS lookups.
package dnsdialer

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/ooni/sslprotocols/internal/dialer/dialerbase"
	"github.com/ooni/sslprotocols/internal/errwrapper"
	"github.com/ooni/sslprotocols/model"
	"go.uber.org/multierr"
)

var nextDialID int64

// Dialer defines the dialer API. We implement the most basic form
// of DNS, but more advanced resolutions are possible.
type Dialer struct {
	beginning time.Time
	dialer    model.Dialer
	handler   model.Handler
	resolver  model.DNSResolver
}

// New creates a new Dialer.
func New(
	beginning time.Time, handler model.Handler,
	resolver model.DNSResolver, dialer model.Dialer,
) (d *Dialer) {
	return &Dialer{
		beginning: beginning,
		dialer:    dialer,
		handler:   handler,
		resolver:  resolver,
	}
}

// Dial creates a TCP or UDP connection. See net.Dial docs.
func (d *Dialer) Dial(network, address string) (net.Conn, error) {
	return d.DialContext(context.Background(), network, address)
}

// DialContext is like Dial but the context allows to interrupt a
// pending connection attempt at any time. We try each resolved
// address in order and return the first connection that works.
func (d *Dialer) DialContext(
	ctx context.Context, network, address string,
) (net.Conn, error) {
	onlyhost, onlyport, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	dialID := atomic.AddInt64(&nextDialID, 1)
	if net.ParseIP(onlyhost) != nil {
		dialer := dialerbase.New(d.beginning, d.handler, d.dialer, dialID)
		return dialer.DialContext(ctx, network, address)
	}
	start := time.Now()
	addrs, err := d.resolver.LookupHost(ctx, onlyhost)
	stop := time.Now()
	err = errwrapper.SafeErrWrapperBuilder{
		DialID:    dialID,
		Error:     err,
		Operation: errwrapper.ResolveOperation,
	}.MaybeBuild()
	d.handler.OnMeasurement(model.Measurement{
		Resolve: &model.ResolveEvent{
			Addresses: addrs,
			DialID:    dialID,
			Duration:  stop.Sub(start),
			Error:     err,
			Hostname:  onlyhost,
			Time:      stop.Sub(d.beginning),
		},
	})
	if err != nil {
		return nil, err
	}
	var errs error
	for _, addr := range addrs {
		dialer := dialerbase.New(d.beginning, d.handler, d.dialer, dialID)
		target := net.JoinHostPort(addr, onlyport)
		conn, err := dialer.DialContext(ctx, network, target)
		if err == nil {
			return conn, nil
		}
		errs = multierr.Append(errs, err)
		if ctx.Err() != nil {
			break // no point in trying other addresses
		}
	}
	if errs == nil {
		errs = &net.DNSError{Err: "no such host", Name: onlyhost}
	}
	// The classification of the first failure wins, while the
	// message still lists every attempt.
	return nil, errwrapper.SafeErrWrapperBuilder{
		DialID:    dialID,
		Error:     errs,
		Operation: errwrapper.ConnectOperation,
	}.MaybeBuild()
}
