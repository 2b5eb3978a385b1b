// Package oodns is OONI's DNS client. We manually create and submit
// queries using github.com/miekg/dns and we send them using one of
// the transports in this package.
package oodns

import (
	"context"
	"errors"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
)

// RoundTripper sends a DNS query and returns the raw reply.
type RoundTripper interface {
	RoundTrip(ctx context.Context, query []byte) (reply []byte, err error)
}

// Client is OONI's DNS client. It implements model.DNSResolver.
type Client struct {
	transport RoundTripper
}

// NewClient creates a new OONI DNS client instance.
func NewClient(t RoundTripper) *Client {
	return &Client{transport: t}
}

// These errors are returned by LookupHost. ErrNoSuchHost ends with
// "no such host" like the errors of the system resolver.
var (
	ErrNoSuchHost    = errors.New("oodns: no such host")
	ErrQueryFailed   = errors.New("oodns: query failed")
	ErrNoResponse    = errors.New("oodns: no response returned")
	ErrEmptyHostname = errors.New("oodns: empty hostname")
)

// LookupHost returns the IP addresses of a host. We send the A and
// the AAAA queries in parallel.
func (c *Client) LookupHost(ctx context.Context, hostname string) ([]string, error) {
	if strings.TrimSpace(hostname) == "" {
		return nil, ErrEmptyHostname
	}
	var (
		addrsA, addrsAAAA []string
		errA, errAAAA     error
		eg                errgroup.Group
	)
	eg.Go(func() error {
		addrsA, errA = c.lookup(ctx, hostname, dns.TypeA)
		return nil
	})
	eg.Go(func() error {
		addrsAAAA, errAAAA = c.lookup(ctx, hostname, dns.TypeAAAA)
		return nil
	})
	eg.Wait()
	return lookupHostResult(append(addrsA, addrsAAAA...), errA, errAAAA)
}

func (c *Client) lookup(ctx context.Context, hostname string, qtype uint16) ([]string, error) {
	reply, err := c.roundTrip(ctx, newQueryWithQuestion(dns.Question{
		Name:   dns.Fqdn(hostname),
		Qtype:  qtype,
		Qclass: dns.ClassINET,
	}))
	if err != nil {
		return nil, err
	}
	var addrs []string
	for _, answer := range reply.Answer {
		switch rr := answer.(type) {
		case *dns.A:
			addrs = append(addrs, rr.A.String())
		case *dns.AAAA:
			addrs = append(addrs, rr.AAAA.String())
		}
	}
	return addrs, nil
}

func lookupHostResult(addrs []string, errA, errAAAA error) ([]string, error) {
	if len(addrs) > 0 {
		return addrs, nil
	}
	if errA != nil {
		return nil, errA
	}
	if errAAAA != nil {
		return nil, errAAAA
	}
	return nil, ErrNoResponse
}

func newQueryWithQuestion(q dns.Question) (query *dns.Msg) {
	query = new(dns.Msg)
	query.Id = dns.Id()
	query.RecursionDesired = true
	query.Question = make([]dns.Question, 1)
	query.Question[0] = q
	return
}

func (c *Client) roundTrip(ctx context.Context, query *dns.Msg) (*dns.Msg, error) {
	return c.roundTripEx(
		ctx, query, func(msg *dns.Msg) ([]byte, error) {
			return msg.Pack()
		},
		func(t RoundTripper, query []byte) (reply []byte, err error) {
			return t.RoundTrip(ctx, query)
		},
		func(msg *dns.Msg, data []byte) (err error) {
			return msg.Unpack(data)
		},
	)
}

// roundTripEx is a mockable implementation of the piece
// of code that performs the DNS round trip.
func (c *Client) roundTripEx(
	ctx context.Context,
	query *dns.Msg,
	pack func(msg *dns.Msg) ([]byte, error),
	roundTrip func(t RoundTripper, query []byte) (reply []byte, err error),
	unpack func(msg *dns.Msg, data []byte) (err error),
) (reply *dns.Msg, err error) {
	var (
		querydata []byte
		replydata []byte
	)
	querydata, err = pack(query)
	if err != nil {
		return
	}
	replydata, err = roundTrip(c.transport, querydata)
	if err != nil {
		return
	}
	reply = new(dns.Msg)
	err = unpack(reply, replydata)
	if err != nil {
		return
	}
	switch reply.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		err = ErrNoSuchHost
	default:
		err = ErrQueryFailed
	}
	return
}
