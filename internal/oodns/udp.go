package oodns

import (
	"context"
	"net"
	"time"
)

// DialContextFunc is the type of net.Dialer.DialContext.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

type udpTransport struct {
	address     string
	dialContext DialContextFunc
}

// NewTransportUDP creates a new UDP transport
func NewTransportUDP(address string, dialContext DialContextFunc) RoundTripper {
	return &udpTransport{
		dialContext: dialContext,
		address:     address,
	}
}

// RoundTrip sends a request and receives a response.
func (t *udpTransport) RoundTrip(
	ctx context.Context, query []byte,
) (reply []byte, err error) {
	var conn net.Conn
	conn, err = t.dialContext(ctx, "udp", t.address)
	if err != nil {
		return
	}
	defer conn.Close()
	err = conn.SetDeadline(deadline(ctx, 3*time.Second))
	if err != nil {
		return
	}
	_, err = conn.Write(query)
	if err != nil {
		return
	}
	reply = make([]byte, 1<<17)
	var n int
	n, err = conn.Read(reply)
	if err != nil {
		return nil, err
	}
	return reply[:n], nil
}

// deadline returns the earliest between the context deadline
// and now plus timeout.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		d = cd
	}
	return d
}
