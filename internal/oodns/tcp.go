package oodns

import (
	"context"
	"io"
	"net"
	"time"
)

type tcpTransport struct {
	address     string
	dialContext DialContextFunc
}

// NewTransportTCP creates a new TCP Transport
func NewTransportTCP(address string, dialContext DialContextFunc) RoundTripper {
	return &tcpTransport{
		address:     address,
		dialContext: dialContext,
	}
}

// RoundTrip sends a request and receives a response.
func (t *tcpTransport) RoundTrip(
	ctx context.Context, query []byte,
) (reply []byte, err error) {
	var (
		msg  []byte
		conn net.Conn
	)
	conn, err = t.dialContext(ctx, "tcp", t.address)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if err = conn.SetDeadline(deadline(ctx, 10*time.Second)); err != nil {
		return nil, err
	}
	// Write request
	msg = append(msg, byte(len(query)>>8))
	msg = append(msg, byte(len(query)))
	msg = append(msg, query...)
	if _, err = conn.Write(msg); err != nil {
		return nil, err
	}
	// Read response
	header := make([]byte, 2)
	if _, err = io.ReadFull(conn, header); err != nil {
		return nil, err
	}
	length := int(header[0])<<8 | int(header[1])
	reply = make([]byte, length)
	if _, err = io.ReadFull(conn, reply); err != nil {
		return nil, err
	}
	return reply, nil
}
