// Package emittingtlshandshaker contains an event-emitting TLS handshaker
package emittingtlshandshaker

import (
	"context"
	"net"
	"time"

	"github.com/ooni/sslprotocols/internal/tlshandshaker"
	"github.com/ooni/sslprotocols/internal/tracing"
	"github.com/ooni/sslprotocols/model"
)

// Handshaker is the event emitting TLS handshaker
type Handshaker struct {
	handshaker tlshandshaker.Model
}

// New creates a new event emitting TLS handshaker
func New(handshaker tlshandshaker.Model) *Handshaker {
	return &Handshaker{handshaker: handshaker}
}

// Do performs the handshake using the wrapped handshaker. When the
// context carries tracing info, it emits a TLSHandshakeStart event
// before the handshake and a TLSHandshakeDone event after it.
func (h *Handshaker) Do(
	ctx context.Context, conn net.Conn, params tlshandshaker.Params,
) tlshandshaker.Outcome {
	info := tracing.ContextInfo(ctx)
	if info == nil {
		return h.handshaker.Do(ctx, conn, params)
	}
	config := model.TLSConfig{
		EnabledProtocols: params.Protocols,
		NextProtos:       params.NextProtos,
		ServerName:       params.ServerName,
	}
	info.EmitTLSHandshakeStart(config)
	start := time.Now()
	outcome := h.handshaker.Do(ctx, conn, params)
	info.EmitTLSHandshakeDone(
		config, outcome.State, outcome.Kind.String(), time.Since(start), outcome.Err)
	return outcome
}
