// Package tracing allows to trace events.
package tracing

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/ooni/sslprotocols/model"
)

type contextkey struct{}

// Info contains information useful for tracing
type Info struct {
	Beginning time.Time
	ConnID    int64
	Handler   model.Handler
}

// EmitTLSHandshakeStart emits the TLSHandshakeStartEvent event
func (info *Info) EmitTLSHandshakeStart(config model.TLSConfig) {
	info.Handler.OnMeasurement(model.Measurement{
		TLSHandshakeStart: &model.TLSHandshakeStartEvent{
			Config: config,
			ConnID: info.ConnID,
			Time:   time.Since(info.Beginning),
		},
	})
}

// EmitTLSHandshakeDone emits the TLSHandshakeDoneEvent event. The
// state is nil when the handshake did not get far enough.
func (info *Info) EmitTLSHandshakeDone(
	config model.TLSConfig, state *tls.ConnectionState,
	outcome string, duration time.Duration, err error,
) {
	info.Handler.OnMeasurement(model.Measurement{
		TLSHandshakeDone: &model.TLSHandshakeDoneEvent{
			Config:          config,
			ConnectionState: safeConnState(state),
			ConnID:          info.ConnID,
			Duration:        duration,
			Error:           err,
			Outcome:         outcome,
			Time:            time.Since(info.Beginning),
		},
	})
}

func safeConnState(state *tls.ConnectionState) (out model.TLSConnectionState) {
	if state != nil {
		out = model.NewTLSConnectionState(*state)
	}
	return
}

// WithInfo returns a copy of ctx with the specific tracing info
func WithInfo(ctx context.Context, info *Info) context.Context {
	if info == nil {
		panic("nil info") // like httptrace.WithClientTrace
	}
	return context.WithValue(ctx, contextkey{}, info)
}

// ContextInfo returns the trace info with the context.
func ContextInfo(ctx context.Context) *Info {
	ip, _ := ctx.Value(contextkey{}).(*Info)
	return ip
}
