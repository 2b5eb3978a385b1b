// Package logger is a handler that emits logs
package logger

import (
	"github.com/apex/log"
	"github.com/ooni/sslprotocols/model"
)

// Handler is a handler that logs events.
type Handler struct {
	logger log.Interface
}

// NewHandler returns a new logging handler.
func NewHandler(logger log.Interface) *Handler {
	return &Handler{logger: logger}
}

// OnMeasurement logs the specific measurement
func (h *Handler) OnMeasurement(m model.Measurement) {
	// DNS
	if m.Resolve != nil {
		h.logger.WithFields(log.Fields{
			"addresses": m.Resolve.Addresses,
			"dialID":    m.Resolve.DialID,
			"elapsed":   m.Resolve.Time,
			"error":     m.Resolve.Error,
			"hostname":  m.Resolve.Hostname,
		}).Debug("dns: resolution done")
	}

	// Syscalls
	if m.Connect != nil {
		h.logger.WithFields(log.Fields{
			"blockedFor":    m.Connect.Duration,
			"connID":        m.Connect.ConnID,
			"dialID":        m.Connect.DialID,
			"elapsed":       m.Connect.Time,
			"error":         m.Connect.Error,
			"network":       m.Connect.Network,
			"remoteAddress": m.Connect.RemoteAddress,
		}).Debug("net: connect done")
	}
	if m.Read != nil {
		h.logger.WithFields(log.Fields{
			"blockedFor": m.Read.Duration,
			"connID":     m.Read.ConnID,
			"elapsed":    m.Read.Time,
			"numBytes":   m.Read.NumBytes,
		}).Debug("net: read done")
	}
	if m.Write != nil {
		h.logger.WithFields(log.Fields{
			"blockedFor": m.Write.Duration,
			"connID":     m.Write.ConnID,
			"elapsed":    m.Write.Time,
			"numBytes":   m.Write.NumBytes,
		}).Debug("net: write done")
	}
	if m.Close != nil {
		h.logger.WithFields(log.Fields{
			"blockedFor": m.Close.Duration,
			"connID":     m.Close.ConnID,
			"elapsed":    m.Close.Time,
		}).Debug("net: close done")
	}

	// TLS
	if m.TLSHandshakeStart != nil {
		h.logger.WithFields(log.Fields{
			"connID":     m.TLSHandshakeStart.ConnID,
			"elapsed":    m.TLSHandshakeStart.Time,
			"enabled":    m.TLSHandshakeStart.Config.EnabledProtocols.String(),
			"serverName": m.TLSHandshakeStart.Config.ServerName,
		}).Debug("tls: start handshake")
	}
	if m.TLSHandshakeDone != nil {
		fields := log.Fields{
			"alpn":       m.TLSHandshakeDone.ConnectionState.NegotiatedProtocol,
			"blockedFor": m.TLSHandshakeDone.Duration,
			"connID":     m.TLSHandshakeDone.ConnID,
			"elapsed":    m.TLSHandshakeDone.Time,
			"error":      m.TLSHandshakeDone.Error,
			"outcome":    m.TLSHandshakeDone.Outcome,
		}
		if v := m.TLSHandshakeDone.ConnectionState.Version; v != 0 {
			fields["version"] = v.String()
		}
		h.logger.WithFields(fields).Debug("tls: handshake done")
	}
}
