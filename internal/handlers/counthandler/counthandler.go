// Package counthandler contains a handler that counts
package counthandler

import (
	"sync/atomic"

	"github.com/ooni/sslprotocols/model"
)

// Handler is the count handler. Read the counters with atomic.LoadInt64
// while events may still be emitted.
type Handler struct {
	Count      int64
	Handshakes int64
}

// OnMeasurement counts the number of emitted measurements and
// of completed TLS handshakes
func (h *Handler) OnMeasurement(m model.Measurement) {
	atomic.AddInt64(&h.Count, 1)
	if m.TLSHandshakeDone != nil {
		atomic.AddInt64(&h.Handshakes, 1)
	}
}
