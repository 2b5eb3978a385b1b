// Package savinghandler contains a handler that saves measurements
package savinghandler

import (
	"sync"

	"github.com/ooni/sslprotocols/model"
)

// Handler is a handler that saves measurements
type Handler struct {
	All []model.Measurement
	mu  sync.Mutex
}

// OnMeasurement saves the emitted measurement
func (h *Handler) OnMeasurement(m model.Measurement) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.All = append(h.All, m)
}

// Snapshot returns a copy of the measurements saved so far. Use it
// when events may still arrive from background goroutines.
func (h *Handler) Snapshot() []model.Measurement {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.Measurement(nil), h.All...)
}
