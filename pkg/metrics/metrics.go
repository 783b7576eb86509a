package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Metrics exposes a small in-memory counter set for the gateway.
type Metrics struct {
	received   atomic.Int64
	rejected   atomic.Int64
	dispatched atomic.Int64
	failed     atomic.Int64
}

// New returns a zeroed Metrics collector.
func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncReceived()   { m.received.Add(1) }
func (m *Metrics) IncRejected()   { m.rejected.Add(1) }
func (m *Metrics) IncDispatched() { m.dispatched.Add(1) }
func (m *Metrics) IncFailed()     { m.failed.Add(1) }

// Handler exposes the counters as a small JSON document.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"received":%d,"rejected":%d,"dispatched":%d,"failed":%d}`,
			m.received.Load(), m.rejected.Load(), m.dispatched.Load(), m.failed.Load())
	})
}
