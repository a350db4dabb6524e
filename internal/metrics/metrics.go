// Package metrics exports relay counters to Prometheus.
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/mirror/internal/engine"
)

const namespace = "mirror"

// Relay counts relay events by outcome and envelope kind. It implements
// engine.Observer.
type Relay struct {
	envelopes *prometheus.CounterVec
}

// NewRelay creates the relay counters and registers them with reg.
func NewRelay(reg prometheus.Registerer) (*Relay, error) {
	envelopes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "envelopes_total",
		Help:      "Relay envelopes observed, by outcome and envelope kind.",
	}, []string{"event", "kind"})

	if err := reg.Register(envelopes); err != nil {
		return nil, fmt.Errorf("register envelopes counter: %w", err)
	}
	return &Relay{envelopes: envelopes}, nil
}

// Observe implements engine.Observer.
func (r *Relay) Observe(ev engine.RelayEvent) {
	r.envelopes.WithLabelValues(string(ev.Outcome), string(ev.Envelope.Kind)).Inc()
}

var _ engine.Observer = (*Relay)(nil)

// NewRegistry returns a registry carrying the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the Prometheus exposition format. Collection
// errors are logged and the remaining metrics are still served.
func Handler(reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      errorLog{logger},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// errorLog implements promhttp.Logger.
type errorLog struct {
	logger *slog.Logger
}

func (l errorLog) Println(v ...any) {
	l.logger.Error("metrics collection failed", "error", fmt.Sprint(v...))
}
