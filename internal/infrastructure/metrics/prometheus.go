// Package metrics implementa los contadores del motor sobre Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jhoicas/inventario-conciliacion/internal/application/inventory"
	"github.com/jhoicas/inventario-conciliacion/internal/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ inventory.Metrics = (*Prometheus)(nil)

// Prometheus contadores del ledger, de las máquinas de estado y de las peticiones HTTP.
type Prometheus struct {
	gatherer prometheus.Gatherer

	ledgerDeltas        *prometheus.CounterVec
	transferTransitions *prometheus.CounterVec
	correctionChanges   *prometheus.CounterVec
	ambiguousMatches    prometheus.Counter
	requestCounter      *prometheus.CounterVec
	requestLatency      *prometheus.HistogramVec
}

// New registra las métricas en un registro propio (no el global, para poder instanciarlo en tests).
func New(namespace string) *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		gatherer: reg,
		ledgerDeltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_deltas_total",
			Help:      "Operaciones sobre el ledger por resultado (applied, rejected, duplicate).",
		}, []string{"result"}),
		transferTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_transitions_total",
			Help:      "Traslados que llegaron a cada estado.",
		}, []string{"status"}),
		correctionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correction_transitions_total",
			Help:      "Correcciones que llegaron a cada estado.",
		}, []string{"status"}),
		ambiguousMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ambiguous_matches_total",
			Help:      "Ítems de corrección con más de una línea candidata.",
		}),
		requestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Peticiones HTTP por método, ruta y estado.",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		p.ledgerDeltas,
		p.transferTransitions,
		p.correctionChanges,
		p.ambiguousMatches,
		p.requestCounter,
		p.requestLatency,
		collectors.NewGoCollector(),
	)
	return p
}

func (p *Prometheus) LedgerDelta(result string) {
	p.ledgerDeltas.WithLabelValues(result).Inc()
}

func (p *Prometheus) TransferTransition(to entity.TransferStatus) {
	p.transferTransitions.WithLabelValues(string(to)).Inc()
}

func (p *Prometheus) CorrectionTransition(to entity.CorrectionStatus) {
	p.correctionChanges.WithLabelValues(string(to)).Inc()
}

func (p *Prometheus) AmbiguousMatch() {
	p.ambiguousMatches.Inc()
}

// ObserveHTTP registra una petición ya respondida.
func (p *Prometheus) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	p.requestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.requestLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler expone el registro en formato texto de Prometheus.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Gatherer para tests.
func (p *Prometheus) Gatherer() prometheus.Gatherer {
	return p.gatherer
}
