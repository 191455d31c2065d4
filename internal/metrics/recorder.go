// Package metrics records what the client does with requests and tokens.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK             = "ok"
	OutcomeErrorStatus    = "error_status"
	OutcomeUnauthorized   = "unauthorized"
	OutcomeTransportError = "transport_error"
	OutcomeCleared        = "cleared"

	RefreshSucceeded = "succeeded"
	RefreshRejected  = "rejected"
	RefreshFailed    = "failed"
	RefreshSkipped   = "skipped"
)

type Recorder interface {
	RequestDispatched(method string)
	RequestSettled(outcome string)
	Refreshed(outcome string)
	Replayed()
	LoggedOut()
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) RequestDispatched(string) {}
func (NoopRecorder) RequestSettled(string)    {}
func (NoopRecorder) Refreshed(string)         {}
func (NoopRecorder) Replayed()                {}
func (NoopRecorder) LoggedOut()               {}

type PrometheusRecorder struct {
	registry   *prometheus.Registry
	dispatched *prometheus.CounterVec
	settled    *prometheus.CounterVec
	refreshes  *prometheus.CounterVec
	replays    prometheus.Counter
	logouts    prometheus.Counter
}

func (p *PrometheusRecorder) RequestDispatched(method string) {
	p.dispatched.WithLabelValues(method).Inc()
}

func (p *PrometheusRecorder) RequestSettled(outcome string) {
	p.settled.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) Refreshed(outcome string) {
	p.refreshes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) Replayed() {
	p.replays.Inc()
}

func (p *PrometheusRecorder) LoggedOut() {
	p.logouts.Inc()
}

// Handler exposes the collected metrics in the Prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func NewPrometheusRecorder(namespace string) (*PrometheusRecorder, error) {
	p := PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_dispatched_total",
			Help:      "Requests handed to the transport, including replays.",
		}, []string{"method"}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_settled_total",
			Help:      "Requests whose result was delivered to the caller.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Access token refresh attempts.",
		}, []string{"outcome"}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_replayed_total",
			Help:      "Requests replayed after a refresh.",
		}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Credential wipes after a rejected refresh.",
		}),
	}
	for _, c := range []prometheus.Collector{p.dispatched, p.settled, p.refreshes, p.replays, p.logouts} {
		if err := p.registry.Register(c); err != nil {
			return &PrometheusRecorder{}, err
		}
	}
	return &p, nil
}
