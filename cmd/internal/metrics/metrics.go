// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	logins               *prometheus.CounterVec
	sessionValidations   *prometheus.CounterVec
	connectMints         *prometheus.CounterVec
	connectVerifications *prometheus.CounterVec
	backgroundTasks      *prometheus.CounterVec
	sweepDeleted         *prometheus.CounterVec
	sweepFailures        *prometheus.CounterVec
	registrations        *prometheus.CounterVec
}

// New builds the collectors and registers them together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_logins_total",
			Help: "Login attempts by result code.",
		}, []string{"result"}),
		sessionValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_session_validations_total",
			Help: "Session lookups by result code.",
		}, []string{"result"}),
		connectMints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_connect_mints_total",
			Help: "doconnect requests by result code.",
		}, []string{"result"}),
		connectVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_connect_verifications_total",
			Help: "verifyconnect requests by result code.",
		}, []string{"result"}),
		backgroundTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_background_tasks_total",
			Help: "Post-response side effects by task and outcome.",
		}, []string{"task", "result"}),
		sweepDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_sweep_deleted_total",
			Help: "Rows removed by the expiry sweeper.",
		}, []string{"target"}),
		sweepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_sweep_failures_total",
			Help: "Failed sweeper passes per target.",
		}, []string{"target"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_registrations_total",
			Help: "Registration notifications by outcome.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins,
		m.sessionValidations,
		m.connectMints,
		m.connectVerifications,
		m.backgroundTasks,
		m.sweepDeleted,
		m.sweepFailures,
		m.registrations,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Login records one login attempt by result code.
func (m *Metrics) Login(result string) { m.logins.WithLabelValues(result).Inc() }

func (m *Metrics) SessionValidation(result string) {
	m.sessionValidations.WithLabelValues(result).Inc()
}

func (m *Metrics) ConnectMint(result string) { m.connectMints.WithLabelValues(result).Inc() }

func (m *Metrics) ConnectVerification(result string) {
	m.connectVerifications.WithLabelValues(result).Inc()
}

// TaskDone implements tasks.Observer.
func (m *Metrics) TaskDone(name string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.backgroundTasks.WithLabelValues(name, result).Inc()
}

// Swept records one sweeper pass over target.
func (m *Metrics) Swept(target string, deleted int64, err error) {
	if err != nil {
		m.sweepFailures.WithLabelValues(target).Inc()
		return
	}
	m.sweepDeleted.WithLabelValues(target).Add(float64(deleted))
}

// Registration records one processed notification.
func (m *Metrics) Registration(result string) { m.registrations.WithLabelValues(result).Inc() }
