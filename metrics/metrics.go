// Package metrics collects and exposes Prometheus metrics for the
// auth flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/expenso-app/expenso/auth"
)

// Collector implements auth.Recorder over Prometheus counters.
type Collector struct {
	loginSuccess   prometheus.Counter
	loginFail      *prometheus.CounterVec
	refresh        prometheus.Counter
	sessionRenewal prometheus.Counter
	verifyFail     *prometheus.CounterVec
}

var _ auth.Recorder = (*Collector)(nil)

// NewCollector builds a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "expenso_login_success_total",
			Help: "Successful logins.",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "expenso_login_fail_total",
			Help: "Failed logins by reason.",
		}, []string{"reason"}),
		refresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "expenso_token_refresh_total",
			Help: "Access tokens minted from a refresh token.",
		}),
		sessionRenewal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "expenso_session_renewal_total",
			Help: "Session tokens silently renewed by the view guard.",
		}),
		verifyFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "expenso_token_verify_fail_total",
			Help: "Token verification failures by token kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.refresh,
		c.sessionRenewal,
		c.verifyFail,
	)

	return c
}

// RecordLoginSuccess counts a successful login.
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure counts a failed login by reason.
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// RecordRefresh counts an access token refresh.
func (c *Collector) RecordRefresh() {
	c.refresh.Inc()
}

// RecordSessionRenewal counts a silent session renewal.
func (c *Collector) RecordSessionRenewal() {
	c.sessionRenewal.Inc()
}

// RecordVerifyFailure counts a token verification failure.
func (c *Collector) RecordVerifyFailure(kind auth.TokenKind) {
	c.verifyFail.WithLabelValues(string(kind)).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute returns an HTTP handler serving /metrics for
// Prometheus scrapes. It runs on a side listener, never on the app
// port.
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
