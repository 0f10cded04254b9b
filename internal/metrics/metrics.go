package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the reference backend's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	Logins             *prometheus.CounterVec
	TokenRefreshes     *prometheus.CounterVec
	Registrations      prometheus.Counter
	ProfilesProvisions prometheus.Counter
	RequestDuration    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers every collector with reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "racoonsmeal_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		TokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "racoonsmeal_token_refreshes_total",
			Help: "Access token refresh attempts by result",
		}, []string{"result"}),
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "racoonsmeal_registrations_total",
			Help: "Accounts created",
		}),
		ProfilesProvisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "racoonsmeal_profiles_provisioned_total",
			Help: "Profiles created by the empty-body provisioning call",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "racoonsmeal_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		gatherer: reg,
	}
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

func (m *Metrics) ObserveLogin(ok bool) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) ObserveRefresh(ok bool) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) IncrementRegistrations() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

func (m *Metrics) IncrementProfilesProvisioned() {
	if m == nil {
		return
	}
	m.ProfilesProvisions.Inc()
}

func (m *Metrics) ObserveRequest(route string, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
