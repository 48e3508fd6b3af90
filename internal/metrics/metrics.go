// metrics — prometheus-метрики клиента и шлюза.
// Регистрируются в DefaultRegisterer и отдаются через promhttp.Handler() на /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты refresh.
const (
	RefreshOK      = "ok"
	RefreshShared  = "shared"
	RefreshFailed  = "failed"
	RefreshNoToken = "no_token"
)

var (
	// ClientRequests — исходящие запросы к бэкенду по методу и классу статуса.
	ClientRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kelibe",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Outgoing backend requests by method and status class.",
	}, []string{"method", "status"})

	// ClientLatency — длительность исходящих запросов.
	ClientLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kelibe",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Outgoing backend request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	// Refreshes — попытки обновления access-токена по результату.
	Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kelibe",
		Subsystem: "session",
		Name:      "refresh_total",
		Help:      "Access token refresh attempts by result.",
	}, []string{"result"})

	// GuardDecisions — решения route guard: serve, loading, signin, landing.
	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kelibe",
		Subsystem: "gateway",
		Name:      "guard_decisions_total",
		Help:      "Route guard decisions.",
	}, []string{"decision"})
)

// StatusClass сворачивает HTTP-статус в класс: 2xx, 4xx, ...; 0 — "error"
// (ответ не получен).
func StatusClass(code int) string {
	if code <= 0 {
		return "error"
	}

	return strconv.Itoa(code/100) + "xx"
}
