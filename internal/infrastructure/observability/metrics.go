package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Счётчик вызовов методов репозитория
	RepositoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_calls_total",
			Help: "Total number of repository method calls",
		},
		[]string{"method", "status"},
	)

	// Гистограмма времени выполнения запросов
	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_duration_seconds",
			Help:    "Duration of repository method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Исходы попыток перевести транзакцию в терминальный статус
	SettlementOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_settlements_total",
			Help: "Terminal transition attempts by source, kind and outcome",
		},
		[]string{"source", "kind", "outcome"},
	)

	ActivePolls = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "payment_status_polls_active",
			Help: "Number of background status poll loops currently running",
		},
	)

	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_provider_calls_total",
			Help: "Outbound payment provider calls by operation and status",
		},
		[]string{"operation", "status"},
	)

	WithdrawalTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withdrawal_transitions_total",
			Help: "Withdrawal requests and admin decisions by resulting status",
		},
		[]string{"status"},
	)
)

func InitMetrics(registerer prometheus.Registerer) {
	registerer.MustRegister(
		RequestCounter,
		RequestDuration,
		RepositoryCalls,
		RepositoryDuration,
		SettlementOutcomes,
		ActivePolls,
		ProviderCalls,
		WithdrawalTransitions,
	)
}
