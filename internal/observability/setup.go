package observability

import (
	"context"
	"log/slog"

	"github.com/honeynil/VitabuPayments/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus"
)

func Setup(ctx context.Context, serviceName string, level slog.Level) func(context.Context) error {
	observability.InitLogger(level)
	observability.InitMetrics(prometheus.DefaultRegisterer)
	return observability.InitTracing(ctx, serviceName)
}
