package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/VitabuPayments/internal/handler"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/auth"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(h *handler.Handler, authenticator *auth.Authenticator) *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Вебхук провайдера и проверка статуса доступны без токена
	h.RegisterPublicRoutes(r)

	optional := r.NewRoute().Subrouter()
	optional.Use(authenticator.Optional)
	h.RegisterOptionalAuthRoutes(optional)

	// Защищённые роуты с JWT
	protected := r.NewRoute().Subrouter()
	protected.Use(authenticator.Middleware)
	h.RegisterProtectedRoutes(protected)

	admin := r.NewRoute().Subrouter()
	admin.Use(authenticator.Middleware, auth.RequireAdmin)
	h.RegisterAdminRoutes(admin)
	return r
}

// metricsMiddleware labels requests by route template so path ids do not
// blow up label cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}

		// Записываем ответ для получения статуса
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)
		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}

		status := fmt.Sprintf("%d", recorder.status)
		observability.RequestCounter.WithLabelValues(r.Method, endpoint, status).Inc()
		observability.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder для захвата статуса ответа
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
