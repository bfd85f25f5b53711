package middleware

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Middleware counts scrapes of the wrapped metrics endpoints.
type Middleware struct {
	counterScrapes *prometheus.CounterVec
}

func New(reg prometheus.Registerer, constLabels prometheus.Labels) *Middleware {
	factory := promauto.With(reg)
	return &Middleware{
		counterScrapes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "backend",
			Subsystem:   "metrics",
			Name:        "scrapes",
			Help:        "The total number of metrics endpoint scrapes",
			ConstLabels: constLabels,
		}, []string{"route"}),
	}
}

func (m *Middleware) WrapHandler(route string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.counterScrapes.With(prometheus.Labels{"route": route}).Inc()
		handler.ServeHTTP(w, r)
	})
}
