package auth

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Register mounts the public login route.
func (s *Server) Register(r chi.Router) {
	r.Post("/login", s.handleLogin)
}

type Metrics struct {
	Logins     *prometheus.CounterVec
	Rejections *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_token_rejections_total",
				Help: "Requests turned away by the token gate",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(m.Logins, m.Rejections)
	return m
}

// A nil *Metrics is valid and records nothing.
func (m *Metrics) observeLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRejection(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}
