package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 认证业务指标（包级注册，随 /metrics 一起导出）
var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shop",
		Name:      "auth_registrations_total",
		Help:      "Total successful user registrations",
	})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Name:      "auth_logins_total",
		Help:      "Total login attempts by result",
	}, []string{"result"}) // success | failure

	resetRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shop",
		Name:      "auth_password_reset_requests_total",
		Help:      "Total password reset requests",
	})
)
