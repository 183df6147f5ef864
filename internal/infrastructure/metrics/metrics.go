package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Admissions tracks admission pipeline outcomes per route.
	Admissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consentgate_admissions_total",
		Help: "Total admission decisions by route and outcome",
	}, []string{"route", "outcome"})

	// AuthFailures tracks token resolution failures by error kind.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consentgate_auth_failures_total",
		Help: "Total failed token resolutions by kind",
	}, []string{"kind"})

	// RateLimitRejections tracks requests rejected by the rate limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consentgate_rate_limit_rejections_total",
		Help: "Total rate-limited requests by category",
	}, []string{"category"})

	// Registrations tracks reconciliation results.
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consentgate_registrations_total",
		Help: "Total site registrations by outcome",
	}, []string{"outcome"})

	// ConsentsRecorded tracks stored visitor consent decisions.
	ConsentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "consentgate_consents_recorded_total",
		Help: "Total visitor consent decisions recorded",
	})

	// DBConnectionsActive tracks open database connections.
	DBConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "consentgate_db_connections_active",
		Help: "Number of active database connections",
	})
)
