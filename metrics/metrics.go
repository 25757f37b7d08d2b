package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route pattern and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crowdfund_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// SearchesTotal counts searches by surface (home, browse, suggestions).
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_searches_total",
			Help: "Total number of project searches",
		},
		[]string{"surface"},
	)
	DonationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdfund_donations_total",
			Help: "Total number of donations made",
		},
	)
	DonatedAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdfund_donated_amount_total",
			Help: "Sum of all donated amounts",
		},
	)
	ProjectsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdfund_projects_created_total",
			Help: "Total number of projects created",
		},
	)
	ProjectsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdfund_projects_cancelled_total",
			Help: "Total number of projects cancelled by their owners",
		},
	)
	// Registrations counts sign-ups by outcome: created, mail_failed.
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_registrations_total",
			Help: "Total number of registration attempts that reached persistence",
		},
		[]string{"outcome"},
	)
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdfund_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
		[]string{"route"},
	)
)
