// Package metrics defines and registers the Prometheus metrics of the site
// API. It is the single source of truth for metric names, labels and help
// strings. Metrics register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "site"

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts served requests.
// Labels:
//   - method: HTTP method
//   - route: the matched echo route pattern (e.g. "/api/auth/login")
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures request latency by route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokenValidationsTotal counts bearer tokens inspected by the auth gate.
// Label:
//   - result: "valid", "invalid", "unknown_principal", "error"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_token_validations_total",
		Help:      "Total number of bearer token validations, by result.",
	},
	[]string{"result"},
)

// DenialsTotal counts requests refused by the role authorizer.
// Label:
//   - reason: "authentication_required" or "insufficient_role"
var DenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_denials_total",
		Help:      "Total number of requests denied by the authorizer.",
	},
	[]string{"reason"},
)

// PasswordResetsTotal counts the steps of the reset flow.
// Labels:
//   - stage: "request" or "reset"
//   - result: "accepted", "success", "invalid_token", "weak_password", "error"
var PasswordResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_password_resets_total",
		Help:      "Total number of password reset requests and completions.",
	},
	[]string{"stage", "result"},
)

// ── Mail outbox metrics ───────────────────────────────────────────────────────

// ResetMailsTotal counts reset mails by outcome: "sent", "failed", "dropped".
var ResetMailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reset_mails_total",
		Help:      "Total number of password reset mails, by outcome.",
	},
	[]string{"result"},
)

// ResetMailQueueDepth tracks pending mails per outbox worker.
var ResetMailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reset_mail_queue_depth",
		Help:      "Current number of reset mails pending in each outbox worker.",
	},
	[]string{"worker_id"},
)
