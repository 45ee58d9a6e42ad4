// Package metrics provides Prometheus metrics for invitation checks,
// redemptions and company review decisions.
//
// Usage:
//
//	metrics.RecordValidation("group", "UsageLimitReached")
//	metrics.RecordRedemption("company", "", 12*time.Millisecond)
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const resultOk = "ok"

var (
	// ValidationsTotal counts advisory code checks by scope and result.
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitation_validations_total",
			Help: "Total number of invitation code validations",
		},
		[]string{"scope", "result"},
	)

	// RedemptionsTotal counts redemption attempts by scope and result.
	RedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitation_redemptions_total",
			Help: "Total number of invitation code redemptions",
		},
		[]string{"scope", "result"},
	)

	// RedemptionDuration tracks the latency of the redemption transaction.
	RedemptionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invitation_redemption_duration_seconds",
			Help:    "Duration of invitation redemption transactions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"scope"},
	)

	// InvitationsCreatedTotal counts issued codes by scope.
	InvitationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitations_created_total",
			Help: "Total number of invitation codes created",
		},
		[]string{"scope"},
	)

	// CompanyDecisionsTotal counts approval calls by decision and whether the
	// company state actually changed.
	CompanyDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "company_decisions_total",
			Help: "Total number of company approval and rejection decisions",
		},
		[]string{"decision", "changed"},
	)
)

func result(reason string) string {
	if reason == "" {
		return resultOk
	}
	return reason
}

func RecordValidation(scope, reason string) {
	ValidationsTotal.WithLabelValues(scopeLabel(scope), result(reason)).Inc()
}

func RecordRedemption(scope, reason string, duration time.Duration) {
	RedemptionsTotal.WithLabelValues(scopeLabel(scope), result(reason)).Inc()
	RedemptionDuration.WithLabelValues(scopeLabel(scope)).Observe(duration.Seconds())
}

func RecordInvitationCreated(scope string) {
	InvitationsCreatedTotal.WithLabelValues(scopeLabel(scope)).Inc()
}

func RecordCompanyDecision(decision string, changed bool) {
	label := "false"
	if changed {
		label = "true"
	}
	CompanyDecisionsTotal.WithLabelValues(decision, label).Inc()
}

// unknown codes have no scope
func scopeLabel(scope string) string {
	if scope == "" {
		return "unknown"
	}
	return scope
}

func Handler() http.Handler {
	return promhttp.Handler()
}
