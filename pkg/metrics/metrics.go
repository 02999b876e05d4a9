// Package metrics exposes invocation metrics for Prometheus.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/morezero/operation-engine/pkg/operation"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeAmbiguous = "ambiguous"
	OutcomeForbidden = "forbidden"
	OutcomeInvisible = "invisible"
	OutcomeTimeout   = "timeout"
	OutcomeError     = "error"
)

// UnresolvedOperation labels calls that never reached a registered operation,
// keeping caller-supplied names out of the label set.
const UnresolvedOperation = "unresolved"

var (
	invocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opengine_invocations_total",
			Help: "Total operation invocations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	invocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opengine_invocation_duration_seconds",
			Help:    "Duration of operation invocations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	registeredOperations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opengine_registered_operations",
		Help: "Number of registered operation overloads",
	})
)

// OutcomeOf classifies an invocation error.
func OutcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	switch operation.CodeOf(err) {
	case operation.CodeOperationNotFound:
		return OutcomeNotFound
	case operation.CodeAmbiguousMatch:
		return OutcomeAmbiguous
	case operation.CodeForbidden:
		return OutcomeForbidden
	case operation.CodeInvisible:
		return OutcomeInvisible
	}
	return OutcomeError
}

// RecordInvocation records one invocation of op.
func RecordInvocation(op string, err error, elapsed time.Duration) {
	if op == "" {
		op = UnresolvedOperation
	}
	invocationsTotal.WithLabelValues(op, OutcomeOf(err)).Inc()
	invocationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetRegisteredOperations records the registry size.
func SetRegisteredOperations(n int) {
	registeredOperations.Set(float64(n))
}
