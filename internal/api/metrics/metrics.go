// Package metrics defines and registers all custom Prometheus metrics for the
// user directory. It is the single source of truth for metric names, labels,
// and help strings.
//
// The metric vars are registered with the default Prometheus registry at
// package init through promauto; Directory adapts them to the service layer.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/99minutos/user-directory/internal/core/domain"
)

const namespace = "directory"

// ── Operation metrics ─────────────────────────────────────────────────────────

// OperationsTotal counts directory operations by outcome.
// Labels:
//   - operation: "create", "update", "patch", "delete", "add_subordinate", …
//   - result: "ok" or the error kind (e.g. "not_found", "validation", "store")
var OperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of directory operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// OperationDuration measures how long a directory operation takes end-to-end,
// including every store round trip and retry.
var OperationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of directory operations.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"operation"},
)

// StoreConflictsTotal counts compare-and-swap writes that lost a race and
// were retried.
var StoreConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_conflicts_total",
		Help:      "Total number of optimistic write conflicts that triggered a retry.",
	},
	[]string{"operation"},
)

// PartialWritesTotal counts operations that failed after writing some, but not
// all, of their records.
var PartialWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "partial_writes_total",
		Help:      "Total number of operations that may have been partially applied.",
	},
	[]string{"operation"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "unknown_user", "deactivated", "incorrect_password", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// Directory implements ports.DirectoryMetrics on top of the package metric vars.
type Directory struct{}

func NewDirectory() Directory { return Directory{} }

func (Directory) ObserveOperation(operation string, err error, elapsed time.Duration) {
	OperationsTotal.WithLabelValues(operation, Result(err)).Inc()
	OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (Directory) ObserveConflict(operation string) {
	StoreConflictsTotal.WithLabelValues(operation).Inc()
}

func (Directory) ObservePartialWrite(operation string) {
	PartialWritesTotal.WithLabelValues(operation).Inc()
}

func (Directory) ObserveLogin(result string) {
	LoginsTotal.WithLabelValues(result).Inc()
}

// Result folds an operation error into a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidManager):
		return "invalid_manager"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUserExists):
		return "exists"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrStore):
		return "store"
	default:
		return "error"
	}
}
