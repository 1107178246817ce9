// metrics.go - Prometheus instrumentation for the orchestrator.

package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shadepool/shade/internal/fees"
	"github.com/shadepool/shade/internal/proofs"
	"github.com/shadepool/shade/internal/registry"
)

// Metrics aggregates the engine's operational counters.
type Metrics struct {
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	leaves     prometheus.Gauge
}

// NewMetrics registers the engine collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shade",
			Name:      "operations_total",
			Help:      "Settled operations by name.",
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shade",
			Name:      "operation_failures_total",
			Help:      "Rejected operations by name and reason.",
		}, []string{"operation", "reason"}),
		leaves: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shade",
			Name:      "accumulator_leaves",
			Help:      "Commitments appended to the accumulator.",
		}),
	}
	reg.MustRegister(m.operations, m.failures, m.leaves)
	return m
}

func (m *Metrics) operation(name string) {
	m.operations.WithLabelValues(name).Inc()
}

func (m *Metrics) treeSize(n uint64) {
	m.leaves.Set(float64(n))
}

func (m *Metrics) failure(operation string, err error) {
	m.failures.WithLabelValues(operation, failureReason(err)).Inc()
}

// failureReason buckets an error into a bounded label set.
func failureReason(err error) string {
	switch {
	case errors.Is(err, proofs.ErrInvalidProof):
		return "invalid_proof"
	case errors.Is(err, proofs.ErrUnknownOperation):
		return "unknown_operation"
	case errors.Is(err, registry.ErrNullifierUsed):
		return "nullifier_used"
	case errors.Is(err, registry.ErrNullifierLocked):
		return "nullifier_locked"
	case errors.Is(err, registry.ErrNoteFooterUsed):
		return "footer_used"
	case errors.Is(err, registry.ErrNoteAlreadyCreated):
		return "commitment_exists"
	case errors.Is(err, fees.ErrFeeExceedsAmount):
		return "fee_exceeds_amount"
	case errors.Is(err, ErrUnknownRoot):
		return "unknown_root"
	case errors.Is(err, ErrRelayerNotRegistered), errors.Is(err, ErrCallerNotRelayer):
		return "relayer"
	case errors.Is(err, ErrNotAuthorized):
		return "compliance"
	case errors.Is(err, ErrSlippage):
		return "slippage"
	case errors.Is(err, ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, ErrDuplicateFooter):
		return "duplicate_footer"
	default:
		return "other"
	}
}
