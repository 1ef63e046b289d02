package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/saransh1220/filebox/internal/modules/files/domain"
)

// Metrics are the file lifecycle counters. A nil *Metrics records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
	orphaned    *prometheus.CounterVec
	reconciled  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filebox_file_operation_transitions_total",
			Help: "State transitions of file upload and delete operations.",
		}, []string{"operation", "from", "to"}),
		orphaned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filebox_orphaned_objects_total",
			Help: "Objects left behind after compensation or cleanup retries were exhausted.",
		}, []string{"reason"}),
		reconciled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filebox_reconciler_objects_total",
			Help: "Orphaned objects handled by the reconciler, by result.",
		}, []string{"result"}),
	}
}

// Transition implements domain.StateObserver
func (m *Metrics) Transition(op domain.Operation, from, to domain.State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(op), from.String(), to.String()).Inc()
}

func (m *Metrics) orphan(reason domain.OrphanReason) {
	if m == nil {
		return
	}
	m.orphaned.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) reconcile(result string) {
	if m == nil {
		return
	}
	m.reconciled.WithLabelValues(result).Inc()
}
