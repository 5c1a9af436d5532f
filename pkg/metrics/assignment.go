package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AssignmentMetrics records outcomes of the lead assignment engine.
type AssignmentMetrics struct {
	assigned   *prometheus.CounterVec
	unassigned prometheus.Counter
	conflicts  prometheus.Counter
	duration   prometheus.Histogram
}

// NewAssignmentMetrics registers the assignment metrics on the provided
// registerer. A nil registerer yields a no-op recorder, handy in tests.
func NewAssignmentMetrics(reg prometheus.Registerer) *AssignmentMetrics {
	if reg == nil {
		return &AssignmentMetrics{}
	}
	assigned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lead_assignments_total",
		Help: "Committed lead assignments by strategy and mode.",
	}, []string{"strategy", "mode"})
	unassigned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lead_assignments_unmatched_total",
		Help: "Assignment attempts that exhausted every candidate rule.",
	})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lead_assignments_conflicts_total",
		Help: "Assignment attempts that lost the conditional lead write.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lead_assignment_duration_seconds",
		Help:    "Duration of one full assignment walk.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(assigned, unassigned, conflicts, duration)
	return &AssignmentMetrics{
		assigned:   assigned,
		unassigned: unassigned,
		conflicts:  conflicts,
		duration:   duration,
	}
}

// IncAssigned increments the committed assignment counter.
func (a *AssignmentMetrics) IncAssigned(strategy, mode string) {
	if a == nil || a.assigned == nil {
		return
	}
	a.assigned.WithLabelValues(normalizeLabel(strategy), normalizeLabel(mode)).Inc()
}

// IncUnmatched increments the rule-exhaustion counter.
func (a *AssignmentMetrics) IncUnmatched() {
	if a == nil || a.unassigned == nil {
		return
	}
	a.unassigned.Inc()
}

// IncConflict increments the lost-write counter.
func (a *AssignmentMetrics) IncConflict() {
	if a == nil || a.conflicts == nil {
		return
	}
	a.conflicts.Inc()
}

// ObserveDuration records how long a full assignment walk took.
func (a *AssignmentMetrics) ObserveDuration(d time.Duration) {
	if a == nil || a.duration == nil {
		return
	}
	a.duration.Observe(d.Seconds())
}
