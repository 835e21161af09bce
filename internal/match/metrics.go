package match

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the allocation counters exported on /metrics.
type Metrics struct {
	Suggestions  *prometheus.CounterVec
	NoMatch      prometheus.Counter
	Outcomes     *prometheus.CounterVec
	Priority     prometheus.Histogram
	AllocLatency prometheus.Histogram
}

// NewMetrics builds the collectors and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Subsystem: "allocator",
			Name:      "suggestions_total",
			Help:      "Suggestions generated, by search branch and relaxation level.",
		}, []string{"branch", "relaxed"}),
		NoMatch: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "courtside",
			Subsystem: "allocator",
			Name:      "no_match_total",
			Help:      "Allocation attempts that produced no suggestion.",
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Subsystem: "allocator",
			Name:      "suggestion_outcomes_total",
			Help:      "Suggestions accepted or rejected.",
		}, []string{"outcome"}),
		Priority: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "courtside",
			Subsystem: "allocator",
			Name:      "priority_score",
			Help:      "Priority score of generated suggestions.",
			Buckets:   []float64{0, 10, 25, 40, 55, 80, 105, 155, 205},
		}),
		AllocLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "courtside",
			Subsystem: "allocator",
			Name:      "generate_seconds",
			Help:      "Time spent in GenerateMatch.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Suggestions, m.NoMatch, m.Outcomes, m.Priority, m.AllocLatency)
	}
	return m
}

func (m *Metrics) observeSuggestion(sug *Suggestion) {
	m.Suggestions.WithLabelValues(string(sug.Branch), relaxedLabel(sug.RelaxedConstraints)).Inc()
	m.Priority.Observe(float64(sug.PriorityScore))
}

func relaxedLabel(cs []Constraint) string {
	if len(cs) == 0 {
		return "none"
	}
	label := string(cs[0])
	for _, c := range cs[1:] {
		label += "," + string(c)
	}
	return label
}
