package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timeclock",
		Subsystem: "attendance",
		Name:      "decisions_total",
		Help:      "Check-in/check-out decisions by outcome.",
	}, []string{"outcome"})

	storeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "timeclock",
		Subsystem: "attendance",
		Name:      "store_errors_total",
		Help:      "Decisions aborted by a persistence failure.",
	})
)

func observeDecision(d Decision) {
	if d.Action == Reject {
		decisionsTotal.WithLabelValues("rejected").Inc()
		return
	}
	decisionsTotal.WithLabelValues(d.Status.String()).Inc()
}
