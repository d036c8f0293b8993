package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/paisabet/paisabet/internal/ledger"
)

var (
	postings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_postings_total",
		Help: "Committed ledger postings by kind.",
	}, []string{"kind"})

	rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_rejections_total",
		Help: "Rejected ledger postings by reason.",
	}, []string{"reason"})

	duplicateEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_duplicate_events_total",
		Help: "External events dropped as already applied.",
	})
)

// ObservePosting records the outcome of a ledger posting. Duplicate events
// are tracked separately since a non-zero rate is normal: providers retry.
func ObservePosting(kind ledger.Kind, err error) {
	switch {
	case err == nil:
		postings.WithLabelValues(string(kind)).Inc()
	case errors.Is(err, ledger.ErrDuplicateEvent):
		duplicateEvents.Inc()
	case errors.Is(err, ledger.ErrInsufficientFunds):
		rejections.WithLabelValues("insufficient_funds").Inc()
	case errors.Is(err, ledger.ErrInvalidArgument):
		rejections.WithLabelValues("invalid_argument").Inc()
	case errors.Is(err, ledger.ErrLockTimeout):
		rejections.WithLabelValues("lock_timeout").Inc()
	default:
		rejections.WithLabelValues("storage").Inc()
	}
}
