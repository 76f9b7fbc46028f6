package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Quote submission outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)

// QuoteMetrics records quote pipeline activity.
type QuoteMetrics struct {
	submissions *prometheus.CounterVec
	duration    prometheus.Histogram
	items       prometheus.Histogram
	bookkeeping *prometheus.CounterVec
}

func NewQuoteMetrics(reg prometheus.Registerer) *QuoteMetrics {
	if reg == nil {
		return &QuoteMetrics{}
	}
	m := &QuoteMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "submissions_total",
			Help:      "Quote submissions by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "pipeline_duration_seconds",
			Help:      "Time from submit to dispatch result.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		items: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "items_per_quote",
			Help:      "Total units requested per dispatched quote.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		bookkeeping: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "bookkeeping_failures_total",
			Help:      "Post-dispatch steps that failed.",
		}, []string{"step"}),
	}
	reg.MustRegister(m.submissions, m.duration, m.items, m.bookkeeping)
	return m
}

func (m *QuoteMetrics) IncSubmission(outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *QuoteMetrics) ObserveDispatch(d time.Duration, totalItems int) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(d.Seconds())
	m.items.Observe(float64(totalItems))
}

func (m *QuoteMetrics) IncBookkeepingFailure(step string) {
	if m == nil || m.bookkeeping == nil {
		return
	}
	m.bookkeeping.WithLabelValues(normalizeLabel(step)).Inc()
}

// CacheMetrics counts content cache lookups.
type CacheMetrics struct {
	lookups *prometheus.CounterVec
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	if reg == nil {
		return &CacheMetrics{}
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "content_cache",
		Name:      "lookups_total",
		Help:      "Content cache lookups by resource and result.",
	}, []string{"resource", "result"})
	reg.MustRegister(lookups)
	return &CacheMetrics{lookups: lookups}
}

func (c *CacheMetrics) Hit(resource string)  { c.observe(resource, "hit") }
func (c *CacheMetrics) Miss(resource string) { c.observe(resource, "miss") }

func (c *CacheMetrics) observe(resource, result string) {
	if c == nil || c.lookups == nil {
		return
	}
	c.lookups.WithLabelValues(normalizeLabel(resource), result).Inc()
}
