package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Broker metrics
	MessagesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_messages_published_total",
			Help: "Total number of messages published by subject",
		},
		[]string{"subject"},
	)

	MessagesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_messages_consumed_total",
			Help: "Total number of messages consumed by subject and disposition (ack, nak, ack_warn)",
		},
		[]string{"subject", "disposition"},
	)

	RedeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_redeliveries_total",
			Help: "Total number of redelivered messages by subject",
		},
		[]string{"subject"},
	)

	DeadLetteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_dead_lettered_total",
			Help: "Total number of messages that exhausted max_deliver by stream",
		},
		[]string{"stream"},
	)

	// Source registry and scheduler metrics
	SourcesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_sources_active",
			Help: "Total number of active sources known to the scheduler",
		},
	)

	PollsScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_polls_scheduled_total",
			Help: "Total number of poll.source messages emitted by source name",
		},
		[]string{"source"},
	)

	// Connector metrics
	ItemsScraped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_items_scraped_total",
			Help: "Total number of candidate items scraped by source",
		},
		[]string{"source"},
	)

	ItemsDeduplicated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_items_deduplicated_total",
			Help: "Total number of scraped items skipped as already seen, by source",
		},
		[]string{"source"},
	)

	ScrapeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_scrape_duration_seconds",
			Help:    "Time taken to scrape a source in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Filter worker metrics
	EventsClassified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_events_classified_total",
			Help: "Total number of raw events classified by relevance",
		},
		[]string{"is_relevant"},
	)

	ClassifyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_classify_duration_seconds",
			Help:    "Time taken to classify an event against the LLM provider",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Ranker worker metrics
	EventsRanked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_events_ranked_total",
			Help: "Total number of events scored by the ranker",
		},
	)

	FinalScoreObserved = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_final_score",
			Help:    "Distribution of computed final_score values",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.5, 2.0, 5.0},
		},
	)

	// Inspector worker metrics
	AnomaliesDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_anomalies_detected_total",
			Help: "Total number of anomalies flagged by detector kind",
		},
		[]string{"detector"},
	)

	// Guardian metrics
	AlertsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_dispatched_total",
			Help: "Total number of dead-letter alerts dispatched by alerter and outcome",
		},
		[]string{"alerter", "outcome"},
	)

	// Vector store metrics
	StoreUpsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_store_upserts_total",
			Help: "Total number of vector store writes by operation (upsert, patch)",
		},
		[]string{"operation"},
	)

	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_store_operation_duration_seconds",
			Help:    "Time taken for a vector store operation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Retrieval API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(MessagesPublished)
	prometheus.MustRegister(MessagesConsumed)
	prometheus.MustRegister(RedeliveriesTotal)
	prometheus.MustRegister(DeadLetteredTotal)
	prometheus.MustRegister(SourcesActive)
	prometheus.MustRegister(PollsScheduled)
	prometheus.MustRegister(ItemsScraped)
	prometheus.MustRegister(ItemsDeduplicated)
	prometheus.MustRegister(ScrapeDuration)
	prometheus.MustRegister(EventsClassified)
	prometheus.MustRegister(ClassifyDuration)
	prometheus.MustRegister(EventsRanked)
	prometheus.MustRegister(FinalScoreObserved)
	prometheus.MustRegister(AnomaliesDetected)
	prometheus.MustRegister(AlertsDispatched)
	prometheus.MustRegister(StoreUpsertsTotal)
	prometheus.MustRegister(StoreOperationDuration)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
