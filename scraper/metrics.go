package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry           *prometheus.Registry
	FetchesTotal       *prometheus.CounterVec
	FetchDuration      prometheus.Histogram
	ListingsPersisted  prometheus.Counter
	RetriesTotal       prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
	CacheLookupsTotal  *prometheus.CounterVec
	ProxyCooldownTotal prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescout_fetches_total",
			Help: "Total page fetches by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricescout_fetch_duration_seconds",
			Help:    "Page fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	listings := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricescout_listings_persisted_total",
			Help: "Total listings written to the store.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricescout_retries_total",
			Help: "Total task retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescout_errors_total",
			Help: "Total fetch errors by type.",
		},
		[]string{"error_type"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescout_cache_lookups_total",
			Help: "Page cache lookups by result.",
		},
		[]string{"result"},
	)
	proxyCooldowns := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricescout_proxy_cooldowns_total",
			Help: "Proxy endpoints demoted to cooldown.",
		},
	)

	registry.MustRegister(fetches, fetchDuration, listings, retries, errorsTotal, cacheLookups, proxyCooldowns)

	return &Metrics{
		Registry:           registry,
		FetchesTotal:       fetches,
		FetchDuration:      fetchDuration,
		ListingsPersisted:  listings,
		RetriesTotal:       retries,
		ErrorsTotal:        errorsTotal,
		CacheLookupsTotal:  cacheLookups,
		ProxyCooldownTotal: proxyCooldowns,
	}
}

// IncFetch increments the fetch counter for an outcome label.
func (m *Metrics) IncFetch(outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetchDuration records one fetch latency.
func (m *Metrics) ObserveFetchDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// AddListings adds to the persisted listings counter.
func (m *Metrics) AddListings(n int) {
	if m == nil {
		return
	}
	m.ListingsPersisted.Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncCacheLookup increments the cache lookup counter ("hit" or "miss").
func (m *Metrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// IncProxyCooldown increments the cooldown counter.
func (m *Metrics) IncProxyCooldown() {
	if m == nil {
		return
	}
	m.ProxyCooldownTotal.Inc()
}
