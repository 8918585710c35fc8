package metric

import "github.com/prometheus/client_golang/prometheus"

// KeyspaceSource is read on every scrape.
type KeyspaceSource interface {
	// Len returns the number of stored entries, including expired ones not yet evicted.
	Len() int
	// Evicted returns the number of entries removed by lazy expiry.
	Evicted() uint64
}

// Collector exports keyspace statistics.
type Collector struct {
	src KeyspaceSource

	keys    *prometheus.Desc
	evicted *prometheus.Desc
}

// NewCollector creates a keyspace collector.
func NewCollector(src KeyspaceSource) *Collector {
	return &Collector{
		src: src,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "keyspace", "keys"),
			"Stored entries, including expired entries not yet evicted",
			nil, nil,
		),
		evicted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "keyspace", "evicted_total"),
			"Entries removed by lazy expiry",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.evicted
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(c.src.Len()))
	ch <- prometheus.MustNewConstMetric(c.evicted, prometheus.CounterValue, float64(c.src.Evicted()))
}
