package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter serves this package's Registry over HTTP in Prometheus
// exposition format. It wraps the Registry as a prometheus.Collector and
// hands scraping, text formatting, and content negotiation to
// promhttp.HandlerFor, rather than formatting the exposition text by hand.

// PrometheusConfig configures the Prometheus exporter.
type PrometheusConfig struct {
	// Namespace is an optional prefix prepended to all metric names
	// (e.g. "hotshot" produces "hotshot_consensus_view").
	Namespace string
	// EnableRuntime controls whether Go runtime metrics (goroutines,
	// memory) are included in the output, via prometheus.NewGoCollector.
	EnableRuntime bool
	// Path is the HTTP path to serve metrics on (default "/metrics").
	Path string
}

// DefaultPrometheusConfig returns a config with sensible defaults.
func DefaultPrometheusConfig() PrometheusConfig {
	return PrometheusConfig{
		Namespace:     "hotshot",
		EnableRuntime: true,
		Path:          "/metrics",
	}
}

// registryCollector adapts a *Registry to prometheus.Collector by
// snapshotting it on every scrape, matching the copy-then-describe pattern
// Prometheus collectors use for metrics that are not kept as live
// prometheus.Metric objects.
type registryCollector struct {
	registry  *Registry
	namespace string
}

func (c *registryCollector) promName(name string) string {
	sanitized := strings.NewReplacer(".", "_", "-", "_").Replace(name)
	if c.namespace != "" {
		return c.namespace + "_" + sanitized
	}
	return sanitized
}

// Describe is intentionally a no-op: this collector's metric set is
// dynamic (names are created on first use by Registry.Counter/Gauge/
// Histogram), so it is registered as an "unchecked" collector and only
// implements Collect.
func (c *registryCollector) Describe(ch chan<- *prometheus.Desc) {}

func (c *registryCollector) Collect(ch chan<- prometheus.Metric) {
	c.registry.mu.RLock()
	counters := make(map[string]*Counter, len(c.registry.counters))
	for k, v := range c.registry.counters {
		counters[k] = v
	}
	gauges := make(map[string]*Gauge, len(c.registry.gauges))
	for k, v := range c.registry.gauges {
		gauges[k] = v
	}
	histograms := make(map[string]*Histogram, len(c.registry.histograms))
	for k, v := range c.registry.histograms {
		histograms[k] = v
	}
	c.registry.mu.RUnlock()

	for name, counter := range counters {
		desc := prometheus.NewDesc(c.promName(name), name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(counter.Value()))
	}
	for name, gauge := range gauges {
		desc := prometheus.NewDesc(c.promName(name), name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(gauge.Value()))
	}
	for name, hist := range histograms {
		promName := c.promName(name)
		countDesc := prometheus.NewDesc(promName+"_count", name+" sample count", nil, nil)
		ch <- prometheus.MustNewConstMetric(countDesc, prometheus.CounterValue, float64(hist.Count()))
		sumDesc := prometheus.NewDesc(promName+"_sum", name+" sample sum", nil, nil)
		ch <- prometheus.MustNewConstMetric(sumDesc, prometheus.CounterValue, hist.Sum())
		if hist.Count() > 0 {
			meanDesc := prometheus.NewDesc(promName+"_mean", name+" sample mean", nil, nil)
			ch <- prometheus.MustNewConstMetric(meanDesc, prometheus.GaugeValue, hist.Mean())
		}
	}
}

// PrometheusExporter owns a dedicated prometheus.Registry (not this
// package's own Registry type) wired to serve HTTP scrapes.
type PrometheusExporter struct {
	config  PrometheusConfig
	promReg *prometheus.Registry
}

// NewPrometheusExporter creates an exporter that scrapes registry on demand.
func NewPrometheusExporter(registry *Registry, config PrometheusConfig) *PrometheusExporter {
	if config.Path == "" {
		config.Path = "/metrics"
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(&registryCollector{registry: registry, namespace: config.Namespace})
	if config.EnableRuntime {
		promReg.MustRegister(prometheus.NewGoCollector())
		promReg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}

	return &PrometheusExporter{config: config, promReg: promReg}
}

// RegisterCollector registers an arbitrary prometheus.Collector (e.g. one
// wrapping a domain-specific gauge set) so it is scraped alongside the
// package Registry.
func (pe *PrometheusExporter) RegisterCollector(c prometheus.Collector) error {
	return pe.promReg.Register(c)
}

// Handler returns an http.Handler that serves the configured path using
// promhttp's exposition-format writer.
func (pe *PrometheusExporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(pe.config.Path, promhttp.HandlerFor(pe.promReg, promhttp.HandlerOpts{}))
	return mux
}
