package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters for import runs. The binaries register them on the
// default registry; tests use a private one.
type Metrics struct {
	RecordsProcessed *prometheus.CounterVec
	MediaDownloaded  prometheus.Counter
	MediaReused      prometheus.Counter
	MediaFailed      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalogsync",
			Name:      "records_processed_total",
			Help:      "Supplier records processed, by outcome.",
		}, []string{"outcome"}),
		MediaDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "catalogsync",
			Name:      "media_downloaded_total",
			Help:      "Media files fetched from remote origins.",
		}),
		MediaReused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "catalogsync",
			Name:      "media_reused_total",
			Help:      "Media files reused from local storage or earlier in the run.",
		}),
		MediaFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "catalogsync",
			Name:      "media_failed_total",
			Help:      "Media downloads that failed.",
		}),
	}

	reg.MustRegister(m.RecordsProcessed, m.MediaDownloaded, m.MediaReused, m.MediaFailed)
	return m
}
