// Package metrics exposes Prometheus instrumentation for the playlist server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChannelsLoaded tracks the number of channels currently in the store.
	ChannelsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptvdeck_channels_loaded",
		Help: "Number of channels currently loaded",
	})

	// RefreshesTotal counts refresh cycles by result.
	RefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvdeck_refreshes_total",
		Help: "Total number of playlist refresh cycles",
	}, []string{"result"})

	// ParseSkippedTotal counts playlist entries dropped during parsing.
	ParseSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvdeck_parse_skipped_total",
		Help: "Total number of playlist entries dropped during parsing",
	})

	// StreamsActive tracks the number of streams currently being relayed.
	StreamsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptvdeck_streams_active",
		Help: "Number of streams currently being relayed",
	})

	// StreamBytesTotal counts bytes relayed to clients.
	StreamBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvdeck_stream_bytes_total",
		Help: "Total number of stream bytes relayed to clients",
	})
)

// RecordRefresh increments the refresh counter with the given result.
func RecordRefresh(result string) {
	RefreshesTotal.WithLabelValues(result).Inc()
}

// SetChannelsLoaded sets the loaded channel gauge.
func SetChannelsLoaded(count int) {
	ChannelsLoaded.Set(float64(count))
}
