package wrangler

import (
	"github.com/google/trillian/monitoring"
)

// Metrics are labelled with the log ID.
type Metrics struct {
	segmentSeconds  monitoring.Histogram
	entrySeconds    monitoring.Gauge
	entriesFetched  monitoring.Counter
	segmentsFetched monitoring.Counter
	failures        monitoring.Counter
	nextIndex       monitoring.Gauge
	treeSize        monitoring.Gauge
	state           monitoring.Gauge
}

// NewMetrics creates the metrics with mf. Metric names are registered once per factory,
// so a process must not call this twice with the same prometheus factory.
func NewMetrics(mf monitoring.MetricFactory) *Metrics {
	if mf == nil {
		mf = monitoring.InertMetricFactory{}
	}
	return &Metrics{
		segmentSeconds: mf.NewHistogram("segment_seconds",
			"Time to fetch and verify one segment", "log"),
		entrySeconds: mf.NewGauge("entry_seconds",
			"Average time per entry in the last segment", "log"),
		entriesFetched: mf.NewCounter("entries_fetched",
			"Entries fetched and verified", "log"),
		segmentsFetched: mf.NewCounter("segments_fetched",
			"Segments fetched and verified", "log"),
		failures: mf.NewCounter("failures",
			"Failed runs by kind of failure", "log", "kind"),
		nextIndex: mf.NewGauge("next_index",
			"Index of the next entry to fetch", "log"),
		treeSize: mf.NewGauge("tree_size",
			"Last observed tree size", "log"),
		state: mf.NewGauge("state",
			"State of the wrangler", "log"),
	}
}
