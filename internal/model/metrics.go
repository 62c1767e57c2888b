package model

// Metric and counter names shared by the parser, node records, and display.
// Timeline sets are created lazily by name, so adding a metric here needs
// no schema change anywhere else.
const (
	MetricGets        = "gets"
	MetricPuts        = "puts"
	MetricErrors      = "errors"
	MetricEarnings    = "earnings"
	MetricStorageCost = "storage_cost"
	MetricPeers       = "peers"
	MetricMemoryMB    = "memory_mb"
)

// Gauge names kept in a node's last-values map.
const (
	GaugeUsedSpace   = "used_space"
	GaugeMaxCapacity = "max_capacity"
)

// MetricInfo describes how a metric is displayed.
type MetricInfo struct {
	Name       string
	Title      string
	Units      string
	Cumulative bool // counts accumulate per bucket; otherwise min/mean/max of a gauge
	Priced     bool // value is in token nanos and subject to currency conversion
}

// Metrics lists the known metrics in display order. Unknown metric names
// discovered at parse time still get timelines; they display with defaults.
var Metrics = []MetricInfo{
	{Name: MetricEarnings, Title: "Earnings", Units: "nanos", Cumulative: true, Priced: true},
	{Name: MetricStorageCost, Title: "Storage Cost", Units: "nanos/MB", Cumulative: false, Priced: true},
	{Name: MetricPuts, Title: "PUTS", Cumulative: true},
	{Name: MetricGets, Title: "GETS", Cumulative: true},
	{Name: MetricErrors, Title: "ERRORS", Cumulative: true},
	{Name: MetricPeers, Title: "Peers", Cumulative: false},
	{Name: MetricMemoryMB, Title: "Memory", Units: "MB", Cumulative: false},
}

// MetricByName returns display info for a metric, falling back to a
// non-cumulative unpriced default for names not in the registry.
func MetricByName(name string) MetricInfo {
	for _, m := range Metrics {
		if m.Name == name {
			return m
		}
	}
	return MetricInfo{Name: name, Title: name}
}
