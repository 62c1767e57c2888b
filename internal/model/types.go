package model

import "time"

// MetricSample is one numeric datapoint extracted from a log line.
// Samples are transient: the parser produces them and a timeline set
// consumes them immediately; they are never stored standalone.
type MetricSample struct {
	Metric    string
	Timestamp time.Time
	Value     float64
}

// CounterDelta is an increment to a node's cumulative counter.
// All deltas parsed from a single line are applied as one unit.
type CounterDelta struct {
	Counter string
	Delta   uint64
}

// GaugeValue is a point-in-time scalar reported by a node, kept as the
// node's latest value for that name (disk used, capacity, and so on).
type GaugeValue struct {
	Name  string
	Value float64
}

// LineEvent carries one raw log line with its source node and the byte
// offset of the end of the line within the file. It is the transport
// contract between tail sources and the aggregation pipeline.
type LineEvent struct {
	NodeID string
	Line   string
	Offset int64
}

// RescanResult reports the outcome of a glob rescan: paths that matched
// for the first time and previously watched paths that no longer match.
type RescanResult struct {
	Added   []string
	Removed []string
}

// NodeStatus is the lifecycle state of a monitored node record.
// Transitions are monotonic forward only: an Active node may become
// Stale, a Stale node Removed, and a Removed node never comes back.
type NodeStatus int

const (
	StatusActive NodeStatus = iota
	StatusStale
	StatusRemoved
)

func (s NodeStatus) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusStale:
		return "Stale"
	case StatusRemoved:
		return "Removed"
	default:
		return "Unknown"
	}
}

// ConnState is the node's network state as reported by its own log.
type ConnState int

const (
	ConnUnknown ConnState = iota
	ConnStarted
	ConnConnecting
	ConnConnected
	ConnStopped
)

func (c ConnState) String() string {
	switch c {
	case ConnStarted:
		return "Started"
	case ConnConnecting:
		return "Connecting"
	case ConnConnected:
		return "Connected"
	case ConnStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// ExchangeRate is the latest token-to-fiat conversion consulted when
// formatting priced metrics. A zero Rate means no conversion is known
// and raw token units are displayed instead.
type ExchangeRate struct {
	Symbol    string // single-character currency symbol, e.g. "$"
	Rate      float64
	FetchedAt time.Time
}

// Valid reports whether the rate can be used for conversion.
func (r ExchangeRate) Valid() bool { return r.Rate > 0 }
