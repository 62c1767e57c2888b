package logparse

import (
	"strconv"
	"strings"

	"github.com/antdash/antdash/internal/model"
)

// Restart marks a node (re)start line carrying the running version.
type Restart struct {
	Version string
}

// Result holds everything extracted from one log line. A zero Result
// means the line carried no recognizable signal.
type Result struct {
	Meta     *LineMeta
	Samples  []model.MetricSample
	Counters []model.CounterDelta
	Gauges   []model.GaugeValue
	Conn     model.ConnState // ConnUnknown when the line implies no change
	Restart  *Restart
	PeerID   string
	PID      uint64
}

// Empty reports whether the line produced no metric events at all.
func (r Result) Empty() bool {
	return len(r.Samples) == 0 && len(r.Counters) == 0 && len(r.Gauges) == 0 &&
		r.Conn == model.ConnUnknown && r.Restart == nil && r.PeerID == "" && r.PID == 0
}

const runningPrefix = "Running safenode "

// ParseLine decodes one raw log line into metric events. It is a pure
// function of the line text: unrecognized lines produce an empty result
// and parsing failure is never fatal.
func ParseLine(line string) Result {
	meta := DecodeMeta(line)
	if meta == nil {
		return Result{}
	}

	r := Result{Meta: meta}
	msg := meta.Message

	if meta.Level == "ERROR" {
		r.count(model.MetricErrors, 1, meta)
	}

	switch {
	case strings.Contains(msg, "Retrieved record from disk"):
		r.count(model.MetricGets, 1, meta)
		r.Conn = model.ConnConnected

	case strings.Contains(msg, "Wrote record"),
		strings.Contains(msg, "ValidSpendRecordPutFromNetwork"),
		strings.Contains(msg, "Editing Register success"):
		r.count(model.MetricPuts, 1, meta)
		r.Conn = model.ConnConnected

	case strings.Contains(msg, "Cost is now "):
		if v, ok := parseU64After(msg, "Cost is now "); ok {
			r.sample(model.MetricStorageCost, float64(v), meta)
		}

	case strings.Contains(msg, "nanos accepted for record"):
		if v, ok := parseU64After(msg, "payment of NanoTokens("); ok {
			r.Counters = append(r.Counters, model.CounterDelta{Counter: model.MetricEarnings, Delta: v})
			r.sample(model.MetricEarnings, float64(v), meta)
		}

	case strings.Contains(msg, "PeersInRoutingTable("):
		if v, ok := parseU64After(msg, "PeersInRoutingTable("); ok {
			r.sample(model.MetricPeers, float64(v), meta)
			r.Gauges = append(r.Gauges, model.GaugeValue{Name: model.MetricPeers, Value: float64(v)})
		}

	case strings.Contains(msg, `"memory_used_mb":`):
		if v, ok := parseF64After(msg, `"memory_used_mb":`); ok {
			r.sample(model.MetricMemoryMB, v, meta)
			r.Gauges = append(r.Gauges, model.GaugeValue{Name: model.MetricMemoryMB, Value: v})
		}

	case strings.HasPrefix(msg, runningPrefix):
		r.Restart = &Restart{Version: strings.TrimSpace(msg[len(runningPrefix):])}
		r.Conn = model.ConnStarted

	case strings.Contains(msg, "Node (PID: "):
		if v, ok := parseU64After(msg, "Node (PID: "); ok {
			r.PID = v
		}
		if id, ok := parseWordAfter(msg, "PeerId: "); ok {
			r.PeerID = id
		}

	case strings.Contains(msg, "Getting closest peers"):
		r.Conn = model.ConnConnecting

	case strings.Contains(msg, "Connected to the Network"):
		r.Conn = model.ConnConnected

	case strings.Contains(msg, "Node events channel closed"):
		r.Conn = model.ConnStopped

	case strings.Contains(msg, "Used space:"):
		if v, ok := parseU64After(msg, "Used space:"); ok {
			r.Gauges = append(r.Gauges, model.GaugeValue{Name: model.GaugeUsedSpace, Value: float64(v)})
		}

	case strings.Contains(msg, "Max capacity:"):
		if v, ok := parseU64After(msg, "Max capacity:"); ok {
			r.Gauges = append(r.Gauges, model.GaugeValue{Name: model.GaugeMaxCapacity, Value: float64(v)})
		}
	}

	return r
}

func (r *Result) count(metric string, delta uint64, meta *LineMeta) {
	r.Counters = append(r.Counters, model.CounterDelta{Counter: metric, Delta: delta})
	r.sample(metric, float64(delta), meta)
}

func (r *Result) sample(metric string, value float64, meta *LineMeta) {
	r.Samples = append(r.Samples, model.MetricSample{
		Metric:    metric,
		Timestamp: meta.Timestamp,
		Value:     value,
	})
}

// parseU64After finds prefix in content and parses the integer that
// immediately follows, stopping at the first delimiter.
func parseU64After(content, prefix string) (uint64, bool) {
	word, ok := wordAfter(content, prefix)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(word, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseF64After(content, prefix string) (float64, bool) {
	word, ok := wordAfter(content, prefix)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(word, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseWordAfter(content, prefix string) (string, bool) {
	return wordAfter(content, prefix)
}

func wordAfter(content, prefix string) (string, bool) {
	pos := strings.Index(content, prefix)
	if pos < 0 {
		return "", false
	}
	rest := strings.TrimSpace(content[pos+len(prefix):])
	end := strings.IndexFunc(rest, func(c rune) bool {
		return c == ' ' || c == ',' || c == ')' || c == '}' || c == '"'
	})
	if end == 0 {
		return "", false
	}
	if end > 0 {
		rest = rest[:end]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}
