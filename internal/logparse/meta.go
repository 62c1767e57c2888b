// Package logparse turns raw node log lines into typed metric events.
//
// Parsing is pure and tolerant: a line the package does not recognize
// yields an empty result, never an error, and re-feeding the same line
// always yields the same output.
package logparse

import (
	"regexp"
	"strings"
	"time"
)

// linePattern matches the node log envelope:
//
//	[2024-01-15T10:30:45.123456Z INFO sn_node::storage] message text
var linePattern = regexp.MustCompile(`^\[(\S+) ([A-Z]{4,6}) ([^\]]*)\](.*)$`)

// LineMeta is the decoded envelope of a log line.
type LineMeta struct {
	Timestamp time.Time
	Level     string // INFO, WARN, ERROR, TRACE, DEBUG
	Source    string
	Message   string
}

// DecodeMeta extracts the envelope from a log line. Lines without a
// parseable envelope (continuations, banners, empty lines) return nil.
func DecodeMeta(line string) *LineMeta {
	if line == "" {
		return nil
	}

	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}

	ts, err := time.Parse(time.RFC3339Nano, m[1])
	if err != nil {
		return nil
	}

	return &LineMeta{
		Timestamp: ts.UTC(),
		Level:     m[2],
		Source:    m[3],
		Message:   strings.TrimSpace(m[4]),
	}
}
