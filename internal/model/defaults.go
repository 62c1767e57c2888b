package model

import "time"

// Shared defaults used across the binary and the pipeline.
const (
	DefaultTickInterval   = 200 * time.Millisecond
	DefaultRedrawInterval = time.Second
	DefaultTimelineSteps  = 210
	MinTimelineSteps      = 10
	DefaultLinesMax       = 100

	// A node with no parsed log entry for this long is shown as inactive.
	// Display-side only; aggregation never pauses.
	InactivityTimeout = 20 * time.Second
)
