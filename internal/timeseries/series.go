// Package timeseries maintains marching-bucket histories for metrics.
//
// A Series holds a fixed number of contiguous time buckets at a single
// resolution. New buckets are appended as time advances and the oldest
// are evicted once the capacity is reached, so memory stays bounded no
// matter how long the process runs. A TimelineSet groups one Series per
// supported resolution for a single metric and mediates zoom navigation.
package timeseries

import (
	"iter"
	"math"
	"time"
)

// Bucket aggregates all samples whose timestamp falls in [Start, End).
// A bucket with Count == 0 is empty, not zero: Sum, Min and Max are
// undefined and Mean reports 0.
type Bucket struct {
	Start time.Time
	End   time.Time
	Count uint64
	Sum   float64
	Min   float64
	Max   float64
}

// Empty reports whether the bucket has received no samples.
func (b Bucket) Empty() bool { return b.Count == 0 }

// Mean is computed at read time from Sum and Count, never stored, which
// avoids accumulated rounding error from incremental averaging.
func (b Bucket) Mean() float64 {
	if b.Count == 0 {
		return 0
	}
	return b.Sum / float64(b.Count)
}

// Series is a fixed-capacity ring of buckets at one resolution. Buckets
// are contiguous and strictly increasing in time; the newest bucket's
// end tracks "now" and only ever moves forward.
type Series struct {
	resolution time.Duration
	capacity   int

	buckets []Bucket
	head    int // index of the oldest bucket
	count   int

	lateDrops uint64
}

// NewSeries creates an empty series of at most capacity buckets, each
// spanning resolution.
func NewSeries(resolution time.Duration, capacity int) *Series {
	if resolution <= 0 {
		panic("timeseries: resolution must be positive")
	}
	if capacity < 1 {
		capacity = 1
	}
	return &Series{
		resolution: resolution,
		capacity:   capacity,
		buckets:    make([]Bucket, capacity),
	}
}

// Resolution returns the duration each bucket spans.
func (s *Series) Resolution() time.Duration { return s.resolution }

// Len returns the number of populated buckets.
func (s *Series) Len() int { return s.count }

// Capacity returns the maximum number of retained buckets.
func (s *Series) Capacity() int { return s.capacity }

// LateDrops counts samples discarded because they predate the oldest
// retained bucket. Truncating history is an accepted lossy policy, not
// an error, but the count stays observable.
func (s *Series) LateDrops() uint64 { return s.lateDrops }

func (s *Series) at(i int) *Bucket {
	return &s.buckets[(s.head+i)%s.capacity]
}

func (s *Series) newest() *Bucket { return s.at(s.count - 1) }
func (s *Series) oldest() *Bucket { return s.at(0) }

// Newest returns the most recent bucket, if any.
func (s *Series) Newest() (Bucket, bool) {
	if s.count == 0 {
		return Bucket{}, false
	}
	return *s.newest(), true
}

func (s *Series) emptyBucket(start time.Time) Bucket {
	return Bucket{Start: start, End: start.Add(s.resolution)}
}

// AdvanceTo rolls the bucket window forward so that the newest bucket
// covers now. Calls with now at or before the current window are no-ops,
// so advancement is idempotent and monotonic. Large forward jumps cost
// O(buckets created), capped at the capacity, not O(time elapsed).
func (s *Series) AdvanceTo(now time.Time) {
	target := now.Truncate(s.resolution)

	if s.count == 0 {
		s.buckets[0] = s.emptyBucket(target)
		s.head = 0
		s.count = 1
		return
	}

	newestStart := s.newest().Start
	if !target.After(newestStart) {
		return
	}

	steps := int(target.Sub(newestStart) / s.resolution)
	if steps >= s.capacity {
		// The whole window moved past the retained history: rebuild the
		// ring with empty buckets ending at target.
		s.head = 0
		s.count = s.capacity
		start := target.Add(-time.Duration(s.capacity-1) * s.resolution)
		for i := range s.buckets {
			s.buckets[i] = s.emptyBucket(start)
			start = start.Add(s.resolution)
		}
		return
	}

	start := newestStart
	for i := 0; i < steps; i++ {
		start = start.Add(s.resolution)
		if s.count < s.capacity {
			s.buckets[(s.head+s.count)%s.capacity] = s.emptyBucket(start)
			s.count++
		} else {
			// Evict the oldest bucket by rotating the ring head.
			s.buckets[s.head] = s.emptyBucket(start)
			s.head = (s.head + 1) % s.capacity
		}
	}
}

// Insert adds a sample to the bucket covering ts, advancing the window
// first when ts is ahead of it. Samples older than the oldest retained
// bucket are dropped silently and counted in LateDrops.
func (s *Series) Insert(ts time.Time, value float64) {
	s.AdvanceTo(ts)

	slot := ts.Truncate(s.resolution)
	behind := int(s.newest().Start.Sub(slot) / s.resolution)
	if behind < 0 {
		// AdvanceTo guarantees the newest bucket covers ts.
		behind = 0
	}
	if behind >= s.count {
		s.lateDrops++
		return
	}

	b := s.at(s.count - 1 - behind)
	if b.Count == 0 {
		b.Min = value
		b.Max = value
	} else {
		b.Min = math.Min(b.Min, value)
		b.Max = math.Max(b.Max, value)
	}
	b.Count++
	b.Sum += value
}

// Last returns the most recent k buckets in chronological order as a
// lazy, restartable sequence. It never mutates the series. Iterating
// after a subsequent mutation restarts from the mutated state.
func (s *Series) Last(k int) iter.Seq[Bucket] {
	return func(yield func(Bucket) bool) {
		n := min(k, s.count)
		for i := s.count - n; i < s.count; i++ {
			if !yield(*s.at(i)) {
				return
			}
		}
	}
}
