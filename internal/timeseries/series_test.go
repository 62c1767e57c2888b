package timeseries

import (
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func collect(seq func(func(Bucket) bool)) []Bucket {
	var out []Bucket
	seq(func(b Bucket) bool {
		out = append(out, b)
		return true
	})
	return out
}

func TestSeries_InsertAggregates(t *testing.T) {
	t.Parallel()
	s := NewSeries(time.Second, 60)

	s.Insert(t0, 1)
	s.Insert(t0.Add(200*time.Millisecond), 1)
	s.Insert(t0.Add(400*time.Millisecond), 2)

	b, ok := s.Newest()
	if !ok {
		t.Fatal("expected a bucket")
	}
	if b.Count != 3 {
		t.Errorf("Count = %d, want 3", b.Count)
	}
	if b.Sum != 4 {
		t.Errorf("Sum = %v, want 4", b.Sum)
	}
	if b.Min != 1 || b.Max != 2 {
		t.Errorf("Min/Max = %v/%v, want 1/2", b.Min, b.Max)
	}
}

func TestSeries_MeanWithinMinMax(t *testing.T) {
	t.Parallel()
	s := NewSeries(time.Second, 10)

	values := []float64{5, 1, 9, 3, 7, 2}
	for i, v := range values {
		s.Insert(t0.Add(time.Duration(i)*100*time.Millisecond), v)
	}

	for _, b := range collect(s.Last(10)) {
		if b.Empty() {
			continue
		}
		mean := b.Mean()
		if mean < b.Min || mean > b.Max {
			t.Errorf("mean %v outside [%v, %v]", mean, b.Min, b.Max)
		}
	}
}

func TestSeries_EmptyBucketMeanIsZero(t *testing.T) {
	t.Parallel()
	var b Bucket
	if !b.Empty() {
		t.Error("zero bucket should be empty")
	}
	if b.Mean() != 0 {
		t.Errorf("Mean of empty bucket = %v, want 0", b.Mean())
	}
}

func TestSeries_AdvanceCreatesContiguousBuckets(t *testing.T) {
	t.Parallel()
	s := NewSeries(time.Second, 60)

	s.AdvanceTo(t0)
	s.AdvanceTo(t0.Add(5 * time.Second))

	buckets := collect(s.Last(60))
	if len(buckets) != 6 {
		t.Fatalf("len = %d, want 6", len(buckets))
	}
	for i := 1; i < len(buckets); i++ {
		if !buckets[i].Start.Equal(buckets[i-1].End) {
			t.Errorf("gap between bucket %d end %v and bucket %d start %v",
				i-1, buckets[i-1].End, i, buckets[i].Start)
		}
	}
}

func TestSeries_AdvanceIsIdempotentAndMonotonic(t *testing.T) {
	t.Parallel()
	s := NewSeries(time.Second, 60)

	s.Insert(t0, 7)
	s.AdvanceTo(t0.Add(3 * time.Second))
	before := collect(s.Last(60))

	// Re-advancing to the same or an earlier now must change nothing.
	s.AdvanceTo(t0.Add(3 * time.Second))
	s.AdvanceTo(t0)
	after := collect(s.Last(60))

	if len(before) != len(after) {
		t.Fatalf("bucket count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("bucket %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestSeries_LargeJumpCapsAtCapacity(t *testing.T) {
	t.Parallel()
	s := NewSeries(time.Second, 30)

	s.Insert(t0, 1)
	// A week-long gap at 1s resolution must not iterate per elapsed second.
	s.AdvanceTo(t0.Add(7 * 24 * time.Hour))

	if s.Len() != 30 {
		t.Fatalf("Len = %d, want capacity 30", s.Len())
	}
	newest, _ := s.Newest()
	want := t0.Add(7 * 24 * time.Hour).Truncate(time.Second)
	if !newest.Start.Equal(want) {
		t.Errorf("newest start = %v, want %v", newest.Start, want)
	}
	for _, b := range collect(s.Last(30)) {
		if !b.Empty() {
			t.Errorf("bucket %v should be empty after window reset", b.Start)
		}
	}
}

func TestSeries_ExactBucketCountOnJump(t *testing.T) {
	t.Parallel()
	s := NewSeries(time.Minute, 100)

	s.AdvanceTo(t0)
	s.AdvanceTo(t0.Add(7*time.Minute + 30*time.Second))

	// ceil(7.5) = 8 new minute slots past the first bucket's start is 7,
	// so 8 buckets total cover [t0, t0+7m].
	if s.Len() != 8 {
		t.Errorf("Len = %d, want 8", s.Len())
	}
}

func TestSeries_LateSampleDropped(t *testing.T) {
	t.Parallel()
	s := NewSeries(time.Second, 5)

	s.Insert(t0, 1)
	s.AdvanceTo(t0.Add(10 * time.Second))
	before := collect(s.Last(5))

	s.Insert(t0, 99) // predates the oldest retained bucket

	after := collect(s.Last(5))
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("late sample altered bucket %d: %+v -> %+v", i, before[i], after[i])
		}
	}
	if s.LateDrops() != 1 {
		t.Errorf("LateDrops = %d, want 1", s.LateDrops())
	}
}

func TestSeries_BackfillWithinWindow(t *testing.T) {
	t.Parallel()
	s := NewSeries(time.Second, 10)

	s.AdvanceTo(t0)
	s.AdvanceTo(t0.Add(5 * time.Second))
	s.Insert(t0.Add(2*time.Second), 3) // older than newest but retained

	var hit bool
	for _, b := range collect(s.Last(10)) {
		if b.Start.Equal(t0.Add(2 * time.Second)) {
			hit = true
			if b.Count != 1 || b.Sum != 3 {
				t.Errorf("backfilled bucket = %+v", b)
			}
		}
	}
	if !hit {
		t.Error("expected a bucket covering the backfilled sample")
	}
	if s.LateDrops() != 0 {
		t.Errorf("LateDrops = %d, want 0", s.LateDrops())
	}
}

func TestSeries_LastIsRestartable(t *testing.T) {
	t.Parallel()
	s := NewSeries(time.Second, 10)
	for i := 0; i < 5; i++ {
		s.Insert(t0.Add(time.Duration(i)*time.Second), float64(i))
	}

	seq := s.Last(3)
	first := collect(seq)
	second := collect(seq)

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("lens = %d/%d, want 3/3", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("restarted iteration differs at %d", i)
		}
	}
}

func TestSeries_EvictionKeepsWindowContiguous(t *testing.T) {
	t.Parallel()
	s := NewSeries(time.Second, 3)

	for i := 0; i < 10; i++ {
		s.Insert(t0.Add(time.Duration(i)*time.Second), float64(i))
	}

	buckets := collect(s.Last(3))
	if len(buckets) != 3 {
		t.Fatalf("len = %d, want 3", len(buckets))
	}
	// Oldest retained bucket is t0+7s after evicting 7 of 10.
	if !buckets[0].Start.Equal(t0.Add(7 * time.Second)) {
		t.Errorf("oldest start = %v, want %v", buckets[0].Start, t0.Add(7*time.Second))
	}
	if buckets[2].Sum != 9 {
		t.Errorf("newest sum = %v, want 9", buckets[2].Sum)
	}
}
