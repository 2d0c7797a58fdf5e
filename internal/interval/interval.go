// Package interval merges time ranges expressed in float seconds.
package interval

import "sort"

// DefaultEpsilon is the merge tolerance used where intervals from different
// sources (segments, words, silence ranges) are combined.
const DefaultEpsilon = 0.1

// Interval is a closed time range in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End-Start, or 0 for malformed intervals.
func (iv Interval) Duration() float64 {
	if iv.End < iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

// Contains reports whether t lies inside [Start, End).
func (iv Interval) Contains(t float64) bool {
	return t >= iv.Start && t < iv.End
}

// Merge returns the minimal ascending list of disjoint intervals covering in.
// Intervals that touch (next.Start <= current.End) are merged.
func Merge(in []Interval) []Interval {
	return MergeWithin(in, 0)
}

// MergeWithin is Merge with an extra tolerance: intervals separated by a gap
// of at most eps are merged as well. Malformed intervals (Start > End)
// contribute nothing.
func MergeWithin(in []Interval, eps float64) []Interval {
	if eps < 0 {
		eps = 0
	}

	valid := make([]Interval, 0, len(in))
	for _, iv := range in {
		if iv.Start > iv.End {
			continue
		}
		valid = append(valid, iv)
	}
	if len(valid) == 0 {
		return []Interval{}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Start < valid[j].Start
	})

	merged := []Interval{valid[0]}
	for _, iv := range valid[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End+eps {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Complement returns the ranges of [0, duration] not covered by the merged
// list. The input must already be merged.
func Complement(merged []Interval, duration float64) []Interval {
	kept := []Interval{}
	current := 0.0
	for _, iv := range merged {
		if iv.Start > current {
			end := iv.Start
			if end > duration {
				end = duration
			}
			if end > current {
				kept = append(kept, Interval{Start: current, End: end})
			}
		}
		if iv.End > current {
			current = iv.End
		}
	}
	if current < duration {
		kept = append(kept, Interval{Start: current, End: duration})
	}
	return kept
}

// Total sums the durations of the given intervals.
func Total(in []Interval) float64 {
	total := 0.0
	for _, iv := range in {
		total += iv.Duration()
	}
	return total
}

// Find returns the index of the interval containing t, or -1.
// The input must be merged (ascending and disjoint).
func Find(merged []Interval, t float64) int {
	i := sort.Search(len(merged), func(i int) bool {
		return merged[i].End > t
	})
	if i < len(merged) && merged[i].Start <= t {
		return i
	}
	return -1
}
