package availability

import (
	"fmt"
	"slices"
)

// BookedInterval is one existing reservation for the provider/day, as supplied by the appointments store.
type BookedInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps reports whether [start,end) intersects the interval. Shared endpoints do not overlap.
func (iv Interval) Overlaps(start, end TimeOfDay) bool {
	return iv.Start < end && start < iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s,%s)", iv.Start, iv.End)
}

// ParseBooked converts booked intervals to minutes. Intervals whose end is not after
// their start occupy no time and are skipped.
func ParseBooked(booked []BookedInterval) ([]Interval, error) {
	out := make([]Interval, 0, len(booked))
	for _, b := range booked {
		start, err := ParseTimeOfDay(b.Start)
		if err != nil {
			return nil, err
		}
		end, err := parseEnd(b.End)
		if err != nil {
			return nil, err
		}
		if end <= start {
			continue
		}
		out = append(out, Interval{Start: start, End: end})
	}
	return out, nil
}

func parseEnd(text string) (TimeOfDay, error) {
	if text == "24:00" {
		return MinutesPerDay, nil
	}
	return ParseTimeOfDay(text)
}

// MergeIntervals sorts intervals by start and sweeps them into a sorted, disjoint set.
// Overlapping and touching intervals are coalesced. The input slice is not modified.
func MergeIntervals(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := slices.Clone(in)
	slices.SortFunc(sorted, func(a, b Interval) int {
		return int(a.Start) - int(b.Start)
	})

	merged := make([]Interval, 0, len(sorted))
	for _, cur := range sorted {
		if len(merged) == 0 || cur.Start > merged[len(merged)-1].End {
			merged = append(merged, cur)
			continue
		}
		last := &merged[len(merged)-1]
		if cur.End > last.End {
			last.End = cur.End
		}
	}
	return merged
}
