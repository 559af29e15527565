package availability

// ConflictIndex answers overlap queries against a sorted, disjoint interval set
// (the output of MergeIntervals) in O(log k).
type ConflictIndex []Interval

func NewConflictIndex(booked []Interval) ConflictIndex {
	return ConflictIndex(MergeIntervals(booked))
}

// Conflicts reports whether [start,end) overlaps any interval in the index.
func (idx ConflictIndex) Conflicts(start, end TimeOfDay) bool {
	lo, hi := 0, len(idx)-1
	for lo <= hi {
		m := lo + (hi-lo)/2
		iv := idx[m]
		switch {
		case iv.Overlaps(start, end):
			return true
		case end <= iv.Start:
			hi = m - 1
		default:
			// start >= iv.End
			lo = m + 1
		}
	}
	return false
}
