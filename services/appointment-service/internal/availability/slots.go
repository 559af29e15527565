package availability

import "fmt"

// GenerateSlots returns every slot start in the window, stepping by durationMins,
// whose slot end does not exceed window.End. Partial trailing slots are never produced.
func GenerateSlots(window Window, durationMins int) []TimeOfDay {
	if durationMins <= 0 {
		return nil
	}
	d := TimeOfDay(durationMins)
	var slots []TimeOfDay
	for t := window.Start; t+d <= window.End; t += d {
		slots = append(slots, t)
	}
	return slots
}

// CompositeDuration sums the durations of back-to-back services into one slot length.
func CompositeDuration(durationsMins ...int) (int, error) {
	if len(durationsMins) == 0 {
		return 0, fmt.Errorf("%w: no durations", ErrInvalidDuration)
	}
	total := 0
	for _, d := range durationsMins {
		if d <= 0 {
			return 0, fmt.Errorf("%w: %d minutes", ErrInvalidDuration, d)
		}
		total += d
	}
	return total, nil
}

// AvailableSlots returns slot start times within the window where a booking of
// durationMins would not overlap any booked interval. An empty result means the
// day is fully booked or too short; invalid input is reported as an error instead.
func AvailableSlots(window Window, durationMins int, booked []BookedInterval) ([]TimeOfDay, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if durationMins <= 0 {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidDuration, durationMins)
	}
	busy, err := ParseBooked(booked)
	if err != nil {
		return nil, err
	}
	return FreeSlots(window, durationMins, NewConflictIndex(busy)), nil
}

// AvailableSlotsComposite is AvailableSlots for several services booked back-to-back.
func AvailableSlotsComposite(window Window, durationsMins []int, booked []BookedInterval) ([]TimeOfDay, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	total, err := CompositeDuration(durationsMins...)
	if err != nil {
		return nil, err
	}
	return AvailableSlots(window, total, booked)
}

// FreeSlots filters the generated candidates against a prepared index.
// The window and duration are assumed valid.
func FreeSlots(window Window, durationMins int, idx ConflictIndex) []TimeOfDay {
	candidates := GenerateSlots(window, durationMins)
	free := make([]TimeOfDay, 0, len(candidates))
	d := TimeOfDay(durationMins)
	for _, t := range candidates {
		if !idx.Conflicts(t, t+d) {
			free = append(free, t)
		}
	}
	return free
}
