package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrInvalidWindow     = errors.New("invalid working window")
	ErrInvalidDuration   = errors.New("invalid slot duration")
)

// MinutesPerDay is the exclusive upper bound of a day in minutes. A working window may end here.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay converts "HH:MM" to minutes since midnight.
func ParseTimeOfDay(text string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(text), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidTimeFormat, text)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustParseTimeOfDay is like ParseTimeOfDay but panics on malformed input.
// Intended for constants and tests.
func MustParseTimeOfDay(text string) TimeOfDay {
	t, err := ParseTimeOfDay(text)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

// String renders the time as zero-padded "HH:MM".
func (t TimeOfDay) String() string {
	if !t.Valid() {
		return "TimeOfDay(" + strconv.Itoa(int(t)) + ")"
	}
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidTimeFormat, int(t))
	}
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Window is a provider's working time on one day. End is exclusive and may equal MinutesPerDay.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ParseWindow builds a Window from "HH:MM" bounds. "24:00" is accepted as an end bound.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Window{}, err
	}
	e, err := parseEnd(strings.TrimSpace(end))
	if err != nil {
		return Window{}, err
	}
	w := Window{Start: s, End: e}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

func (w Window) Validate() error {
	if w.Start < 0 || w.End > MinutesPerDay {
		return fmt.Errorf("%w: %d-%d outside the day", ErrInvalidWindow, int(w.Start), int(w.End))
	}
	if w.Start >= w.End {
		return fmt.Errorf("%w: start %d is not before end %d", ErrInvalidWindow, int(w.Start), int(w.End))
	}
	return nil
}

// FormatEnd renders an exclusive end bound; unlike String it accepts "24:00".
func FormatEnd(t TimeOfDay) string {
	if t == MinutesPerDay {
		return "24:00"
	}
	return t.String()
}
