package availability

import (
	"context"
	"time"
)

// DefaultLookaheadDays bounds NextAvailable searches when the caller does not.
const DefaultLookaheadDays = 30

// DayPlan is everything the engine needs for one provider on one calendar day.
type DayPlan struct {
	Working      bool
	Window       Window
	DurationMins int
	Booked       []BookedInterval
}

// DayPlanner supplies a provider's DayPlan for a date. Implementations typically hit storage.
type DayPlanner interface {
	PlanDay(ctx context.Context, day time.Time) (DayPlan, error)
}

type DayPlannerFunc func(ctx context.Context, day time.Time) (DayPlan, error)

func (f DayPlannerFunc) PlanDay(ctx context.Context, day time.Time) (DayPlan, error) {
	return f(ctx, day)
}

// NextSlot is the earliest free slot found by FindNextAvailable.
type NextSlot struct {
	Date  time.Time
	Start TimeOfDay
}

// FindNextAvailable walks lookaheadDays consecutive days starting at from and returns the
// first free slot of the first day that has any. Days the provider does not work are skipped.
// found is false when the bound is exhausted; that is a valid result, not an error.
func FindNextAvailable(ctx context.Context, planner DayPlanner, from time.Time, lookaheadDays int) (NextSlot, bool, error) {
	if lookaheadDays <= 0 {
		lookaheadDays = DefaultLookaheadDays
	}
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for i := 0; i < lookaheadDays; i++ {
		if err := ctx.Err(); err != nil {
			return NextSlot{}, false, err
		}
		date := day.AddDate(0, 0, i)
		plan, err := planner.PlanDay(ctx, date)
		if err != nil {
			return NextSlot{}, false, err
		}
		if !plan.Working {
			continue
		}
		slots, err := AvailableSlots(plan.Window, plan.DurationMins, plan.Booked)
		if err != nil {
			return NextSlot{}, false, err
		}
		if len(slots) > 0 {
			return NextSlot{Date: date, Start: slots[0]}, true, nil
		}
	}
	return NextSlot{}, false, nil
}
