package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
	"github.com/spf13/cobra"
)

// slotsCmd and nextCmd run the slot engine on flag input without a database,
// for support staff checking a schedule by hand.

type slotOutput struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type nextOutput struct {
	Found bool   `json:"found"`
	Date  string `json:"date,omitempty"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the free slots of one working window",
		Example: `  appointment-service slots --window-start 09:00 --window-end 12:00 --duration 30 --booked 09:30-10:00
  appointment-service slots --duration 20 --duration 25 --booked 09:00-09:45`,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := windowFlags(cmd)
			if err != nil {
				return err
			}
			durations, _ := cmd.Flags().GetIntSlice("duration")
			rawBooked, _ := cmd.Flags().GetStringSlice("booked")
			booked, err := parseBookedList(rawBooked)
			if err != nil {
				return err
			}

			starts, err := availability.AvailableSlotsComposite(window, durations, booked)
			if err != nil {
				return err
			}
			total, _ := availability.CompositeDuration(durations...)
			out := make([]slotOutput, 0, len(starts))
			for _, s := range starts {
				out = append(out, slotOutput{
					Start: s.String(),
					End:   availability.FormatEnd(s + availability.TimeOfDay(total)),
				})
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
		},
	}
	addWindowFlags(cmd)
	cmd.Flags().StringSlice("booked", nil, "booked interval HH:MM-HH:MM (repeatable)")
	return cmd
}

func nextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the first free slot on or after a date",
		Example: `  appointment-service next --from 2026-04-14 --booked 2026-04-14=09:00-17:00
  appointment-service next --from 2026-04-18 --days-off sat,sun --lookahead 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := windowFlags(cmd)
			if err != nil {
				return err
			}
			rawFrom, _ := cmd.Flags().GetString("from")
			from, err := model.ParseDate(rawFrom)
			if err != nil {
				return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
			}
			lookahead, _ := cmd.Flags().GetInt("lookahead")
			durations, _ := cmd.Flags().GetIntSlice("duration")
			total, err := availability.CompositeDuration(durations...)
			if err != nil {
				return err
			}
			rawOff, _ := cmd.Flags().GetStringSlice("days-off")
			daysOff, err := parseWeekdays(rawOff)
			if err != nil {
				return err
			}
			rawBooked, _ := cmd.Flags().GetStringSlice("booked")
			bookedByDate, err := parseDatedBooked(rawBooked)
			if err != nil {
				return err
			}

			planner := availability.DayPlannerFunc(func(_ context.Context, day time.Time) (availability.DayPlan, error) {
				if daysOff[day.Weekday()] {
					return availability.DayPlan{}, nil
				}
				return availability.DayPlan{
					Working:      true,
					Window:       window,
					DurationMins: total,
					Booked:       bookedByDate[day.Format(model.DateLayout)],
				}, nil
			})
			next, found, err := availability.FindNextAvailable(cmd.Context(), planner, from, lookahead)
			if err != nil {
				return err
			}
			out := nextOutput{Found: found}
			if found {
				out.Date = next.Date.Format(model.DateLayout)
				out.Start = next.Start.String()
				out.End = availability.FormatEnd(next.Start + availability.TimeOfDay(total))
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
		},
	}
	addWindowFlags(cmd)
	cmd.Flags().String("from", time.Now().UTC().Format(model.DateLayout), "first date to search, YYYY-MM-DD")
	cmd.Flags().Int("lookahead", availability.DefaultLookaheadDays, "number of days to search")
	cmd.Flags().StringSlice("days-off", []string{"sat", "sun"}, "weekdays the provider does not work")
	cmd.Flags().StringSlice("booked", nil, "booked interval YYYY-MM-DD=HH:MM-HH:MM (repeatable)")
	return cmd
}

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().String("window-start", "09:00", "working window start, HH:MM")
	cmd.Flags().String("window-end", "17:00", "working window end, HH:MM (24:00 allowed)")
	cmd.Flags().IntSlice("duration", []int{30}, "slot length in minutes; repeat to book services back-to-back")
}

func windowFlags(cmd *cobra.Command) (availability.Window, error) {
	start, _ := cmd.Flags().GetString("window-start")
	end, _ := cmd.Flags().GetString("window-end")
	return availability.ParseWindow(start, end)
}

func parseBookedList(raw []string) ([]availability.BookedInterval, error) {
	out := make([]availability.BookedInterval, 0, len(raw))
	for _, item := range raw {
		start, end, ok := strings.Cut(strings.TrimSpace(item), "-")
		if !ok {
			return nil, fmt.Errorf("%w: booked interval %q must be HH:MM-HH:MM", availability.ErrInvalidTimeFormat, item)
		}
		out = append(out, availability.BookedInterval{Start: start, End: end})
	}
	return out, nil
}

func parseDatedBooked(raw []string) (map[string][]availability.BookedInterval, error) {
	out := make(map[string][]availability.BookedInterval)
	for _, item := range raw {
		rawDate, interval, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			return nil, fmt.Errorf("booked interval %q must be YYYY-MM-DD=HH:MM-HH:MM", item)
		}
		date, err := model.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("booked interval %q: %w", item, err)
		}
		parsed, err := parseBookedList([]string{interval})
		if err != nil {
			return nil, err
		}
		key := date.Format(model.DateLayout)
		out[key] = append(out[key], parsed...)
	}
	return out, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func parseWeekdays(raw []string) (map[time.Weekday]bool, error) {
	out := make(map[time.Weekday]bool, len(raw))
	for _, name := range raw {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if len(key) > 3 {
			key = key[:3]
		}
		day, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		out[day] = true
	}
	return out, nil
}
