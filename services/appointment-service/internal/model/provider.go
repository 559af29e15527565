package model

import "time"

type Provider struct {
	ID                  string
	ClinicID            string
	Name                string
	SlotDurationMinutes int
	IsActive            bool
}

// WorkingHours is one weekday row of a provider's schedule, in minutes since midnight.
type WorkingHours struct {
	ProviderID  string
	Weekday     time.Weekday
	IsWorking   bool
	StartMinute int
	EndMinute   int
}

// DefaultWorkingHours is used when a provider has no row for the weekday: Mon-Fri 09:00-17:00.
func DefaultWorkingHours(providerID string, weekday time.Weekday) WorkingHours {
	working := weekday >= time.Monday && weekday <= time.Friday
	wh := WorkingHours{ProviderID: providerID, Weekday: weekday, IsWorking: working}
	if working {
		wh.StartMinute = 540
		wh.EndMinute = 1020
	}
	return wh
}

type ClinicService struct {
	ID              string
	ClinicID        string
	Name            string
	DurationMinutes int
}
