package catalog

import (
	"time"
)

const DateKeyLayout = "2006-01-02"

// PickupDay is one published pickup date with its inclusive hour range.
type PickupDay struct {
	Date      time.Time
	StartHour int
	EndHour   int
}

func (d PickupDay) Key() string {
	return d.Date.Format(DateKeyLayout)
}

func (d PickupDay) Contains(hour int) bool {
	return hour >= d.StartHour && hour <= d.EndHour
}

func (d PickupDay) Hours() []int {
	hours := make([]int, 0, d.EndHour-d.StartHour+1)
	for h := d.StartHour; h <= d.EndHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// At is the pickup moment for hour on this day, in the day's location.
func (d PickupDay) At(hour int) time.Time {
	return time.Date(d.Date.Year(), d.Date.Month(), d.Date.Day(), hour, 0, 0, 0, d.Date.Location())
}

// Schedule is an ordered set of pickup days.
type Schedule struct {
	Days []PickupDay
}

func (s Schedule) Day(key string) (PickupDay, bool) {
	for _, d := range s.Days {
		if d.Key() == key {
			return d, true
		}
	}
	return PickupDay{}, false
}

// Offers reports whether the wall-clock moment t is a bookable slot.
func (s Schedule) Offers(t time.Time) bool {
	if len(s.Days) == 0 {
		return false
	}
	local := t.In(s.Days[0].Date.Location())
	day, ok := s.Day(local.Format(DateKeyLayout))
	if !ok || local.Minute() != 0 || local.Second() != 0 {
		return false
	}
	return day.Contains(local.Hour())
}

// Scheduler publishes a rolling window of pickup days starting today.
type Scheduler struct {
	Days          int
	StartHour     int
	EndHour       int
	SundayEndHour int
	Location      *time.Location
}

// Published returns the schedule as seen at now. Hours of today that have
// already started are dropped, and so is today when none remain.
func (s Scheduler) Published(now time.Time) Schedule {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var sched Schedule
	for i := 0; i < s.Days; i++ {
		date := today.AddDate(0, 0, i)
		day := PickupDay{Date: date, StartHour: s.StartHour, EndHour: s.EndHour}
		if date.Weekday() == time.Sunday {
			day.EndHour = s.SundayEndHour
		}
		if i == 0 && day.StartHour <= local.Hour() {
			day.StartHour = local.Hour() + 1
		}
		if day.StartHour > day.EndHour {
			continue
		}
		sched.Days = append(sched.Days, day)
	}
	return sched
}
