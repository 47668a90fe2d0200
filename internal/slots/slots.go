// Package slots turns a guide's weekly availability into bookable
// fixed-length slots over a rolling two-week window.
package slots

import (
	"strings"
	"time"

	"guide-booking/internal/models"
)

// HorizonDays is the number of calendar days, today included, that
// Generate covers.
const HorizonDays = 14

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// EndOfDay is accepted as a window end and means the following midnight.
const EndOfDay = "24:00"

// Window returns the [from, to) interval Generate looks at for today in loc.
func Window(today time.Time, loc *time.Location) (time.Time, time.Time) {
	from := truncateToDate(today.In(loc), loc)
	return from, from.AddDate(0, 0, HorizonDays)
}

// Generate tiles every weekly window of avail into slots of duration
// minutes for today and the following 13 days. Days listed as unavailable
// are skipped, slots starting exactly at a booked time are dropped and days
// left without slots are omitted. A nil avail yields no slots.
func Generate(avail *models.Availability, booked []time.Time, duration int, today time.Time, loc *time.Location) []models.DaySlots {
	result := []models.DaySlots{}
	if avail == nil || duration <= 0 {
		return result
	}
	if loc == nil {
		loc = time.UTC
	}

	blocked := make(map[string]struct{}, len(avail.UnavailableDates))
	for _, d := range avail.UnavailableDates {
		blocked[d] = struct{}{}
	}

	taken := make(map[int64]struct{}, len(booked))
	for _, t := range booked {
		taken[t.Unix()] = struct{}{}
	}

	slotDur := time.Duration(duration) * time.Minute
	start, _ := Window(today, loc)

	for i := 0; i < HorizonDays; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format(dateLayout)

		if _, ok := blocked[key]; ok {
			continue
		}

		windows := avail.WeeklyAvailability[strings.ToLower(day.Weekday().String())]
		if len(windows) == 0 {
			continue
		}

		var daySlots []models.Slot
		for _, w := range windows {
			ws, ok := clockOn(day, w.StartTime, loc)
			if !ok {
				continue
			}
			we, ok := endOn(day, w.EndTime, loc)
			if !ok {
				continue
			}

			// cur + slotDur <= we: a partial trailing slot is dropped
			for cur := ws; !cur.Add(slotDur).After(we); cur = cur.Add(slotDur) {
				if _, ok := taken[cur.Unix()]; ok {
					continue
				}
				end := cur.Add(slotDur)
				endClock := end.Format(timeLayout)
				if !sameDate(cur, end) {
					endClock = EndOfDay
				}
				daySlots = append(daySlots, models.Slot{
					StartTime: cur.Format(timeLayout),
					EndTime:   endClock,
					StartsAt:  cur,
				})
			}
		}

		if len(daySlots) == 0 {
			continue
		}

		result = append(result, models.DaySlots{Date: key, Slots: daySlots})
	}

	return result
}

// ParseClock validates an "HH:MM" 24-hour time string between 00:00 and
// 23:59. Both digits of the hour are required.
func ParseClock(s string) (hour, minute int, ok bool) {
	if len(s) != len(timeLayout) {
		return 0, 0, false
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

// ParseEndClock is ParseClock that also accepts EndOfDay.
func ParseEndClock(s string) (hour, minute int, ok bool) {
	if s == EndOfDay {
		return 24, 0, true
	}
	return ParseClock(s)
}

func clockOn(day time.Time, clock string, loc *time.Location) (time.Time, bool) {
	h, m, ok := ParseClock(clock)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc), true
}

// endOn resolves a window end; EndOfDay lands on the next day's midnight.
func endOn(day time.Time, clock string, loc *time.Location) (time.Time, bool) {
	h, m, ok := ParseEndClock(clock)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc), true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func truncateToDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
