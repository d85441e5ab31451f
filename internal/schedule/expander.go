// Package schedule expands class templates into dated occurrences. Expansion
// is pure: it touches no store and computes every occurrence date directly
// from (week index, slot), never from a carried loop variable.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/studiodans/dance-booking/internal/models"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// defaultClassLength is used for non-recurring templates that carry no slot
// to take a duration from.
const defaultClassLength = time.Hour

// Occurrence is one concrete start/end pair produced by expansion.
type Occurrence struct {
	StartsAt time.Time
	EndsAt   time.Time
}

// Expand turns a template into its ordered occurrences. Recurring templates
// yield one occurrence per (week, slot) whose date falls inside
// [StartDate, EndDate]; non-recurring templates yield exactly one occurrence
// at StartsAt.
func Expand(tpl *models.ClassTemplate) ([]Occurrence, error) {
	if !tpl.Recurring {
		if tpl.StartsAt == nil {
			return nil, fmt.Errorf("%w: non-recurring template has no start time", ErrInvalidSchedule)
		}
		end := tpl.StartsAt.Add(defaultClassLength)
		if len(tpl.Slots) == 1 {
			dur, err := slotDuration(tpl.Slots[0])
			if err != nil {
				return nil, err
			}
			end = tpl.StartsAt.Add(dur)
		}
		return []Occurrence{{StartsAt: *tpl.StartsAt, EndsAt: end}}, nil
	}

	windowStart := dateOf(tpl.StartDate)
	windowEnd := dateOf(tpl.EndDate)
	if windowEnd.Before(windowStart) {
		return nil, fmt.Errorf("%w: end date %s before start date %s",
			ErrInvalidSchedule, windowEnd.Format("2006-01-02"), windowStart.Format("2006-01-02"))
	}
	if len(tpl.Slots) == 0 {
		return nil, fmt.Errorf("%w: recurring template has no weekly slots", ErrInvalidSchedule)
	}
	for _, slot := range tpl.Slots {
		if _, err := slotDuration(slot); err != nil {
			return nil, err
		}
	}

	var out []Occurrence
	for week := 0; ; week++ {
		// Calendar-day stepping, not elapsed hours: a DST transition makes a
		// week 167 or 169 hours long without changing its dates.
		if windowStart.AddDate(0, 0, week*7).After(windowEnd) {
			break
		}
		for _, slot := range tpl.Slots {
			day := slotDate(windowStart, week, slot.DayOfWeek)
			if day.Before(windowStart) || day.After(windowEnd) {
				continue
			}
			start, _ := combine(day, slot.StartTime)
			end, _ := combine(day, slot.EndTime)
			out = append(out, Occurrence{StartsAt: start, EndsAt: end})
		}
	}
	return out, nil
}

// slotDate derives a slot's date for a given week purely from the window
// start. The +7 mod 7 offset pins every slot inside its own 7-day step, so a
// slot whose weekday precedes the window start's weekday lands later in the
// same step rather than in the previous week.
func slotDate(windowStart time.Time, week int, day time.Weekday) time.Time {
	offset := (int(day) - int(windowStart.Weekday()) + 7) % 7
	return windowStart.AddDate(0, 0, week*7+offset)
}

func slotDuration(slot models.WeeklySlot) (time.Duration, error) {
	start, err := parseClock(slot.StartTime)
	if err != nil {
		return 0, err
	}
	end, err := parseClock(slot.EndTime)
	if err != nil {
		return 0, err
	}
	if end <= start {
		return 0, fmt.Errorf("%w: slot %s-%s has non-positive duration",
			ErrInvalidSchedule, slot.StartTime, slot.EndTime)
	}
	return end - start, nil
}

// parseClock parses an "HH:MM" wall-clock string as a duration from midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time %q", ErrInvalidSchedule, s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// combine anchors a wall-clock time on the given date. Built with time.Date
// rather than midnight plus a duration so the clock reading survives a DST
// shift earlier the same day.
func combine(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad time %q", ErrInvalidSchedule, clock)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
