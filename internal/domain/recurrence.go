package domain

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the cadence of a recurring transfer.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// Recurrence is the closed set of recurring schedules: Daily, Weekly or Monthly.
// Every variant fires at a fixed hour and minute in the trigger's time zone.
type Recurrence interface {
	Frequency() Frequency
	// CronSpec returns the five-field cron spec (minute hour dom month dow).
	CronSpec() string
	isRecurrence()
}

// Daily fires every day at Hour:Minute.
type Daily struct {
	Hour   int
	Minute int
}

// Weekly fires once a week. DayOfWeek uses 1-7 numbering starting on Sunday.
type Weekly struct {
	DayOfWeek int
	Hour      int
	Minute    int
}

// Monthly fires on DayOfMonth of every month that has that day.
type Monthly struct {
	DayOfMonth int
	Hour       int
	Minute     int
}

func (Daily) Frequency() Frequency   { return FrequencyDaily }
func (Weekly) Frequency() Frequency  { return FrequencyWeekly }
func (Monthly) Frequency() Frequency { return FrequencyMonthly }

func (d Daily) CronSpec() string { return fmt.Sprintf("%d %d * * *", d.Minute, d.Hour) }

// cron counts weekdays from 0 (Sunday).
func (w Weekly) CronSpec() string {
	return fmt.Sprintf("%d %d * * %d", w.Minute, w.Hour, w.DayOfWeek-1)
}

func (m Monthly) CronSpec() string {
	return fmt.Sprintf("%d %d %d * *", m.Minute, m.Hour, m.DayOfMonth)
}

func (Daily) isRecurrence()   {}
func (Weekly) isRecurrence()  {}
func (Monthly) isRecurrence() {}

// DayOfWeekNumber converts a Go weekday (Sunday = 0) to the 1-7 Sunday-first numbering.
func DayOfWeekNumber(d time.Weekday) int {
	return int(d) + 1
}

// ParseRecurrence maps a case-insensitive pattern onto a Recurrence anchored at start.
// start must already be expressed in the trigger's time zone.
func ParseRecurrence(pattern string, start time.Time) (Recurrence, error) {
	switch strings.ToUpper(strings.TrimSpace(pattern)) {
	case string(FrequencyDaily):
		return Daily{Hour: start.Hour(), Minute: start.Minute()}, nil
	case string(FrequencyWeekly):
		return Weekly{DayOfWeek: DayOfWeekNumber(start.Weekday()), Hour: start.Hour(), Minute: start.Minute()}, nil
	case string(FrequencyMonthly):
		return Monthly{DayOfMonth: start.Day(), Hour: start.Hour(), Minute: start.Minute()}, nil
	default:
		return nil, &InvalidRecurrencePatternError{Pattern: pattern}
	}
}

// NewRecurrence rebuilds a Recurrence from its stored fields.
func NewRecurrence(freq Frequency, hour, minute, dayOfWeek, dayOfMonth int) (Recurrence, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, InvalidArgument("invalid recurrence time %02d:%02d", hour, minute)
	}
	switch freq {
	case FrequencyDaily:
		return Daily{Hour: hour, Minute: minute}, nil
	case FrequencyWeekly:
		if dayOfWeek < 1 || dayOfWeek > 7 {
			return nil, InvalidArgument("invalid day of week %d", dayOfWeek)
		}
		return Weekly{DayOfWeek: dayOfWeek, Hour: hour, Minute: minute}, nil
	case FrequencyMonthly:
		if dayOfMonth < 1 || dayOfMonth > 31 {
			return nil, InvalidArgument("invalid day of month %d", dayOfMonth)
		}
		return Monthly{DayOfMonth: dayOfMonth, Hour: hour, Minute: minute}, nil
	default:
		return nil, &InvalidRecurrencePatternError{Pattern: string(freq)}
	}
}
