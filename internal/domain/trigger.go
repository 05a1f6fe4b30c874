package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerKind tells one-time triggers apart from recurring ones.
type TriggerKind string

const (
	TriggerKindOneTime   TriggerKind = "ONE_TIME"
	TriggerKindRecurring TriggerKind = "RECURRING"
)

// MisfirePolicy decides what happens to an occurrence whose fire time passed
// before the store could run it.
type MisfirePolicy string

const (
	// MisfireFireNow fires the missed occurrence as soon as it is recovered.
	MisfireFireNow MisfirePolicy = "FIRE_NOW"
	// MisfireSkipMissed drops missed occurrences and waits for the next one.
	MisfireSkipMissed MisfirePolicy = "SKIP_MISSED"
)

const (
	OneTimeTriggerGroup   = "transfer-triggers"
	RecurringTriggerGroup = "recurring-transfer-triggers"
)

// Trigger describes when a job fires. It is bound to exactly one job and shares
// its name; the group distinguishes one-time from recurring triggers.
type Trigger struct {
	ID          string
	Group       string
	JobID       string
	JobGroup    string
	Description string
	Kind        TriggerKind
	StartAt     time.Time  // UTC
	EndAt       *time.Time // UTC, recurring only
	Recurrence  Recurrence // nil for one-time triggers
	TimeZone    string
	Misfire     MisfirePolicy
	NextFireAt  time.Time // UTC
}

// CronExpression returns the zone-qualified cron expression of a recurring trigger.
func (t *Trigger) CronExpression() string {
	if t.Recurrence == nil {
		return ""
	}
	zone := strings.TrimSpace(t.TimeZone)
	if zone == "" {
		zone = "UTC"
	}
	return "CRON_TZ=" + zone + " " + t.Recurrence.CronSpec()
}

func (t *Trigger) schedule() (cron.Schedule, error) {
	expr := t.CronExpression()
	if expr == "" {
		return nil, InvalidArgument("trigger %s has no recurrence", t.ID)
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, InvalidArgument("invalid cron expression %q: %v", expr, err)
	}
	return sched, nil
}

// FirstFireTime returns the first instant the trigger fires, or ErrTriggerNeverFires.
func (t *Trigger) FirstFireTime() (time.Time, error) {
	if t.Kind == TriggerKindOneTime {
		return t.StartAt.UTC(), nil
	}
	next, ok, err := t.FireTimeAfter(t.StartAt.Truncate(time.Second).Add(-time.Second))
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, fmt.Errorf("trigger %s: %w", t.ID, ErrTriggerNeverFires)
	}
	return next, nil
}

// FireTimeAfter returns the next occurrence strictly after the given instant.
// ok is false once the trigger is exhausted: always for one-time triggers, and for
// recurring ones when the next occurrence would fall after EndAt.
func (t *Trigger) FireTimeAfter(after time.Time) (next time.Time, ok bool, err error) {
	if t.Kind == TriggerKindOneTime {
		return time.Time{}, false, nil
	}
	sched, err := t.schedule()
	if err != nil {
		return time.Time{}, false, err
	}
	next = sched.Next(after)
	if next.IsZero() {
		return time.Time{}, false, nil
	}
	next = next.UTC()
	if t.EndAt != nil && next.After(*t.EndAt) {
		return time.Time{}, false, nil
	}
	return next, true, nil
}

// IsMisfired reports whether an occurrence due at scheduledFor is considered missed at now.
func IsMisfired(scheduledFor, now time.Time, threshold time.Duration) bool {
	return now.Sub(scheduledFor) > threshold
}
