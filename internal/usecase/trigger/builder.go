package trigger

import (
	"fmt"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

const (
	oneTimeDescription   = "Fund Transfer Trigger"
	recurringDescription = "Recurring Fund Transfer Trigger"
)

// Build creates the trigger for a job from the instruction's timing fields.
// Instructions with a recurrence pattern get a recurring trigger, all others a
// one-time trigger.
func Build(job *domain.ScheduledJob, instruction domain.TransferInstruction) (*domain.Trigger, error) {
	if instruction.IsRecurring() {
		return BuildRecurring(job, instruction)
	}
	return BuildOneTime(job, instruction)
}

// BuildOneTime creates a trigger firing once at ScheduledTime in the instruction's
// time zone. A missed fire time still fires as soon as the store recovers it.
func BuildOneTime(job *domain.ScheduledJob, instruction domain.TransferInstruction) (*domain.Trigger, error) {
	loc, err := domain.LoadZone(instruction.TimeZone)
	if err != nil {
		return nil, err
	}
	if instruction.ScheduledTime.IsZero() {
		return nil, domain.InvalidArgument("scheduled time is required for a one-time transfer")
	}

	startAt := domain.ResolveIn(instruction.ScheduledTime, loc).UTC()

	return &domain.Trigger{
		ID:          job.ID,
		Group:       domain.OneTimeTriggerGroup,
		JobID:       job.ID,
		JobGroup:    job.Group,
		Description: oneTimeDescription,
		Kind:        domain.TriggerKindOneTime,
		StartAt:     startAt,
		TimeZone:    loc.String(),
		Misfire:     domain.MisfireFireNow,
		NextFireAt:  startAt,
	}, nil
}

// BuildRecurring creates a cron-backed trigger active between StartDate and EndDate.
//
// The recurrence is anchored on the start date as seen in the instruction's zone:
//   - DAILY fires every day at the start's hour and minute
//   - WEEKLY fires on the start's weekday
//   - MONTHLY fires on the start's day of month
func BuildRecurring(job *domain.ScheduledJob, instruction domain.TransferInstruction) (*domain.Trigger, error) {
	loc, err := domain.LoadZone(instruction.TimeZone)
	if err != nil {
		return nil, err
	}

	startLocal := domain.ResolveIn(instruction.StartDate, loc)
	endLocal := domain.ResolveIn(instruction.EndDate, loc)
	if endLocal.Before(startLocal) {
		return nil, domain.InvalidArgument("end date must not be before start date")
	}

	recurrence, err := domain.ParseRecurrence(instruction.RecurrencePattern, startLocal)
	if err != nil {
		return nil, err
	}

	endAt := endLocal.UTC()
	trig := &domain.Trigger{
		ID:          job.ID,
		Group:       domain.RecurringTriggerGroup,
		JobID:       job.ID,
		JobGroup:    job.Group,
		Description: recurringDescription,
		Kind:        domain.TriggerKindRecurring,
		StartAt:     startLocal.UTC(),
		EndAt:       &endAt,
		Recurrence:  recurrence,
		TimeZone:    loc.String(),
		Misfire:     domain.MisfireSkipMissed,
	}

	next, err := trig.FirstFireTime()
	if err != nil {
		return nil, fmt.Errorf("failed to compute first fire time: %w", err)
	}
	trig.NextFireAt = next

	return trig, nil
}
