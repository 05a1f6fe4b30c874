package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LocalDateTimeLayout is the wire layout for wall-clock times that carry no offset.
// The zone they are read in comes from TransferInstruction.TimeZone.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

// AmountScale is the number of decimal places the ledger stores for amounts and balances.
const AmountScale = 4

// TransferInstruction describes a funds transfer, either immediate, deferred to a
// single point in time, or recurring between StartDate and EndDate.
//
// ScheduledTime, StartDate and EndDate are wall-clock values: only their
// date and clock fields are used, their location is ignored and TimeZone applies.
type TransferInstruction struct {
	SenderAccountID   int64
	ReceiverAccountID int64
	ReceiverName      string
	Amount            decimal.Decimal
	Note              string
	TransactionType   string

	// One-time
	ScheduledTime time.Time

	// Recurring
	RecurrencePattern string
	StartDate         time.Time
	EndDate           time.Time

	TimeZone string
}

// IsRecurring reports whether the instruction carries a recurrence pattern.
func (i *TransferInstruction) IsRecurring() bool {
	return strings.TrimSpace(i.RecurrencePattern) != ""
}

// ValidateTransfer checks the fields needed to move funds right now.
func (i *TransferInstruction) ValidateTransfer() error {
	if i.SenderAccountID <= 0 {
		return InvalidArgument("sender account id is required")
	}
	if i.ReceiverAccountID <= 0 {
		return InvalidArgument("receiver account id is required")
	}
	if i.Amount.LessThanOrEqual(decimal.Zero) {
		return InvalidArgument("transfer amount must be positive")
	}
	if !i.Amount.Equal(i.Amount.Truncate(AmountScale)) {
		return InvalidArgument("transfer amount must have at most %d decimal places", AmountScale)
	}
	return nil
}

// Validate checks a deferred instruction: exactly one of ScheduledTime and
// RecurrencePattern must be populated, and recurring instructions need both dates.
func (i *TransferInstruction) Validate() error {
	if err := i.ValidateTransfer(); err != nil {
		return err
	}

	hasSchedule := !i.ScheduledTime.IsZero()
	if hasSchedule == i.IsRecurring() {
		return InvalidArgument("exactly one of scheduled time or recurrence pattern must be set")
	}

	if i.IsRecurring() {
		if i.StartDate.IsZero() || i.EndDate.IsZero() {
			return InvalidArgument("recurring transfers require a start date and an end date")
		}
		if i.EndDate.Before(i.StartDate) {
			return InvalidArgument("end date must not be before start date")
		}
	}

	if strings.TrimSpace(i.TimeZone) == "" {
		return InvalidArgument("time zone is required")
	}

	return nil
}

// ResolveIn interprets the wall clock of t in loc.
func ResolveIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// LoadZone loads an IANA time zone, mapping lookup failures to ErrInvalidArgument.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, InvalidArgument("time zone is required")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, InvalidArgument("unknown time zone %q", name)
	}
	return loc, nil
}
