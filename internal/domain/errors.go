package domain

import (
	"errors"
	"fmt"
)

var (
	// Business rule rejections, surfaced verbatim and never retried.
	ErrAccountNotFound   = errors.New("account not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrInsufficientFunds = errors.New("insufficient funds in the sender account")
	ErrAccessDenied      = errors.New("access denied")

	// Validation errors.
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrInvalidRecurrencePattern = errors.New("invalid recurrence pattern")

	// Scheduling subsystem errors.
	ErrSchedulingFailure         = errors.New("failed to schedule transfer")
	ErrTransferSchedulingFailure = errors.New("an unexpected error occurred while scheduling transfer")
	ErrJobExecutionFailure       = errors.New("an unexpected error occurred while executing transfer job")
	ErrTriggerNeverFires         = errors.New("based on configured schedule, the given trigger will never fire")
	ErrDuplicateJob              = errors.New("job or trigger with the same identity already exists")

	// Infrastructure errors.
	ErrDataAccess           = errors.New("data access error")
	ErrBalanceUpdateFailure = errors.New("failed to update account balance")
)

// InvalidArgument builds an ErrInvalidArgument carrying a human readable reason.
func InvalidArgument(format string, args ...any) error {
	return &invalidArgumentError{msg: fmt.Sprintf(format, args...)}
}

type invalidArgumentError struct {
	msg string
}

func (e *invalidArgumentError) Error() string { return e.msg }

func (e *invalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// InvalidRecurrencePatternError is returned when a recurrence pattern is not one of
// DAILY, WEEKLY or MONTHLY. It matches both ErrInvalidRecurrencePattern and
// ErrInvalidArgument.
type InvalidRecurrencePatternError struct {
	Pattern string
}

func (e *InvalidRecurrencePatternError) Error() string {
	return "Invalid recurrence pattern: " + e.Pattern
}

func (e *InvalidRecurrencePatternError) Is(target error) bool {
	return target == ErrInvalidRecurrencePattern || target == ErrInvalidArgument
}

// JobExecutionError wraps any failure raised while running a fired job.
type JobExecutionError struct {
	JobID     string
	TriggerID string
	Err       error
}

func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("%s (job %s, trigger %s): %v", ErrJobExecutionFailure.Error(), e.JobID, e.TriggerID, e.Err)
}

func (e *JobExecutionError) Is(target error) bool { return target == ErrJobExecutionFailure }

func (e *JobExecutionError) Unwrap() error { return e.Err }

// PartialTransferError reports that the sender balance was updated but the receiver
// balance was not. The external state is inconsistent until reconciled by hand.
type PartialTransferError struct {
	SenderAccountID   int64
	ReceiverAccountID int64
	Err               error
}

func (e *PartialTransferError) Error() string {
	return fmt.Sprintf("sender account %d was debited but receiver account %d could not be credited: %v",
		e.SenderAccountID, e.ReceiverAccountID, e.Err)
}

func (e *PartialTransferError) Is(target error) bool { return target == ErrBalanceUpdateFailure }

func (e *PartialTransferError) Unwrap() error { return e.Err }
