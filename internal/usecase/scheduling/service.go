package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/usecase/jobcodec"
	"github.com/simaogato/transferflow-backend/internal/usecase/trigger"
)

const (
	StatusSuccess = "SUCCESS"

	scheduledMessage = "Transfer scheduled successfully!"
	jobDescription   = "Fund Transfer Job"
)

// JobScheduler persists a job together with its trigger
type JobScheduler interface {
	Schedule(ctx context.Context, job *domain.ScheduledJob, trig *domain.Trigger) error
}

// ScheduleResult is returned once a transfer is durably scheduled
type ScheduleResult struct {
	Status    string
	Message   string
	JobID     string
	TriggerID string
}

// SchedulingService turns transfer instructions into durable, time-triggered jobs
type SchedulingService struct {
	AccountService domain.AccountService
	Scheduler      JobScheduler

	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// NewSchedulingService creates a new SchedulingService instance
func NewSchedulingService(accountService domain.AccountService, scheduler JobScheduler, log zerolog.Logger) *SchedulingService {
	return &SchedulingService{
		AccountService: accountService,
		Scheduler:      scheduler,
		log:            log.With().Str("component", "scheduling").Logger(),
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// ScheduleTransfer schedules a one-time or recurring transfer for a customer
// Logic:
//  1. Validate the instruction
//  2. Confirm the sender account belongs to the customer
//  3. Encode the job payload (instruction + customer id)
//  4. Build the trigger from the timing fields
//  5. Submit job and trigger to the scheduler
//
// Validation and account errors are returned as is, store failures match
// domain.ErrSchedulingFailure and anything else domain.ErrTransferSchedulingFailure.
func (s *SchedulingService) ScheduleTransfer(ctx context.Context, customerID int64, instruction domain.TransferInstruction) (*ScheduleResult, error) {
	// 1. Validate the instruction
	if err := instruction.Validate(); err != nil {
		return nil, err
	}

	// 2. Confirm the sender account belongs to the customer
	s.log.Info().Int64("customer_id", customerID).Msg("fetching accounts for customer")
	accounts, err := s.AccountService.ListAccounts(ctx, customerID)
	if err != nil {
		s.log.Error().Err(err).Int64("customer_id", customerID).Msg("failed to fetch sender's accounts")
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to fetch accounts: %v", domain.ErrAccountNotFound, err)
	}
	if domain.FindAccount(accounts, instruction.SenderAccountID) == nil {
		s.log.Error().Int64("account_id", instruction.SenderAccountID).Msg("sender account not found")
		return nil, fmt.Errorf("%w: Sender account not found", domain.ErrAccountNotFound)
	}

	// 3. Encode the job payload
	payload, err := jobcodec.Encode(domain.TransferJob{Instruction: instruction, CustomerID: customerID})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode transfer job")
		return nil, fmt.Errorf("%w: %w", domain.ErrTransferSchedulingFailure, err)
	}
	job := &domain.ScheduledJob{
		ID:          s.newID(),
		Group:       domain.JobGroup,
		Description: jobDescription,
		Payload:     payload,
		CreatedAt:   s.now().UTC(),
	}

	// 4. Build the trigger
	trig, err := trigger.Build(job, instruction)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTriggerNeverFires):
			return nil, fmt.Errorf("%w: %w", domain.ErrSchedulingFailure, err)
		case errors.Is(err, domain.ErrInvalidArgument):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %w", domain.ErrTransferSchedulingFailure, err)
		}
	}

	// 5. Submit to the scheduler
	s.log.Info().
		Int64("account_id", instruction.SenderAccountID).
		Str("job_id", job.ID).
		Str("trigger_group", trig.Group).
		Time("next_fire_at", trig.NextFireAt).
		Msg("scheduling transfer job")
	if err := s.Scheduler.Schedule(ctx, job, trig); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to schedule transfer job")
		if errors.Is(err, domain.ErrSchedulingFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrTransferSchedulingFailure, err)
	}

	return &ScheduleResult{
		Status:    StatusSuccess,
		Message:   scheduledMessage,
		JobID:     job.ID,
		TriggerID: trig.ID,
	}, nil
}
