package execution

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/usecase/jobcodec"
)

// TransferExecutor runs a transfer on behalf of a customer
type TransferExecutor interface {
	TransferFunds(ctx context.Context, instruction domain.TransferInstruction, customerID int64) (*domain.TransferResult, error)
}

// Bridge turns a fired trigger back into a transfer execution
type Bridge struct {
	executor TransferExecutor
	log      zerolog.Logger
}

// NewBridge creates a Bridge bound to the transfer executor
func NewBridge(executor TransferExecutor, log zerolog.Logger) *Bridge {
	return &Bridge{
		executor: executor,
		log:      log.With().Str("component", "execution").Logger(),
	}
}

// Execute decodes the fire's payload and runs the transfer it describes.
// Every failure is returned as a *domain.JobExecutionError; nothing is retried.
func (b *Bridge) Execute(ctx context.Context, fire domain.Fire) (*domain.TransferResult, error) {
	log := b.log.With().Str("job_id", fire.JobID).Str("trigger_id", fire.TriggerID).Logger()

	job, err := jobcodec.Decode(fire.Payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to decode transfer job")
		return nil, &domain.JobExecutionError{JobID: fire.JobID, TriggerID: fire.TriggerID, Err: err}
	}

	log.Info().
		Int64("customer_id", job.CustomerID).
		Time("scheduled_for", fire.ScheduledFor).
		Msg("executing scheduled transfer")

	result, err := b.executor.TransferFunds(ctx, job.Instruction, job.CustomerID)
	if err != nil {
		log.Error().Err(err).Msg("scheduled transfer failed")
		return nil, &domain.JobExecutionError{JobID: fire.JobID, TriggerID: fire.TriggerID, Err: err}
	}

	log.Info().Str("transaction_id", result.TransactionID).Msg("scheduled transfer completed")
	return result, nil
}
