package grpc

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/usecase/scheduling"
	"github.com/simaogato/transferflow-backend/internal/usecase/transfer"
)

// TransferScheduler schedules deferred transfers
type TransferScheduler interface {
	ScheduleTransfer(ctx context.Context, customerID int64, instruction domain.TransferInstruction) (*scheduling.ScheduleResult, error)
}

// TransferEngine executes transfers and lists the resulting ledger entries
type TransferEngine interface {
	TransferFunds(ctx context.Context, instruction domain.TransferInstruction, customerID int64) (*domain.TransferResult, error)
	GetTransactionsByAccount(ctx context.Context, q transfer.TransactionQuery) (*transfer.TransactionPage, error)
}

// Server implements the TransferService gRPC server
type Server struct {
	SchedulingService TransferScheduler
	TransferService   TransferEngine

	log zerolog.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(schedulingService TransferScheduler, transferService TransferEngine, log zerolog.Logger) *Server {
	return &Server{
		SchedulingService: schedulingService,
		TransferService:   transferService,
		log:               log.With().Str("component", "grpc").Logger(),
	}
}

// ScheduleTransfer handles the ScheduleTransfer RPC.
// Request fields: senderAccountId, receiverAccountId, receiverName, amount, note,
// transactionType, timeZone and either scheduledTime or recurrencePattern with
// startDate and endDate. Times use the 2006-01-02T15:04:05 layout.
func (s *Server) ScheduleTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	customerID, err := requireCustomer(ctx)
	if err != nil {
		return nil, err
	}

	instruction, err := instructionFromStruct(req)
	if err != nil {
		return nil, mapError(err)
	}

	result, err := s.SchedulingService.ScheduleTransfer(ctx, customerID, instruction)
	if err != nil {
		s.log.Warn().Err(err).Int64("customer_id", customerID).Msg("schedule transfer rejected")
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]any{
		"status":    result.Status,
		"message":   result.Message,
		"jobId":     result.JobID,
		"triggerId": result.TriggerID,
	})
}

// TransferFunds handles the TransferFunds RPC
func (s *Server) TransferFunds(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	customerID, err := requireCustomer(ctx)
	if err != nil {
		return nil, err
	}

	instruction, err := instructionFromStruct(req)
	if err != nil {
		return nil, mapError(err)
	}

	result, err := s.TransferService.TransferFunds(ctx, instruction, customerID)
	if err != nil {
		s.log.Warn().Err(err).Int64("customer_id", customerID).Msg("transfer rejected")
		return nil, mapError(err)
	}

	return structpb.NewStruct(map[string]any{
		"transactionId":      result.TransactionID,
		"message":            result.Message,
		"sourceBalance":      result.SourceBalance.String(),
		"destinationBalance": result.DestinationBalance.String(),
		"status":             string(result.Status),
	})
}

// GetTransactionsByAccount handles the GetTransactionsByAccount RPC.
// Request fields: accountId, page (default 1), pageSize (default 10), sortBy, sortOrder.
// The account must belong to the calling customer.
func (s *Server) GetTransactionsByAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	customerID, err := requireCustomer(ctx)
	if err != nil {
		return nil, err
	}

	q, err := queryFromStruct(req)
	if err != nil {
		return nil, mapError(err)
	}
	q.CustomerID = customerID

	page, err := s.TransferService.GetTransactionsByAccount(ctx, q)
	if err != nil {
		s.log.Warn().Err(err).Int64("customer_id", customerID).Int64("account_id", q.AccountID).Msg("transaction history rejected")
		return nil, mapError(err)
	}

	resp, err := pageToStruct(page)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return resp, nil
}

func requireCustomer(ctx context.Context) (int64, error) {
	customerID, ok := CustomerIDFromContext(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "missing customer id")
	}
	return customerID, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrCustomerNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrAccessDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrSchedulingFailure):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
