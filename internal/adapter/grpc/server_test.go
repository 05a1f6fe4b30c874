package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/usecase/scheduling"
	"github.com/simaogato/transferflow-backend/internal/usecase/transfer"
)

const testToken = "test-token-123"

// MockScheduler is a mock implementation of TransferScheduler
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) ScheduleTransfer(ctx context.Context, customerID int64, instruction domain.TransferInstruction) (*scheduling.ScheduleResult, error) {
	args := m.Called(ctx, customerID, instruction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scheduling.ScheduleResult), args.Error(1)
}

// MockEngine is a mock implementation of TransferEngine
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) TransferFunds(ctx context.Context, instruction domain.TransferInstruction, customerID int64) (*domain.TransferResult, error) {
	args := m.Called(ctx, instruction, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferResult), args.Error(1)
}

func (m *MockEngine) GetTransactionsByAccount(ctx context.Context, q transfer.TransactionQuery) (*transfer.TransactionPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.TransactionPage), args.Error(1)
}

// startServer serves the TransferService over an in-memory listener
func startServer(t *testing.T, scheduler TransferScheduler, engine TransferEngine) *TransferServiceClient {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(grpc.UnaryInterceptor(AuthInterceptor(testToken)))
	RegisterTransferServiceServer(srv, NewServer(scheduler, engine, zerolog.Nop()))
	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
	})
	return NewTransferServiceClient(conn)
}

func authedContext(customerID int64) context.Context {
	pairs := []string{"authorization", testToken}
	if customerID > 0 {
		pairs = append(pairs, "x-customer-id", fmt.Sprint(customerID))
	}
	return metadata.NewOutgoingContext(context.Background(), metadata.Pairs(pairs...))
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	st, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return st
}

func oneTimeRequest(t *testing.T) *structpb.Struct {
	return mustStruct(t, map[string]any{
		"senderAccountId":   1,
		"receiverAccountId": "2",
		"receiverName":      "Bob",
		"amount":            "100.50",
		"note":              "rent",
		"transactionType":   "Transfer",
		"scheduledTime":     "2025-10-20T10:00:00",
		"timeZone":          "Europe/London",
	})
}

func TestScheduleTransfer_Success(t *testing.T) {
	scheduler := new(MockScheduler)
	client := startServer(t, scheduler, new(MockEngine))

	scheduler.On("ScheduleTransfer", mock.Anything, int64(67890), mock.MatchedBy(func(in domain.TransferInstruction) bool {
		return in.SenderAccountID == 1 &&
			in.ReceiverAccountID == 2 &&
			in.ReceiverName == "Bob" &&
			in.Amount.Equal(decimal.RequireFromString("100.50")) &&
			in.ScheduledTime.Equal(time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)) &&
			in.TimeZone == "Europe/London" &&
			!in.IsRecurring()
	})).Return(&scheduling.ScheduleResult{
		Status:    scheduling.StatusSuccess,
		Message:   "Transfer scheduled successfully!",
		JobID:     "job-1",
		TriggerID: "trigger-1",
	}, nil)

	resp, err := client.ScheduleTransfer(authedContext(67890), oneTimeRequest(t))

	require.NoError(t, err)
	got := resp.AsMap()
	assert.Equal(t, "SUCCESS", got["status"])
	assert.Equal(t, "Transfer scheduled successfully!", got["message"])
	assert.Equal(t, "job-1", got["jobId"])
	assert.Equal(t, "trigger-1", got["triggerId"])
	scheduler.AssertExpectations(t)
}

func TestScheduleTransfer_Unauthenticated(t *testing.T) {
	tests := []struct {
		name   string
		ctx    context.Context
		errMsg string
	}{
		{
			name:   "No token",
			ctx:    context.Background(),
			errMsg: "missing",
		},
		{
			name:   "Wrong token",
			ctx:    metadata.NewOutgoingContext(context.Background(), metadata.Pairs("authorization", "nope")),
			errMsg: "invalid token",
		},
		{
			name:   "No customer",
			ctx:    authedContext(0),
			errMsg: "missing customer id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := new(MockScheduler)
			client := startServer(t, scheduler, new(MockEngine))

			_, err := client.ScheduleTransfer(tt.ctx, oneTimeRequest(t))

			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, codes.Unauthenticated, st.Code())
			assert.Contains(t, st.Message(), tt.errMsg)
			scheduler.AssertNotCalled(t, "ScheduleTransfer", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestScheduleTransfer_MalformedRequest(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		errMsg string
	}{
		{
			name:   "Bad amount",
			fields: map[string]any{"senderAccountId": 1, "receiverAccountId": 2, "amount": "ten"},
			errMsg: "invalid amount",
		},
		{
			name:   "Bad account id",
			fields: map[string]any{"senderAccountId": "one", "receiverAccountId": 2, "amount": "10"},
			errMsg: "invalid senderAccountId",
		},
		{
			name:   "Bad time layout",
			fields: map[string]any{"senderAccountId": 1, "receiverAccountId": 2, "amount": "10", "scheduledTime": "20/10/2025 10:00"},
			errMsg: "invalid scheduledTime",
		},
		{
			name:   "Object where string expected",
			fields: map[string]any{"senderAccountId": 1, "receiverAccountId": 2, "amount": "10", "note": map[string]any{"a": "b"}},
			errMsg: "invalid note",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := new(MockScheduler)
			client := startServer(t, scheduler, new(MockEngine))

			_, err := client.ScheduleTransfer(authedContext(67890), mustStruct(t, tt.fields))

			assert.Equal(t, codes.InvalidArgument, status.Code(err))
			assert.Contains(t, err.Error(), tt.errMsg)
			scheduler.AssertNotCalled(t, "ScheduleTransfer", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestScheduleTransfer_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
	}{
		{name: "Validation", err: domain.InvalidArgument("time zone is required"), wantCode: codes.InvalidArgument},
		{name: "Bad pattern", err: &domain.InvalidRecurrencePatternError{Pattern: "YEARLY"}, wantCode: codes.InvalidArgument},
		{name: "Sender not owned", err: fmt.Errorf("%w: Sender account not found", domain.ErrAccountNotFound), wantCode: codes.NotFound},
		{name: "Store down", err: fmt.Errorf("%w: connection refused", domain.ErrSchedulingFailure), wantCode: codes.Unavailable},
		{name: "Unexpected", err: domain.ErrTransferSchedulingFailure, wantCode: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := new(MockScheduler)
			client := startServer(t, scheduler, new(MockEngine))
			scheduler.On("ScheduleTransfer", mock.Anything, int64(67890), mock.Anything).Return(nil, tt.err)

			_, err := client.ScheduleTransfer(authedContext(67890), oneTimeRequest(t))

			assert.Equal(t, tt.wantCode, status.Code(err))
		})
	}
}

func TestTransferFunds_Success(t *testing.T) {
	engine := new(MockEngine)
	client := startServer(t, new(MockScheduler), engine)

	engine.On("TransferFunds", mock.Anything, mock.MatchedBy(func(in domain.TransferInstruction) bool {
		return in.SenderAccountID == 1 && in.ReceiverAccountID == 2 && in.Amount.Equal(decimal.NewFromInt(100))
	}), int64(67890)).Return(&domain.TransferResult{
		TransactionID:      "TXN17605544000001a2b3c4d",
		Message:            "Transfer successful",
		SourceBalance:      decimal.NewFromInt(400),
		DestinationBalance: decimal.NewFromInt(400),
		Status:             domain.TransactionStatusSuccess,
	}, nil)

	resp, err := client.TransferFunds(authedContext(67890), mustStruct(t, map[string]any{
		"senderAccountId":   1,
		"receiverAccountId": 2,
		"amount":            100,
	}))

	require.NoError(t, err)
	got := resp.AsMap()
	assert.Equal(t, "TXN17605544000001a2b3c4d", got["transactionId"])
	assert.Equal(t, "Transfer successful", got["message"])
	assert.Equal(t, "400", got["sourceBalance"])
	assert.Equal(t, "400", got["destinationBalance"])
	assert.Equal(t, "Success", got["status"])
}

func TestTransferFunds_InsufficientFunds(t *testing.T) {
	engine := new(MockEngine)
	client := startServer(t, new(MockScheduler), engine)
	engine.On("TransferFunds", mock.Anything, mock.Anything, int64(67890)).Return(nil, domain.ErrInsufficientFunds)

	_, err := client.TransferFunds(authedContext(67890), mustStruct(t, map[string]any{
		"senderAccountId":   1,
		"receiverAccountId": 2,
		"amount":            "500",
	}))

	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestGetTransactionsByAccount(t *testing.T) {
	engine := new(MockEngine)
	client := startServer(t, new(MockScheduler), engine)

	entry := domain.LedgerEntry{
		ID:                42,
		TransactionID:     "TXN1",
		SenderAccountID:   1,
		ReceiverAccountID: 2,
		RecipientName:     "Bob",
		Amount:            decimal.NewFromInt(100),
		Status:            domain.TransactionStatusSuccess,
		Timestamp:         time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC),
		Type:              "Transfer",
		SenderBalance:     decimal.NewFromInt(400),
		ReceiverBalance:   decimal.NewFromInt(400),
	}
	engine.On("GetTransactionsByAccount", mock.Anything, transfer.TransactionQuery{
		AccountID:  1,
		CustomerID: 67890,
		Page:       1,
		PageSize:   10,
		SortBy:     "amount",
	}).Return(&transfer.TransactionPage{
		Items:      []domain.TransactionView{entry.ViewFor(1)},
		Page:       1,
		PageSize:   10,
		TotalItems: 1,
		TotalPages: 1,
	}, nil)

	resp, err := client.GetTransactionsByAccount(authedContext(67890), mustStruct(t, map[string]any{
		"accountId": "1",
		"sortBy":    "amount",
	}))

	require.NoError(t, err)
	got := resp.AsMap()
	assert.Equal(t, float64(1), got["totalItems"])
	assert.Equal(t, float64(1), got["totalPages"])
	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, float64(42), item["id"])
	assert.Equal(t, "Debit", item["direction"])
	assert.Equal(t, "400", item["updatedBalance"])
	assert.Equal(t, "2025-10-15T09:00:00Z", item["timestamp"])
}

func TestGetTransactionsByAccount_MissingAccount(t *testing.T) {
	engine := new(MockEngine)
	client := startServer(t, new(MockScheduler), engine)

	_, err := client.GetTransactionsByAccount(authedContext(67890), mustStruct(t, map[string]any{"page": 2}))

	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	engine.AssertNotCalled(t, "GetTransactionsByAccount", mock.Anything, mock.Anything)
}

func TestGetTransactionsByAccount_MissingCustomer(t *testing.T) {
	engine := new(MockEngine)
	client := startServer(t, new(MockScheduler), engine)

	_, err := client.GetTransactionsByAccount(authedContext(0), mustStruct(t, map[string]any{"accountId": "1"}))

	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	engine.AssertNotCalled(t, "GetTransactionsByAccount", mock.Anything, mock.Anything)
}

func TestGetTransactionsByAccount_Ownership(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
	}{
		{name: "Account not found", err: fmt.Errorf("%w: Account not found", domain.ErrAccountNotFound), wantCode: codes.NotFound},
		{name: "Account of another customer", err: fmt.Errorf("%w: account 1 does not belong to customer 67890", domain.ErrAccessDenied), wantCode: codes.PermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(MockEngine)
			client := startServer(t, new(MockScheduler), engine)

			engine.On("GetTransactionsByAccount", mock.Anything, mock.MatchedBy(func(q transfer.TransactionQuery) bool {
				return q.AccountID == 1 && q.CustomerID == 67890
			})).Return(nil, tt.err)

			_, err := client.GetTransactionsByAccount(authedContext(67890), mustStruct(t, map[string]any{"accountId": "1"}))

			assert.Equal(t, tt.wantCode, status.Code(err))
			engine.AssertExpectations(t)
		})
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
	}{
		{name: "Customer missing", err: domain.ErrCustomerNotFound, wantCode: codes.NotFound},
		{name: "Access denied", err: domain.ErrAccessDenied, wantCode: codes.PermissionDenied},
		{name: "Partial transfer", err: &domain.PartialTransferError{SenderAccountID: 1, ReceiverAccountID: 2, Err: errors.New("timeout")}, wantCode: codes.Internal},
		{name: "Data access", err: fmt.Errorf("%w: boom", domain.ErrDataAccess), wantCode: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, status.Code(mapError(tt.err)))
		})
	}
	assert.NoError(t, mapError(nil))
}
