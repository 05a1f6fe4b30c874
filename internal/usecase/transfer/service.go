package transfer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

const successMessage = "Transfer successful"

// MaxPageSize bounds TransactionQuery.PageSize
const MaxPageSize = 100

// maxOffset keeps the ledger offset inside a 32-bit integer on every platform
const maxOffset = math.MaxInt32

// Notifier is told about every completed transfer
type Notifier interface {
	Notify(ctx context.Context, entry domain.LedgerEntry, instruction domain.TransferInstruction, customerID int64) error
}

// TransferService moves funds between externally owned accounts and keeps the ledger
type TransferService struct {
	AccountService domain.AccountService
	LedgerRepo     domain.LedgerRepository
	Notifier       Notifier

	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// NewTransferService creates a new TransferService instance.
// notifier may be nil, in which case completed transfers are not announced.
func NewTransferService(accountService domain.AccountService, ledgerRepo domain.LedgerRepository, notifier Notifier, log zerolog.Logger) *TransferService {
	return &TransferService{
		AccountService: accountService,
		LedgerRepo:     ledgerRepo,
		Notifier:       notifier,
		log:            log.With().Str("component", "transfer").Logger(),
		now:            time.Now,
		newID:          domain.NewTransactionID,
	}
}

// TransferFunds executes a transfer for a customer.
// Logic:
//  1. Fetch the customer's accounts
//  2. Locate the sender among them
//  3. Fetch the receiver account
//  4. Check the sender balance covers the amount
//  5. Compute both new balances
//  6. Push the sender balance, then the receiver balance
//  7. Persist a Success ledger entry
//  8. Notify; a notifier failure is logged and never fails the transfer
//
// The two balance updates are not atomic. When the receiver update fails after the
// sender was debited the returned error is a *domain.PartialTransferError and no
// compensation is attempted.
func (s *TransferService) TransferFunds(ctx context.Context, instruction domain.TransferInstruction, customerID int64) (*domain.TransferResult, error) {
	if err := instruction.ValidateTransfer(); err != nil {
		return nil, err
	}
	log := s.log.With().
		Int64("customer_id", customerID).
		Int64("sender_account_id", instruction.SenderAccountID).
		Int64("receiver_account_id", instruction.ReceiverAccountID).
		Logger()

	// 1. Fetch the customer's accounts
	accounts, err := s.AccountService.ListAccounts(ctx, customerID)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch sender's accounts")
		return nil, accountNotFound("failed to fetch accounts", err)
	}

	// 2. Locate the sender
	sender := domain.FindAccount(accounts, instruction.SenderAccountID)
	if sender == nil {
		log.Error().Msg("sender account not found")
		return nil, fmt.Errorf("%w: Sender account not found", domain.ErrAccountNotFound)
	}

	// 3. Fetch the receiver
	receiver, err := s.AccountService.GetAccount(ctx, instruction.ReceiverAccountID)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch receiver account")
		return nil, accountNotFound("failed to fetch receiver account", err)
	}
	if receiver == nil {
		return nil, fmt.Errorf("%w: Receiver account not found", domain.ErrAccountNotFound)
	}

	// 4. Check funds
	if sender.Balance.LessThan(instruction.Amount) {
		log.Warn().
			Str("balance", sender.Balance.String()).
			Str("amount", instruction.Amount.String()).
			Msg("insufficient funds")
		return nil, domain.ErrInsufficientFunds
	}

	// 5. New balances
	senderNew := sender.Balance.Sub(instruction.Amount)
	receiverNew := receiver.Balance.Add(instruction.Amount)

	// 6. Push balances, sender first
	if err := s.AccountService.SetBalance(ctx, sender.ID, senderNew); err != nil {
		log.Error().Err(err).Msg("failed to update sender balance")
		return nil, fmt.Errorf("%w: sender account %d: %w", domain.ErrBalanceUpdateFailure, sender.ID, err)
	}
	if err := s.AccountService.SetBalance(ctx, receiver.ID, receiverNew); err != nil {
		partial := &domain.PartialTransferError{
			SenderAccountID:   sender.ID,
			ReceiverAccountID: receiver.ID,
			Err:               err,
		}
		log.Error().Err(err).
			Str("sender_balance", senderNew.String()).
			Msg("receiver balance update failed after sender was debited, external balances are inconsistent")
		return nil, partial
	}

	// 7. Persist the ledger entry
	entry := domain.LedgerEntry{
		TransactionID:     s.newID(),
		SenderAccountID:   sender.ID,
		ReceiverAccountID: receiver.ID,
		RecipientName:     instruction.ReceiverName,
		Amount:            instruction.Amount,
		Status:            domain.TransactionStatusSuccess,
		Timestamp:         s.now().UTC(),
		Type:              instruction.TransactionType,
		Note:              instruction.Note,
		SenderBalance:     senderNew,
		ReceiverBalance:   receiverNew,
	}
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataAccess, err)
	}
	if err := s.LedgerRepo.Create(ctx, &entry); err != nil {
		log.Error().Err(err).Str("transaction_id", entry.TransactionID).Msg("failed to save ledger entry")
		if errors.Is(err, domain.ErrDataAccess) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrDataAccess, err)
	}
	log.Info().Str("transaction_id", entry.TransactionID).Msg("transfer completed")

	// 8. Notify
	if s.Notifier != nil {
		if err := s.Notifier.Notify(ctx, entry, instruction, customerID); err != nil {
			log.Warn().Err(err).Str("transaction_id", entry.TransactionID).Msg("failed to send completion notification")
		}
	}

	return &domain.TransferResult{
		TransactionID:      entry.TransactionID,
		Message:            successMessage,
		SourceBalance:      senderNew,
		DestinationBalance: receiverNew,
		Status:             entry.Status,
	}, nil
}

func accountNotFound(msg string, err error) error {
	if errors.Is(err, domain.ErrAccountNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrAccountNotFound, msg, err)
}

// TransactionQuery selects one page of an account's transactions on behalf of CustomerID.
// Page is 1-based; empty SortBy and SortOrder fall back to timestamp and asc.
type TransactionQuery struct {
	AccountID  int64
	CustomerID int64
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// TransactionPage is one page of transactions seen from a single account
type TransactionPage struct {
	Items      []domain.TransactionView
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// GetTransactionsByAccount lists the entries where the account is sender or receiver.
// Logic:
//  1. Validate paging and sorting
//  2. Fetch the account and check it belongs to the calling customer
//  3. Count and list the ledger entries for the requested page
func (s *TransferService) GetTransactionsByAccount(ctx context.Context, q TransactionQuery) (*TransactionPage, error) {
	// 1. Validate
	if q.Page < 1 {
		return nil, domain.InvalidArgument("page must be greater than or equal to 1")
	}
	if q.PageSize < 1 {
		return nil, domain.InvalidArgument("page size must be greater than or equal to 1")
	}
	if q.PageSize > MaxPageSize {
		return nil, domain.InvalidArgument("page size must be at most %d", MaxPageSize)
	}
	if q.Page-1 > maxOffset/q.PageSize {
		return nil, domain.InvalidArgument("page %d is out of range", q.Page)
	}
	sortBy, err := domain.ParseSortField(q.SortBy)
	if err != nil {
		return nil, err
	}
	order, err := domain.ParseSortOrder(q.SortOrder)
	if err != nil {
		return nil, err
	}

	// 2. Ownership
	account, err := s.AccountService.GetAccount(ctx, q.AccountID)
	if err != nil {
		s.log.Error().Err(err).Int64("account_id", q.AccountID).Msg("failed to fetch account")
		return nil, accountNotFound("Account not found", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: Account not found", domain.ErrAccountNotFound)
	}
	if account.CustomerID != q.CustomerID {
		s.log.Warn().
			Int64("account_id", q.AccountID).
			Int64("customer_id", q.CustomerID).
			Msg("transaction history requested for another customer's account")
		return nil, fmt.Errorf("%w: account %d does not belong to customer %d", domain.ErrAccessDenied, q.AccountID, q.CustomerID)
	}

	// 3. Page
	total, err := s.LedgerRepo.CountByAccount(ctx, q.AccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count transactions: %w", domain.ErrDataAccess, err)
	}

	entries, err := s.LedgerRepo.ListByAccount(ctx, domain.LedgerPage{
		AccountID: q.AccountID,
		Limit:     q.PageSize,
		Offset:    (q.Page - 1) * q.PageSize,
		SortBy:    sortBy,
		Order:     order,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list transactions: %w", domain.ErrDataAccess, err)
	}

	items := make([]domain.TransactionView, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.ViewFor(q.AccountID))
	}

	return &TransactionPage{
		Items:      items,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalItems: total,
		TotalPages: (total + q.PageSize - 1) / q.PageSize,
	}, nil
}
