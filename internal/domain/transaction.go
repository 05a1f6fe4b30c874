package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the outcome of a transfer attempt
type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "Success"
	TransactionStatusFailed  TransactionStatus = "Failed"
)

// Direction is how a ledger entry looks from one account's point of view
type Direction string

const (
	DirectionDebit  Direction = "Debit"
	DirectionCredit Direction = "Credit"
)

// TransactionIDPrefix is prepended to every generated transaction id
const TransactionIDPrefix = "LLB"

const transactionIDSuffixLen = 15

// LedgerEntry is the immutable record of a completed transfer attempt.
// Only the transfer engine creates ledger entries; they are never updated.
type LedgerEntry struct {
	ID                int64 // assigned by the store
	TransactionID     string
	SenderAccountID   int64
	ReceiverAccountID int64
	RecipientName     string
	Amount            decimal.Decimal
	Status            TransactionStatus
	Timestamp         time.Time // UTC
	Type              string
	Note              string
	SenderBalance     decimal.Decimal // sender balance after the transfer
	ReceiverBalance   decimal.Decimal // receiver balance after the transfer
}

// NewTransactionID generates a globally unique transaction id:
// the fixed prefix followed by 15 hex characters taken from a random UUID.
func NewTransactionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return TransactionIDPrefix + raw[:transactionIDSuffixLen]
}

// Validate ensures the ledger entry adheres to domain rules
func (e *LedgerEntry) Validate() error {
	if !strings.HasPrefix(e.TransactionID, TransactionIDPrefix) ||
		len(e.TransactionID) != len(TransactionIDPrefix)+transactionIDSuffixLen {
		return errors.New("transaction id must be the prefix followed by 15 characters")
	}

	if e.SenderAccountID <= 0 || e.ReceiverAccountID <= 0 {
		return errors.New("ledger entry must reference a sender and a receiver account")
	}

	if e.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("ledger entry amount must be positive")
	}

	if e.Status != TransactionStatusSuccess && e.Status != TransactionStatusFailed {
		return errors.New("ledger entry status must be Success or Failed")
	}

	if e.Timestamp.IsZero() {
		return errors.New("ledger entry must have a timestamp")
	}

	return nil
}

// TransactionView is a ledger entry as seen from a given account
type TransactionView struct {
	LedgerEntry
	Direction      Direction
	UpdatedBalance decimal.Decimal
}

// ViewFor projects the entry onto accountID: Debit with the sender's resulting
// balance when accountID sent the funds, Credit with the receiver's otherwise.
func (e LedgerEntry) ViewFor(accountID int64) TransactionView {
	if e.SenderAccountID == accountID {
		return TransactionView{LedgerEntry: e, Direction: DirectionDebit, UpdatedBalance: e.SenderBalance}
	}
	return TransactionView{LedgerEntry: e, Direction: DirectionCredit, UpdatedBalance: e.ReceiverBalance}
}

// TransferResult is returned by a completed transfer
type TransferResult struct {
	TransactionID      string
	Message            string
	SourceBalance      decimal.Decimal
	DestinationBalance decimal.Decimal
	Status             TransactionStatus
}

// SortField is a ledger column transactions can be ordered by
type SortField string

const (
	SortByAmount    SortField = "amount"
	SortByTimestamp SortField = "timestamp"
)

// SortOrder is ascending or descending
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortField defaults to timestamp and rejects anything but amount or timestamp
func ParseSortField(raw string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return SortByTimestamp, nil
	case string(SortByAmount):
		return SortByAmount, nil
	case string(SortByTimestamp):
		return SortByTimestamp, nil
	default:
		return "", InvalidArgument("Invalid sortBy parameter. Supported values: 'amount', 'timestamp'")
	}
}

// ParseSortOrder defaults to asc and rejects anything but asc or desc
func ParseSortOrder(raw string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return SortAsc, nil
	case string(SortAsc):
		return SortAsc, nil
	case string(SortDesc):
		return SortDesc, nil
	default:
		return "", InvalidArgument("Invalid sortOrder parameter %q. Supported values: 'asc', 'desc'", raw)
	}
}

// LedgerPage selects one page of an account's ledger entries
type LedgerPage struct {
	AccountID int64
	Limit     int
	Offset    int
	SortBy    SortField
	Order     SortOrder
}
