package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRepository defines the interface for ledger persistence operations
type LedgerRepository interface {
	// Create persists a new ledger entry inside a local database transaction
	// and sets entry.ID
	Create(ctx context.Context, entry *LedgerEntry) error

	// ListByAccount retrieves one page of entries where the account is the
	// sender or the receiver
	ListByAccount(ctx context.Context, page LedgerPage) ([]LedgerEntry, error)

	// CountByAccount returns the number of entries involving the account
	CountByAccount(ctx context.Context, accountID int64) (int, error)
}

// AccountService is the external system of record for account balances.
// Implementations carry the authorization credential and service API key.
type AccountService interface {
	// ListAccounts returns every account owned by the customer
	ListAccounts(ctx context.Context, customerID int64) ([]Account, error)

	// GetAccount returns a single account by its ID
	GetAccount(ctx context.Context, accountID int64) (*Account, error)

	// SetBalance overwrites the balance of an account
	SetBalance(ctx context.Context, accountID int64, newBalance decimal.Decimal) error
}

// CustomerService provides customer display data
type CustomerService interface {
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
}

// Publisher is a fire-and-forget messaging channel
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// JobStore is the durable, cluster-aware home of jobs and their triggers
type JobStore interface {
	// Save stores a job and its trigger atomically
	Save(ctx context.Context, job *ScheduledJob, trigger *Trigger) error

	// AcquireDue claims up to limit triggers due at now for the given instance.
	// A claimed trigger is invisible to other instances until released or until
	// its claim is older than staleAfter.
	AcquireDue(ctx context.Context, instanceID string, now time.Time, limit int, staleAfter time.Duration) ([]Fire, error)

	// Release hands a fired trigger back. With next set the trigger waits for that
	// instant; with next nil the trigger and its job are removed.
	Release(ctx context.Context, fire Fire, next *time.Time) error
}

// FireDeduplicator guards against the same occurrence executing twice
type FireDeduplicator interface {
	// Claim returns false when the key was already claimed
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ExecutionRecorder keeps the audit trail of fires
type ExecutionRecorder interface {
	Record(ctx context.Context, outcome FireOutcome) error
}
