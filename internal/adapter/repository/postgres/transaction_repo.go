package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/transferflow-backend/internal/domain"
)

// ledgerRepository implements domain.LedgerRepository
type ledgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *DB) domain.LedgerRepository {
	return &ledgerRepository{db: db}
}

// Create inserts the ledger entry in a database transaction and sets entry.ID
func (r *ledgerRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: invalid ledger entry: %w", domain.ErrDataAccess, err)
	}

	// Start a database transaction
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", domain.ErrDataAccess, err)
	}
	defer dbTx.Rollback()

	insertQuery := `
		INSERT INTO ledger_transactions (
			transaction_id, sender_account_id, receiver_account_id, recipient_name,
			amount, status, transaction_timestamp, transaction_type, note,
			sender_balance, receiver_balance
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err = dbTx.QueryRowContext(ctx, insertQuery,
		entry.TransactionID,
		entry.SenderAccountID,
		entry.ReceiverAccountID,
		entry.RecipientName,
		entry.Amount.String(),
		string(entry.Status),
		entry.Timestamp.UTC(),
		entry.Type,
		entry.Note,
		entry.SenderBalance.String(),
		entry.ReceiverBalance.String(),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("%w: failed to insert ledger entry: %w", domain.ErrDataAccess, err)
	}

	// Commit the transaction
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", domain.ErrDataAccess, err)
	}

	return nil
}

// ListByAccount retrieves one page of entries where the account is sender or receiver
func (r *ledgerRepository) ListByAccount(ctx context.Context, page domain.LedgerPage) ([]domain.LedgerEntry, error) {
	orderBy, err := orderClause(page.SortBy, page.Order)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, transaction_id, sender_account_id, receiver_account_id, recipient_name,
			amount, status, transaction_timestamp, transaction_type, note,
			sender_balance, receiver_balance
		FROM ledger_transactions
		WHERE sender_account_id = $1 OR receiver_account_id = $1
		ORDER BY ` + orderBy + `
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, page.AccountID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query ledger entries: %w", domain.ErrDataAccess, err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		var amountStr, senderBalanceStr, receiverBalanceStr, status string

		if err := rows.Scan(
			&entry.ID,
			&entry.TransactionID,
			&entry.SenderAccountID,
			&entry.ReceiverAccountID,
			&entry.RecipientName,
			&amountStr,
			&status,
			&entry.Timestamp,
			&entry.Type,
			&entry.Note,
			&senderBalanceStr,
			&receiverBalanceStr,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan ledger entry: %w", domain.ErrDataAccess, err)
		}

		entry.Status = domain.TransactionStatus(status)
		entry.Timestamp = entry.Timestamp.UTC()

		// Parse NUMERIC columns
		if entry.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("%w: failed to parse amount: %w", domain.ErrDataAccess, err)
		}
		if entry.SenderBalance, err = decimal.NewFromString(senderBalanceStr); err != nil {
			return nil, fmt.Errorf("%w: failed to parse sender_balance: %w", domain.ErrDataAccess, err)
		}
		if entry.ReceiverBalance, err = decimal.NewFromString(receiverBalanceStr); err != nil {
			return nil, fmt.Errorf("%w: failed to parse receiver_balance: %w", domain.ErrDataAccess, err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating ledger entries: %w", domain.ErrDataAccess, err)
	}

	return entries, nil
}

// CountByAccount returns the number of entries involving the account
func (r *ledgerRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_transactions
		WHERE sender_account_id = $1 OR receiver_account_id = $1
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count ledger entries: %w", domain.ErrDataAccess, err)
	}
	return count, nil
}

var sortColumns = map[domain.SortField]string{
	domain.SortByAmount:    "amount",
	domain.SortByTimestamp: "transaction_timestamp",
}

// orderClause builds the ORDER BY clause from whitelisted columns only.
// id breaks ties so pages stay stable.
func orderClause(field domain.SortField, order domain.SortOrder) (string, error) {
	if field == "" {
		field = domain.SortByTimestamp
	}
	column, ok := sortColumns[field]
	if !ok {
		return "", domain.InvalidArgument("Invalid sortBy parameter. Supported values: 'amount', 'timestamp'")
	}

	direction := "ASC"
	switch order {
	case "", domain.SortAsc:
	case domain.SortDesc:
		direction = "DESC"
	default:
		return "", domain.InvalidArgument("Invalid sortOrder parameter %q. Supported values: 'asc', 'desc'", order)
	}

	return column + " " + direction + ", id " + direction, nil
}
