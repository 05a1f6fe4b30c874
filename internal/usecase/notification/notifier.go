package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

// DefaultTopic is the channel completion events are published on
const DefaultTopic = "Transaction_Complete_Management"

const (
	subject    = "Your Transaction has been successfully completed"
	bodyFormat = "We are pleased to inform you that your recent transaction has been successfully processed.\n\n" +
		"An amount of GBP%s has been debited from your account %s with transaction ID %s."

	maskPrefix  = "XXXX"
	visibleTail = 4
)

// Notifier publishes a completion event for every successful transfer
type Notifier struct {
	CustomerService domain.CustomerService
	AccountService  domain.AccountService
	Publisher       domain.Publisher
	Topic           string

	log zerolog.Logger
}

// NewNotifier creates a Notifier; an empty topic falls back to DefaultTopic
func NewNotifier(customers domain.CustomerService, accounts domain.AccountService, publisher domain.Publisher, topic string, log zerolog.Logger) *Notifier {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Notifier{
		CustomerService: customers,
		AccountService:  accounts,
		Publisher:       publisher,
		Topic:           topic,
		log:             log.With().Str("component", "notification").Logger(),
	}
}

// Notify looks up the customer and the receiver account and publishes the event.
// Missing lookups are returned to the caller.
func (n *Notifier) Notify(ctx context.Context, entry domain.LedgerEntry, instruction domain.TransferInstruction, customerID int64) error {
	customer, err := n.CustomerService.GetCustomer(ctx, customerID)
	if err != nil {
		return fmt.Errorf("failed to look up customer %d: %w", customerID, err)
	}
	if customer == nil {
		return fmt.Errorf("%w: %d", domain.ErrCustomerNotFound, customerID)
	}

	account, err := n.AccountService.GetAccount(ctx, instruction.ReceiverAccountID)
	if err != nil {
		return fmt.Errorf("failed to look up receiver account %d: %w", instruction.ReceiverAccountID, err)
	}
	if account == nil {
		return fmt.Errorf("%w: Receiver account not found", domain.ErrAccountNotFound)
	}

	masked := MaskAccountNumber(account.AccountNumber)
	event := domain.CompletionEvent{
		EventType:     domain.CompletionEventType,
		Name:          customer.FirstName,
		Email:         customer.Email,
		Subject:       subject,
		Body:          fmt.Sprintf(bodyFormat, instruction.Amount.String(), masked, entry.TransactionID),
		MaskedAccount: masked,
		Amount:        instruction.Amount.String(),
		TransactionID: entry.TransactionID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal completion event: %w", err)
	}
	if err := n.Publisher.Publish(ctx, n.Topic, payload); err != nil {
		return fmt.Errorf("failed to publish completion event: %w", err)
	}

	n.log.Info().Str("transaction_id", entry.TransactionID).Str("topic", n.Topic).Msg("published transaction completion event")
	return nil
}

// MaskAccountNumber hides all but the last four digits of numbers longer than four
func MaskAccountNumber(number string) string {
	if len(number) <= visibleTail {
		return number
	}
	return maskPrefix + number[len(number)-visibleTail:]
}
