package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

type accountDTO struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"accountNumber"`
	Balance       decimal.Decimal `json:"balance"`
	AccountType   string          `json:"accountType"`
	CustomerID    int64           `json:"customerId"`
}

func (a accountDTO) toDomain() domain.Account {
	return domain.Account(a)
}

// AccountClient implements domain.AccountService over HTTP
type AccountClient struct {
	client
}

// NewAccountClient creates an AccountClient for the service at baseURL
func NewAccountClient(baseURL string, timeout time.Duration, creds Credentials) *AccountClient {
	return &AccountClient{client: newClient(baseURL, timeout, &creds)}
}

// ListAccounts returns every account owned by the customer
func (c *AccountClient) ListAccounts(ctx context.Context, customerID int64) ([]domain.Account, error) {
	path := "/accounts?" + url.Values{"customerID": {strconv.FormatInt(customerID, 10)}}.Encode()

	var dtos []accountDTO
	if err := c.do(ctx, http.MethodGet, path, &dtos); err != nil {
		return nil, lookupError(err, "accounts for customer %d", customerID)
	}

	accounts := make([]domain.Account, 0, len(dtos))
	for _, dto := range dtos {
		accounts = append(accounts, dto.toDomain())
	}
	return accounts, nil
}

// GetAccount returns a single account by id
func (c *AccountClient) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	var dto accountDTO
	if err := c.do(ctx, http.MethodGet, "/accounts/"+strconv.FormatInt(accountID, 10), &dto); err != nil {
		return nil, lookupError(err, "account %d", accountID)
	}
	account := dto.toDomain()
	return &account, nil
}

// SetBalance overwrites the balance of an account
func (c *AccountClient) SetBalance(ctx context.Context, accountID int64, newBalance decimal.Decimal) error {
	path := "/accounts/updateBalance/" + strconv.FormatInt(accountID, 10) + "?" +
		url.Values{"newBalance": {newBalance.String()}}.Encode()

	if err := c.do(ctx, http.MethodPut, path, nil); err != nil {
		return fmt.Errorf("failed to update balance of account %d: %w", accountID, err)
	}
	return nil
}

// lookupError maps 404 and empty bodies onto domain.ErrAccountNotFound
func lookupError(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	var statusErr *StatusError
	if errors.Is(err, errEmptyBody) || (errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound) {
		return fmt.Errorf("%w: %s: %v", domain.ErrAccountNotFound, what, err)
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}
