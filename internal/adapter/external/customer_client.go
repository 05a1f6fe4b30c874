package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

type customerDTO struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
}

// CustomerClient implements domain.CustomerService over HTTP
type CustomerClient struct {
	client
}

// NewCustomerClient creates a CustomerClient for the service at baseURL
func NewCustomerClient(baseURL string, timeout time.Duration) *CustomerClient {
	return &CustomerClient{client: newClient(baseURL, timeout, nil)}
}

// GetCustomer returns the customer's display data
func (c *CustomerClient) GetCustomer(ctx context.Context, customerID int64) (*domain.Customer, error) {
	var dto customerDTO
	if err := c.do(ctx, http.MethodGet, "/customers/"+strconv.FormatInt(customerID, 10), &dto); err != nil {
		var statusErr *StatusError
		if errors.Is(err, errEmptyBody) || (errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %d: %v", domain.ErrCustomerNotFound, customerID, err)
		}
		return nil, fmt.Errorf("failed to fetch customer %d: %w", customerID, err)
	}

	customer := domain.Customer(dto)
	return &customer, nil
}
