package domain

import "github.com/shopspring/decimal"

// Account is a snapshot of an account owned by the external account service.
// It is fetched per transfer attempt and never cached.
type Account struct {
	ID            int64
	AccountNumber string
	Balance       decimal.Decimal
	AccountType   string
	CustomerID    int64
}

// Customer holds the display data of a customer, owned by the customer service.
type Customer struct {
	ID         int64
	FirstName  string
	MiddleName string
	LastName   string
	Email      string
}

// FindAccount returns the account with the given id, or nil.
func FindAccount(accounts []Account, id int64) *Account {
	for i := range accounts {
		if accounts[i].ID == id {
			return &accounts[i]
		}
	}
	return nil
}
