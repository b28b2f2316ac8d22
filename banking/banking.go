// Package banking exposes the typed domain operations of the BSG demo
// backends (CRM customers, accounts, loan applications, debit cards) on
// top of the bankclient HTTP core.
//
// Every method returns a typed payload or a structured error from the
// bankclient taxonomy (*DomainError, *TransportError,
// *CredentialFetchError); no raw transport errors cross this boundary.
package banking

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bsglabs/bankclient"
)

// Service is the domain facade owned by application pages.
type Service struct {
	client *bankclient.Client
}

// NewService creates the facade around an injected client core.
func NewService(client *bankclient.Client) *Service {
	return &Service{client: client}
}

// SearchCustomers returns customers matching the free-text query.
func (s *Service) SearchCustomers(ctx context.Context, query string) ([]Customer, error) {
	path := "/{version}/customers"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}

	var out []Customer
	if err := s.client.DoJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCustomer returns one customer by id.
func (s *Service) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	var out Customer
	path := fmt.Sprintf("/{version}/customers/%s", url.PathEscape(id))
	if err := s.client.DoJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAccounts returns the customer's accounts.
func (s *Service) ListAccounts(ctx context.Context, customerID string) ([]Account, error) {
	var out []Account
	path := fmt.Sprintf("/{version}/customers/%s/accounts", url.PathEscape(customerID))
	if err := s.client.DoJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTransactions returns the booked movements of an account.
func (s *Service) ListTransactions(ctx context.Context, accountID string) ([]Transaction, error) {
	var out []Transaction
	path := fmt.Sprintf("/{version}/accounts/%s/transactions", url.PathEscape(accountID))
	if err := s.client.DoJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateLoanApplication submits a loan application.
func (s *Service) CreateLoanApplication(ctx context.Context, req LoanApplicationRequest) (*LoanApplication, error) {
	var out LoanApplication
	if err := s.client.DoJSON(ctx, http.MethodPost, "/{version}/loans", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLoanApplication returns one application by id.
func (s *Service) GetLoanApplication(ctx context.Context, id string) (*LoanApplication, error) {
	var out LoanApplication
	path := fmt.Sprintf("/{version}/loans/%s", url.PathEscape(id))
	if err := s.client.DoJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCards returns the customer's debit cards.
func (s *Service) ListCards(ctx context.Context, customerID string) ([]Card, error) {
	var out []Card
	path := fmt.Sprintf("/{version}/customers/%s/cards", url.PathEscape(customerID))
	if err := s.client.DoJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FreezeCard blocks a card and returns its updated state.
func (s *Service) FreezeCard(ctx context.Context, cardID string) (*Card, error) {
	var out Card
	path := fmt.Sprintf("/{version}/cards/%s/freeze", url.PathEscape(cardID))
	if err := s.client.DoJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
