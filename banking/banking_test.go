package banking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsglabs/bankclient"
)

type memStore struct {
	cred    *bankclient.Credential
	session []byte
}

func (m *memStore) ReadCredential() (*bankclient.Credential, error) { return m.cred, nil }
func (m *memStore) WriteCredential(c *bankclient.Credential) error  { m.cred = c; return nil }
func (m *memStore) ClearCredential() error                          { m.cred = nil; return nil }
func (m *memStore) ReadSession() ([]byte, error)                    { return m.session, nil }
func (m *memStore) WriteSession(d []byte) error                     { m.session = d; return nil }
func (m *memStore) ClearSession() error                             { m.session = nil; return nil }

func newTestService(serverURL string) *Service {
	store := &memStore{cred: &bankclient.Credential{
		AccessToken: "test-token",
		IssuedAt:    time.Now().Unix(),
		ExpiresIn:   900,
	}}
	resolver := bankclient.NewStaticResolver(serverURL)
	tokens := bankclient.NewTokenManager(store, &bankclient.OAuthAdapter{}, resolver)
	return NewService(bankclient.New(resolver, tokens))
}

func TestService_SearchCustomers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0.0/customers", r.URL.Path)
		assert.Equal(t, "smith", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode([]Customer{
			{ID: "c-1", Name: "Anna Smith", Segment: "retail"},
			{ID: "c-2", Name: "Bob Smithers", Segment: "private"},
		})
	}))
	defer server.Close()

	svc := newTestService(server.URL)

	customers, err := svc.SearchCustomers(context.Background(), "smith")
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "Anna Smith", customers[0].Name)
}

func TestService_GetCustomer_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "customer not found"})
	}))
	defer server.Close()

	svc := newTestService(server.URL)

	_, err := svc.GetCustomer(context.Background(), "missing")
	require.Error(t, err)

	de, ok := bankclient.AsDomainError(err)
	require.True(t, ok, "expected a DomainError, got %T", err)
	assert.Equal(t, http.StatusNotFound, de.Status)
	assert.Equal(t, "customer not found", de.Message)
}

func TestService_CreateLoanApplication(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1.0.0/loans", r.URL.Path)

		var req LoanApplicationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 25000.0, req.Amount)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(LoanApplication{
			ID:         "loan-1",
			CustomerID: req.CustomerID,
			Amount:     req.Amount,
			Currency:   req.Currency,
			TermMonths: req.TermMonths,
			Status:     LoanStatusSubmitted,
		})
	}))
	defer server.Close()

	svc := newTestService(server.URL)

	loan, err := svc.CreateLoanApplication(context.Background(), LoanApplicationRequest{
		CustomerID: "c-1",
		Amount:     25000,
		Currency:   "EUR",
		TermMonths: 48,
		Purpose:    "car",
	})
	require.NoError(t, err)
	assert.Equal(t, "loan-1", loan.ID)
	assert.Equal(t, LoanStatusSubmitted, loan.Status)
}

func TestService_FreezeCard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1.0.0/cards/card-7/freeze", r.URL.Path)
		json.NewEncoder(w).Encode(Card{ID: "card-7", Status: CardStatusFrozen})
	}))
	defer server.Close()

	svc := newTestService(server.URL)

	card, err := svc.FreezeCard(context.Background(), "card-7")
	require.NoError(t, err)
	assert.Equal(t, CardStatusFrozen, card.Status)
}

func TestService_ListAccounts_EscapesID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0.0/customers/c%2F1/accounts", r.URL.EscapedPath())
		json.NewEncoder(w).Encode([]Account{})
	}))
	defer server.Close()

	svc := newTestService(server.URL)

	_, err := svc.ListAccounts(context.Background(), "c/1")
	require.NoError(t, err)
}
