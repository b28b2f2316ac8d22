package banking

import "time"

// Customer is a CRM customer record.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Segment   string    `json:"segment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a deposit account belonging to a customer.
type Account struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customer_id"`
	Number     string  `json:"number"`
	Currency   string  `json:"currency"`
	Balance    float64 `json:"balance"`
}

// Transaction is one booked account movement.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Description string    `json:"description,omitempty"`
	BookedAt    time.Time `json:"booked_at"`
}

// Loan application status values.
const (
	LoanStatusSubmitted = "submitted"
	LoanStatusApproved  = "approved"
	LoanStatusRejected  = "rejected"
)

// LoanApplicationRequest is the payload for submitting an application.
type LoanApplicationRequest struct {
	CustomerID string  `json:"customer_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	TermMonths int     `json:"term_months"`
	Purpose    string  `json:"purpose,omitempty"`
}

// LoanApplication is a submitted application and its current status.
type LoanApplication struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	TermMonths  int       `json:"term_months"`
	Purpose     string    `json:"purpose,omitempty"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Card status values.
const (
	CardStatusActive = "active"
	CardStatusFrozen = "frozen"
)

// Card is a debit card linked to a customer.
type Card struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customer_id"`
	MaskedNumber string `json:"masked_number"`
	Status       string `json:"status"`
	ExpiryMonth  int    `json:"expiry_month"`
	ExpiryYear   int    `json:"expiry_year"`
}
