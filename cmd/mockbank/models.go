package main

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserModel is a demo login user.
type UserModel struct {
	Username     string `gorm:"primaryKey;size:64"`
	PasswordHash string `gorm:"size:128"`
	DisplayName  string `gorm:"size:128"`
	Email        string `gorm:"size:320"`
}

func (UserModel) TableName() string {
	return "users"
}

// APIKeyModel holds hashed API keys for the key-exchange flow.
type APIKeyModel struct {
	ID      string `gorm:"primaryKey;size:64"`
	KeyHash string `gorm:"size:128"`
	Label   string `gorm:"size:128"`
}

func (APIKeyModel) TableName() string {
	return "api_keys"
}

// CustomerModel is a CRM customer row.
type CustomerModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"size:128;index"`
	Email     string    `gorm:"size:320"`
	Segment   string    `gorm:"size:32"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (CustomerModel) TableName() string {
	return "customers"
}

// AccountModel is a deposit account row.
type AccountModel struct {
	ID         string `gorm:"primaryKey;size:64"`
	CustomerID string `gorm:"size:64;index"`
	Number     string `gorm:"size:34"`
	Currency   string `gorm:"size:3"`
	Balance    float64
}

func (AccountModel) TableName() string {
	return "accounts"
}

// TransactionModel is one booked account movement.
type TransactionModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	AccountID   string `gorm:"size:64;index"`
	Amount      float64
	Currency    string `gorm:"size:3"`
	Description string `gorm:"size:256"`
	BookedAt    time.Time
}

func (TransactionModel) TableName() string {
	return "transactions"
}

// LoanApplicationModel is a submitted loan application.
type LoanApplicationModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	CustomerID  string `gorm:"size:64;index"`
	Amount      float64
	Currency    string `gorm:"size:3"`
	TermMonths  int
	Purpose     string    `gorm:"size:256"`
	Status      string    `gorm:"size:16"`
	SubmittedAt time.Time `gorm:"autoCreateTime"`
}

func (LoanApplicationModel) TableName() string {
	return "loan_applications"
}

// CardModel is a debit card row.
type CardModel struct {
	ID           string `gorm:"primaryKey;size:64"`
	CustomerID   string `gorm:"size:64;index"`
	MaskedNumber string `gorm:"size:24"`
	Status       string `gorm:"size:16"`
	ExpiryMonth  int
	ExpiryYear   int
}

func (CardModel) TableName() string {
	return "cards"
}

// AutoMigrate runs database migrations for all mockbank tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&APIKeyModel{},
		&CustomerModel{},
		&AccountModel{},
		&TransactionModel{},
		&LoanApplicationModel{},
		&CardModel{},
	)
}

// Seed populates the demo fixtures. Existing rows are left alone so a
// restarted server keeps its state.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&CustomerModel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("demo123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	keyHash, err := bcrypt.GenerateFromPassword([]byte("demo-api-key"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	fixtures := []any{
		&UserModel{Username: "demo", PasswordHash: string(passwordHash), DisplayName: "Demo User", Email: "demo@bsg.example"},
		&APIKeyModel{ID: "key-1", KeyHash: string(keyHash), Label: "demo key"},

		&CustomerModel{ID: "c-1001", Name: "Anna Smith", Email: "anna.smith@example.com", Segment: "retail"},
		&CustomerModel{ID: "c-1002", Name: "Bob Jensen", Email: "bob.jensen@example.com", Segment: "private"},
		&CustomerModel{ID: "c-1003", Name: "Clara Novak", Email: "clara.novak@example.com", Segment: "retail"},

		&AccountModel{ID: "a-2001", CustomerID: "c-1001", Number: "DE44500105175407324931", Currency: "EUR", Balance: 2534.20},
		&AccountModel{ID: "a-2002", CustomerID: "c-1001", Number: "DE09500105176461442988", Currency: "EUR", Balance: 15000.00},
		&AccountModel{ID: "a-2003", CustomerID: "c-1002", Number: "DK5000400440116243", Currency: "DKK", Balance: 84210.55},

		&TransactionModel{ID: "t-3001", AccountID: "a-2001", Amount: -42.50, Currency: "EUR", Description: "Grocery store", BookedAt: time.Now().Add(-48 * time.Hour)},
		&TransactionModel{ID: "t-3002", AccountID: "a-2001", Amount: 1800.00, Currency: "EUR", Description: "Salary", BookedAt: time.Now().Add(-24 * time.Hour)},
		&TransactionModel{ID: "t-3003", AccountID: "a-2003", Amount: -1299.00, Currency: "DKK", Description: "Electronics", BookedAt: time.Now().Add(-2 * time.Hour)},

		&CardModel{ID: "card-4001", CustomerID: "c-1001", MaskedNumber: "**** **** **** 4931", Status: "active", ExpiryMonth: 9, ExpiryYear: 2028},
		&CardModel{ID: "card-4002", CustomerID: "c-1002", MaskedNumber: "**** **** **** 6243", Status: "active", ExpiryMonth: 2, ExpiryYear: 2027},
	}
	for _, f := range fixtures {
		if err := db.Create(f).Error; err != nil {
			return err
		}
	}
	return nil
}
