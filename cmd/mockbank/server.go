package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/bsglabs/bankclient/banking"
)

const tokenTTL = 15 * time.Minute

// Server is the demo banking backend: one token endpoint speaking both
// credential shapes, a runtime config document, and the versioned
// domain API.
type Server struct {
	db          *gorm.DB
	secret      []byte
	environment string
	apiURL      string
	logger      *slog.Logger
}

// NewServer creates a server over an opened database.
func NewServer(db *gorm.DB, secret, environment, apiURL string, logger *slog.Logger) *Server {
	return &Server{
		db:          db,
		secret:      []byte(secret),
		environment: environment,
		apiURL:      apiURL,
		logger:      logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/config.json", s.handleConfig).Methods(http.MethodGet)
	r.HandleFunc("/auth/token", s.handleToken).Methods(http.MethodPost)

	api := r.PathPrefix("/{version}").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/customers", s.handleCustomers).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}", s.handleCustomer).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}/accounts", s.handleAccounts).Methods(http.MethodGet)
	api.HandleFunc("/customers/{id}/cards", s.handleCards).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/transactions", s.handleTransactions).Methods(http.MethodGet)
	api.HandleFunc("/loans", s.handleLoanCreate).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}", s.handleLoan).Methods(http.MethodGet)
	api.HandleFunc("/cards/{id}/freeze", s.handleCardFreeze).Methods(http.MethodPost)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"apiUrl":      s.apiURL,
		"environment": s.environment,
	})
}

// tokenRequest covers both credential shapes; the populated fields
// select the flow.
type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
	APIKey       string `json:"apiKey"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid_request", "error_description": "malformed request body",
		})
		return
	}

	if req.APIKey != "" {
		s.handleAPIKeyToken(w, req.APIKey)
		return
	}
	s.handleGrantToken(w, req)
}

func (s *Server) handleAPIKeyToken(w http.ResponseWriter, apiKey string) {
	var keys []APIKeyModel
	if err := s.db.Find(&keys).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"Result": false, "Message": "storage failure"})
		return
	}

	for _, k := range keys {
		if bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(apiKey)) == nil {
			token, err := s.issueToken("apikey:"+k.ID, "access")
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]any{"Result": false, "Message": "token issuance failed"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"Token": token, "Result": true})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]any{"Result": false, "Message": "unknown api key"})
}

func (s *Server) handleGrantToken(w http.ResponseWriter, req tokenRequest) {
	var subject string
	switch req.GrantType {
	case "password":
		var user UserModel
		err := s.db.First(&user, "username = ?", req.Username).Error
		if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "invalid_grant", "error_description": "wrong username or password",
			})
			return
		}
		subject = user.Username

	case "refresh_token":
		claims, err := s.verifyToken(req.RefreshToken, "refresh")
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "invalid_grant", "error_description": "refresh token rejected",
			})
			return
		}
		subject, _ = claims.GetSubject()

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unsupported_grant_type", "error_description": fmt.Sprintf("grant type %q not supported", req.GrantType),
		})
		return
	}

	access, err := s.issueToken(subject, "access")
	if err == nil {
		var refresh string
		refresh, err = s.issueRefreshToken(subject)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  access,
				"token_type":    "Bearer",
				"expires_in":    int64(tokenTTL / time.Second),
				"refresh_token": refresh,
			})
			return
		}
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "server_error", "error_description": err.Error(),
	})
}

func (s *Server) issueToken(subject, typ string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iss": "mockbank",
		"typ": typ,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *Server) issueRefreshToken(subject string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iss": "mockbank",
		"typ": "refresh",
		"iat": now.Unix(),
		"exp": now.Add(30 * 24 * time.Hour).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *Server) verifyToken(tokenString, wantType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if typ, _ := claims["typ"].(string); typ != wantType {
		return nil, fmt.Errorf("wrong token type %q", typ)
	}
	return claims, nil
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(auth, "Bearer ")
		if !found {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := s.verifyToken(tokenString, "access"); err != nil {
			s.logger.Debug("rejected token", "err", err)
			writeError(w, http.StatusUnauthorized, "token rejected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	query := s.db.Model(&CustomerModel{})
	if q := r.URL.Query().Get("q"); q != "" {
		query = query.Where("name LIKE ?", "%"+q+"%")
	}

	var models []CustomerModel
	if err := query.Order("id").Find(&models).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	customers := make([]banking.Customer, len(models))
	for i, m := range models {
		customers[i] = m.toCustomer()
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleCustomer(w http.ResponseWriter, r *http.Request) {
	var model CustomerModel
	if err := s.db.First(&model, "id = ?", mux.Vars(r)["id"]).Error; err != nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, model.toCustomer())
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	var models []AccountModel
	if err := s.db.Where("customer_id = ?", mux.Vars(r)["id"]).Order("id").Find(&models).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	accounts := make([]banking.Account, len(models))
	for i, m := range models {
		accounts[i] = banking.Account{
			ID:         m.ID,
			CustomerID: m.CustomerID,
			Number:     m.Number,
			Currency:   m.Currency,
			Balance:    m.Balance,
		}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	var models []TransactionModel
	if err := s.db.Where("account_id = ?", mux.Vars(r)["id"]).Order("booked_at desc").Find(&models).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	transactions := make([]banking.Transaction, len(models))
	for i, m := range models {
		transactions[i] = banking.Transaction{
			ID:          m.ID,
			AccountID:   m.AccountID,
			Amount:      m.Amount,
			Currency:    m.Currency,
			Description: m.Description,
			BookedAt:    m.BookedAt,
		}
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) handleLoanCreate(w http.ResponseWriter, r *http.Request) {
	var req banking.LoanApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.CustomerID == "" || req.Amount <= 0 || req.TermMonths <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "customer_id, amount and term_months are required")
		return
	}

	var customer CustomerModel
	if err := s.db.First(&customer, "id = ?", req.CustomerID).Error; err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown customer")
		return
	}

	model := LoanApplicationModel{
		ID:         fmt.Sprintf("loan-%d", time.Now().UnixNano()),
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		TermMonths: req.TermMonths,
		Purpose:    req.Purpose,
		Status:     banking.LoanStatusSubmitted,
	}
	if err := s.db.Create(&model).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusCreated, model.toLoanApplication())
}

func (s *Server) handleLoan(w http.ResponseWriter, r *http.Request) {
	var model LoanApplicationModel
	if err := s.db.First(&model, "id = ?", mux.Vars(r)["id"]).Error; err != nil {
		writeError(w, http.StatusNotFound, "loan application not found")
		return
	}
	writeJSON(w, http.StatusOK, model.toLoanApplication())
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	var models []CardModel
	if err := s.db.Where("customer_id = ?", mux.Vars(r)["id"]).Order("id").Find(&models).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	cards := make([]banking.Card, len(models))
	for i, m := range models {
		cards[i] = m.toCard()
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCardFreeze(w http.ResponseWriter, r *http.Request) {
	var model CardModel
	if err := s.db.First(&model, "id = ?", mux.Vars(r)["id"]).Error; err != nil {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}

	model.Status = banking.CardStatusFrozen
	if err := s.db.Save(&model).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, model.toCard())
}

func (m *CustomerModel) toCustomer() banking.Customer {
	return banking.Customer{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Segment:   m.Segment,
		CreatedAt: m.CreatedAt,
	}
}

func (m *LoanApplicationModel) toLoanApplication() banking.LoanApplication {
	return banking.LoanApplication{
		ID:          m.ID,
		CustomerID:  m.CustomerID,
		Amount:      m.Amount,
		Currency:    m.Currency,
		TermMonths:  m.TermMonths,
		Purpose:     m.Purpose,
		Status:      m.Status,
		SubmittedAt: m.SubmittedAt,
	}
}

func (m *CardModel) toCard() banking.Card {
	return banking.Card{
		ID:           m.ID,
		CustomerID:   m.CustomerID,
		MaskedNumber: m.MaskedNumber,
		Status:       m.Status,
		ExpiryMonth:  m.ExpiryMonth,
		ExpiryYear:   m.ExpiryYear,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
