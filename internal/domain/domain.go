package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types as they appear on statements and in the database.
const (
	TransactionDebit  = "debit"
	TransactionCredit = "credit"
)

// TransactionCandidate is a transaction parsed from statement text that has
// not been persisted yet. The amount sign always agrees with Type: debits are
// negative, credits positive. The extraction client normalizes this before
// candidates leave that package.
type TransactionCandidate struct {
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Merchant    string          `json:"merchant"`
	Description string          `json:"description"`
	Type        string          `json:"transaction_type"`
	CategoryID  *int64          `json:"category_id"`
}

// Transaction is a durable ledger row.
type Transaction struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	BankAccountID int64           `json:"bankAccountId"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	Merchant      string          `json:"merchant"`
	Type          string          `json:"transactionType"`
	CategoryID    *int64          `json:"categoryId"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// BankAccount links a user to an institution in one country.
type BankAccount struct {
	ID                  int64     `json:"id"`
	UserID              int64     `json:"userId"`
	CountryID           int64     `json:"countryId"`
	BankName            string    `json:"bankName"`
	AccountType         string    `json:"accountType"`
	AccountNumberMasked string    `json:"accountNumberMasked,omitempty"`
	Currency            string    `json:"currency"`
	Confirmed           bool      `json:"confirmed"`
	IsActive            bool      `json:"isActive"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Category is a transaction category. System-defined categories are seeded by
// the migration and cannot be deleted.
type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	SystemDefined bool   `json:"systemDefined"`
}

// Country is a supported country with its ISO-ish code and currency.
type Country struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	CurrencyCode string `json:"currencyCode"`
}

// Conversation is a persisted chat thread owned by exactly one user.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	PageRoute string    `json:"pageRoute,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one persisted message in a conversation. Tool messages carry
// the tool name and its structured result payload as JSON text.
type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversationId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	ToolName       string    `json:"toolName,omitempty"`
	ToolPayload    string    `json:"toolPayload,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PDFUpload is the audit row recorded after a completed statement import.
type PDFUpload struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userId"`
	BankAccountID    int64     `json:"bankAccountId"`
	FileName         string    `json:"fileName"`
	BankDetected     string    `json:"bankDetected"`
	TransactionCount int       `json:"transactionCount"`
	UploadStatus     string    `json:"uploadStatus"`
	CreatedAt        time.Time `json:"createdAt"`
}

// User is an account holder.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
