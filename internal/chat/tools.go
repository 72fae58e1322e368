// Package chat runs the finance copilot: conversation persistence, the
// bounded tool-calling loop and the read-only query tools behind it.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tanveerk/finhub/internal/domain"
	"github.com/tanveerk/finhub/internal/llm"
	"github.com/tanveerk/finhub/internal/store"
)

// ErrUnknownTool is returned when the model asks for a tool that is not in
// the registry. Unlike bad arguments, this is a hard failure: answering with
// partial data here would mean inventing numbers.
var ErrUnknownTool = errors.New("unknown tool")

// toolKind enumerates the closed set of query tools. Dispatch is a total
// switch over this set so a new tool cannot be declared without a handler.
type toolKind int

const (
	toolSpendSummary toolKind = iota
	toolIncomeSummary
	toolRecentTransactions
	toolCategoryBreakdown
	toolAccounts
)

var toolKinds = map[string]toolKind{
	"get_spend_summary":       toolSpendSummary,
	"get_income_summary":      toolIncomeSummary,
	"get_recent_transactions": toolRecentTransactions,
	"get_category_breakdown":  toolCategoryBreakdown,
	"get_accounts":            toolAccounts,
}

// QueryStore is the read-only persistence subset the tools query. Every call
// is scoped by the user id the orchestrator injects; tool arguments never
// carry identity.
type QueryStore interface {
	SpendSummary(ctx context.Context, userID int64, countryCode string, days int) (float64, error)
	IncomeSummary(ctx context.Context, userID int64, countryCode string, days int) (float64, error)
	RecentTransactions(ctx context.Context, userID int64, countryCode string, limit int) ([]domain.Transaction, error)
	CategoryBreakdown(ctx context.Context, userID int64, countryCode string, fromDate, toDate string) ([]store.CategorySpend, error)
	ListAccountsByCountry(ctx context.Context, userID int64, countryCode string) ([]domain.BankAccount, error)
}

// Registry holds the tool set over a query store.
type Registry struct {
	store QueryStore
}

// NewRegistry builds the tool registry.
func NewRegistry(st QueryStore) *Registry {
	return &Registry{store: st}
}

const countrySchema = `{"type": "string", "enum": ["UK", "IN"]}`

// Definitions returns the tool declarations sent with every completion.
func Definitions() []llm.Tool {
	def := func(name, description, properties string) llm.Tool {
		params := fmt.Sprintf(`{"type": "object", "properties": %s, "required": ["countryCode"], "additionalProperties": false}`, properties)
		return llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        name,
				Description: description,
				Parameters:  json.RawMessage(params),
			},
		}
	}

	return []llm.Tool{
		def("get_spend_summary",
			"Return total debit spend for the last N days for the given country code (UK or IN).",
			`{"countryCode": `+countrySchema+`, "days": {"type": "integer", "minimum": 7, "maximum": 90, "default": 30}}`),
		def("get_income_summary",
			"Return total credit income for the last N days for the given country code (UK or IN).",
			`{"countryCode": `+countrySchema+`, "days": {"type": "integer", "minimum": 7, "maximum": 90, "default": 30}}`),
		def("get_recent_transactions",
			"Fetch the most recent transactions for a country code.",
			`{"countryCode": `+countrySchema+`, "limit": {"type": "integer", "minimum": 1, "maximum": 25, "default": 10}}`),
		def("get_category_breakdown",
			"Return spend by category for a country within a date range.",
			`{"countryCode": `+countrySchema+`, "fromDate": {"type": "string", "description": "YYYY-MM-DD"}, "toDate": {"type": "string", "description": "YYYY-MM-DD"}}`),
		def("get_accounts",
			"List bank accounts for the user filtered by country code.",
			`{"countryCode": `+countrySchema+`}`),
	}
}

type spendSummaryResult struct {
	CountryCode string  `json:"countryCode"`
	Days        int     `json:"days"`
	Total       float64 `json:"total"`
}

type recentTransactionsResult struct {
	CountryCode  string               `json:"countryCode"`
	Limit        int                  `json:"limit"`
	Transactions []domain.Transaction `json:"transactions"`
}

type categoryBreakdownResult struct {
	CountryCode string                `json:"countryCode"`
	FromDate    string                `json:"fromDate,omitempty"`
	ToDate      string                `json:"toDate,omitempty"`
	Categories  []store.CategorySpend `json:"categories"`
}

type accountsResult struct {
	CountryCode string               `json:"countryCode"`
	Accounts    []domain.BankAccount `json:"accounts"`
}

// Run executes one tool call on behalf of userID. Arguments are clamped
// rather than rejected: the model is an unreliable caller and a defaulted
// query beats a failed turn. An unknown name is the exception and aborts.
func (r *Registry) Run(ctx context.Context, name string, args map[string]any, userID int64) (any, error) {
	kind, ok := toolKinds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	country := sanitizeCountry(args["countryCode"])

	switch kind {
	case toolSpendSummary:
		days := clampInt(args["days"], 30, 7, 90)
		total, err := r.store.SpendSummary(ctx, userID, country, days)
		if err != nil {
			return nil, fmt.Errorf("get_spend_summary: %w", err)
		}
		return spendSummaryResult{CountryCode: country, Days: days, Total: total}, nil

	case toolIncomeSummary:
		days := clampInt(args["days"], 30, 7, 90)
		total, err := r.store.IncomeSummary(ctx, userID, country, days)
		if err != nil {
			return nil, fmt.Errorf("get_income_summary: %w", err)
		}
		return spendSummaryResult{CountryCode: country, Days: days, Total: total}, nil

	case toolRecentTransactions:
		limit := clampInt(args["limit"], 10, 1, 25)
		txs, err := r.store.RecentTransactions(ctx, userID, country, limit)
		if err != nil {
			return nil, fmt.Errorf("get_recent_transactions: %w", err)
		}
		if txs == nil {
			txs = []domain.Transaction{}
		}
		return recentTransactionsResult{CountryCode: country, Limit: limit, Transactions: txs}, nil

	case toolCategoryBreakdown:
		from := stringArg(args["fromDate"])
		to := stringArg(args["toDate"])
		rows, err := r.store.CategoryBreakdown(ctx, userID, country, from, to)
		if err != nil {
			return nil, fmt.Errorf("get_category_breakdown: %w", err)
		}
		if rows == nil {
			rows = []store.CategorySpend{}
		}
		return categoryBreakdownResult{CountryCode: country, FromDate: from, ToDate: to, Categories: rows}, nil

	case toolAccounts:
		accounts, err := r.store.ListAccountsByCountry(ctx, userID, country)
		if err != nil {
			return nil, fmt.Errorf("get_accounts: %w", err)
		}
		if accounts == nil {
			accounts = []domain.BankAccount{}
		}
		return accountsResult{CountryCode: country, Accounts: accounts}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// sanitizeCountry coerces anything that is not exactly "IN" to "UK",
// matching the two-country scope of the data model.
func sanitizeCountry(v any) string {
	if s, ok := v.(string); ok && s == "IN" {
		return "IN"
	}
	return "UK"
}

// clampInt reads an integer argument, defaulting when absent or unusable and
// clamping into [min, max]. JSON numbers arrive as float64.
func clampInt(v any, def, min, max int) int {
	n := def
	switch x := v.(type) {
	case float64:
		n = int(x)
	case int:
		n = x
	}
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n
}

func stringArg(v any) string {
	s, _ := v.(string)
	return s
}
