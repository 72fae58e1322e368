package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tanveerk/finhub/internal/llm"
)

// mockClient returns scripted completion messages in order.
type mockClient struct {
	responses []llm.Message
	err       error
	calls     int
	requests  []llm.CompletionRequest
}

func (m *mockClient) ChatCompletion(ctx context.Context, req llm.CompletionRequest) (*llm.Message, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++
	msg := m.responses[idx]
	return &msg, nil
}

func TestExtractTransactions(t *testing.T) {
	client := &mockClient{responses: []llm.Message{{
		Role: llm.RoleAssistant,
		Content: "```json\n" + `{
  "transactions": [
    {"date": "2025-01-05", "amount": -42.10, "merchant": "TESCO", "description": "TESCO STORES 2048", "transaction_type": "debit"},
    {"date": "2025-01-06", "amount": 2500.00, "merchant": "ACME LTD", "description": "SALARY JAN", "transaction_type": "credit"}
  ],
  "bank_detected": "HSBC",
  "account_type": "checking",
  "confidence": 0.9
}` + "\n```",
	}}}

	e := NewExtractor(client, zerolog.Nop())
	got, err := e.ExtractTransactions(context.Background(), "statement text")
	if err != nil {
		t.Fatalf("ExtractTransactions: %v", err)
	}
	if len(got.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(got.Transactions))
	}
	if got.BankDetected != "HSBC" || got.AccountType != "checking" {
		t.Errorf("metadata = %q/%q", got.BankDetected, got.AccountType)
	}
	if got.Transactions[0].Amount.StringFixed(2) != "-42.10" {
		t.Errorf("debit amount = %s, want -42.10", got.Transactions[0].Amount.StringFixed(2))
	}
	if got.Transactions[1].Amount.StringFixed(2) != "2500.00" {
		t.Errorf("credit amount = %s, want 2500.00", got.Transactions[1].Amount.StringFixed(2))
	}
}

func TestExtractTransactions_SignNormalization(t *testing.T) {
	tests := []struct {
		name       string
		tx         string
		wantAmount string
		wantType   string
	}{
		{
			name:       "debit with positive amount is flipped",
			tx:         `{"date": "2025-01-05", "amount": 42.10, "merchant": "TESCO", "description": "d", "transaction_type": "debit"}`,
			wantAmount: "-42.10",
			wantType:   "debit",
		},
		{
			name:       "credit with negative amount is flipped",
			tx:         `{"date": "2025-01-05", "amount": -100, "merchant": "ACME", "description": "d", "transaction_type": "credit"}`,
			wantAmount: "100.00",
			wantType:   "credit",
		},
		{
			name:       "missing type inferred from negative sign",
			tx:         `{"date": "2025-01-05", "amount": -5.00, "merchant": "X", "description": "d"}`,
			wantAmount: "-5.00",
			wantType:   "debit",
		},
		{
			name:       "missing type inferred from positive sign",
			tx:         `{"date": "2025-01-05", "amount": 5.00, "merchant": "X", "description": "d"}`,
			wantAmount: "5.00",
			wantType:   "credit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{responses: []llm.Message{{
				Role:    llm.RoleAssistant,
				Content: `{"transactions": [` + tt.tx + `], "bank_detected": "", "account_type": "", "confidence": 0.5}`,
			}}}
			e := NewExtractor(client, zerolog.Nop())

			got, err := e.ExtractTransactions(context.Background(), "text")
			if err != nil {
				t.Fatalf("ExtractTransactions: %v", err)
			}
			c := got.Transactions[0]
			if c.Amount.StringFixed(2) != tt.wantAmount {
				t.Errorf("amount = %s, want %s", c.Amount.StringFixed(2), tt.wantAmount)
			}
			if c.Type != tt.wantType {
				t.Errorf("type = %q, want %q", c.Type, tt.wantType)
			}
		})
	}
}

func TestExtractTransactions_MalformedOutput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "prose only", content: "I could not parse this statement."},
		{name: "truncated json", content: `{"transactions": [`},
		{name: "bad date", content: `{"transactions": [{"date": "05/01/2025", "amount": 1, "merchant": "X", "description": "d", "transaction_type": "credit"}]}`},
		{name: "bad type", content: `{"transactions": [{"date": "2025-01-05", "amount": 1, "merchant": "X", "description": "d", "transaction_type": "refund"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{responses: []llm.Message{{Role: llm.RoleAssistant, Content: tt.content}}}
			e := NewExtractor(client, zerolog.Nop())

			_, err := e.ExtractTransactions(context.Background(), "text")
			if !errors.Is(err, ErrMalformedModelOutput) {
				t.Fatalf("err = %v, want ErrMalformedModelOutput", err)
			}
			var malformed *MalformedModelOutputError
			if !errors.As(err, &malformed) {
				t.Fatal("error does not carry the raw payload")
			}
			if malformed.Raw != tt.content {
				t.Errorf("raw = %q, want original content", malformed.Raw)
			}
		})
	}
}

func TestExtractTransactions_ClientErrorSurfaced(t *testing.T) {
	client := &mockClient{err: llm.ErrMissingAPIKey}
	e := NewExtractor(client, zerolog.Nop())

	_, err := e.ExtractTransactions(context.Background(), "text")
	if !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
}

// An empty transactions array parses successfully: "statement has no
// transactions" is a valid result, distinct from malformed output.
func TestExtractTransactions_EmptyList(t *testing.T) {
	client := &mockClient{responses: []llm.Message{{
		Role:    llm.RoleAssistant,
		Content: `{"transactions": [], "bank_detected": "HSBC", "account_type": "checking", "confidence": 0.8}`,
	}}}
	e := NewExtractor(client, zerolog.Nop())

	got, err := e.ExtractTransactions(context.Background(), "text")
	if err != nil {
		t.Fatalf("ExtractTransactions: %v", err)
	}
	if len(got.Transactions) != 0 {
		t.Errorf("got %d transactions, want 0", len(got.Transactions))
	}
}
