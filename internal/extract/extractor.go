// Package extract turns raw statement text into transaction candidates using
// the completion endpoint, and annotates them with category ids.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tanveerk/finhub/internal/domain"
	"github.com/tanveerk/finhub/internal/llm"
)

// ErrMalformedModelOutput marks responses that are not valid JSON even after
// fence stripping. Use errors.Is against this; the concrete
// MalformedModelOutputError carries the offending payload.
var ErrMalformedModelOutput = errors.New("malformed model output")

// MalformedModelOutputError wraps a parse failure together with the raw model
// response for diagnosis.
type MalformedModelOutputError struct {
	Raw string
	Err error
}

func (e *MalformedModelOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *MalformedModelOutputError) Unwrap() []error {
	return []error{ErrMalformedModelOutput, e.Err}
}

// Result is the outcome of statement extraction.
type Result struct {
	Transactions []domain.TransactionCandidate `json:"transactions"`
	BankDetected string                        `json:"bank_detected"`
	AccountType  string                        `json:"account_type"`
	Confidence   float64                       `json:"confidence"`
}

// Extractor is the statement extraction client.
type Extractor struct {
	client llm.Client
	log    zerolog.Logger
}

// NewExtractor builds an Extractor over a completion client.
func NewExtractor(client llm.Client, log zerolog.Logger) *Extractor {
	return &Extractor{client: client, log: log}
}

const extractionTemperature = 0.3

type wireResult struct {
	Transactions []wireTransaction `json:"transactions"`
	BankDetected string            `json:"bank_detected"`
	AccountType  string            `json:"account_type"`
	Confidence   float64           `json:"confidence"`
}

type wireTransaction struct {
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Merchant    string  `json:"merchant"`
	Description string  `json:"description"`
	Type        string  `json:"transaction_type"`
}

// ExtractTransactions parses statement text into candidates.
//
// A parse failure is a hard error: an empty candidate list would be
// indistinguishable from a statement with no transactions. The raw response
// is logged for diagnosis and attached to the returned error. The call is not
// retried internally; re-submitting costs money and belongs to the caller.
func (e *Extractor) ExtractTransactions(ctx context.Context, statementText string) (*Result, error) {
	msg, err := e.client.ChatCompletion(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildExtractionPrompt(statementText)},
		},
		Temperature: extractionTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("ExtractTransactions: %w", err)
	}

	clean := llm.CleanModelJSON(msg.Content)

	var wire wireResult
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		e.log.Error().Err(err).Str("raw", truncateForLog(msg.Content)).Msg("Statement extraction returned unparseable JSON")
		return nil, &MalformedModelOutputError{Raw: msg.Content, Err: err}
	}

	candidates := make([]domain.TransactionCandidate, 0, len(wire.Transactions))
	for i, tx := range wire.Transactions {
		c, err := normalizeCandidate(tx)
		if err != nil {
			e.log.Error().Err(err).Int("index", i).Str("raw", truncateForLog(msg.Content)).Msg("Statement extraction returned invalid transaction")
			return nil, &MalformedModelOutputError{Raw: msg.Content, Err: fmt.Errorf("transaction %d: %w", i, err)}
		}
		candidates = append(candidates, c)
	}

	return &Result{
		Transactions: candidates,
		BankDetected: wire.BankDetected,
		AccountType:  wire.AccountType,
		Confidence:   wire.Confidence,
	}, nil
}

// normalizeCandidate enforces the sign/type invariant: debits are negative,
// credits positive. A missing type is inferred from the sign; a sign that
// disagrees with an explicit type is flipped to match it.
func normalizeCandidate(tx wireTransaction) (domain.TransactionCandidate, error) {
	date, err := time.Parse("2006-01-02", tx.Date)
	if err != nil {
		return domain.TransactionCandidate{}, fmt.Errorf("invalid date %q: %w", tx.Date, err)
	}

	amount := decimal.NewFromFloat(tx.Amount)

	txType := tx.Type
	switch txType {
	case domain.TransactionDebit, domain.TransactionCredit:
	case "":
		if amount.IsNegative() {
			txType = domain.TransactionDebit
		} else {
			txType = domain.TransactionCredit
		}
	default:
		return domain.TransactionCandidate{}, fmt.Errorf("invalid transaction_type %q", tx.Type)
	}

	if txType == domain.TransactionDebit && amount.IsPositive() {
		amount = amount.Neg()
	}
	if txType == domain.TransactionCredit && amount.IsNegative() {
		amount = amount.Neg()
	}

	return domain.TransactionCandidate{
		Date:        date,
		Amount:      amount,
		Merchant:    tx.Merchant,
		Description: tx.Description,
		Type:        txType,
	}, nil
}

func truncateForLog(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[:max]
}
