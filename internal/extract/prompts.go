package extract

import (
	"strings"

	"github.com/tanveerk/finhub/internal/domain"
)

// buildExtractionPrompt asks the model to parse a statement into strict JSON.
// The shape is fixed; cleanup of fence-wrapped answers happens at parse time
// because models do not reliably honor the no-Markdown instruction.
func buildExtractionPrompt(statementText string) string {
	var b strings.Builder

	b.WriteString("You are a bank statement parser. Extract all transactions from the following bank statement text and return as JSON.\n\n")
	b.WriteString("Bank Statement:\n")
	b.WriteString(statementText)
	b.WriteString("\n\n")
	b.WriteString("Return ONLY valid JSON (no markdown, no extra text) in this format:\n")
	b.WriteString(`{
  "transactions": [
    {
      "date": "YYYY-MM-DD",
      "amount": number (positive for credit, negative for debit),
      "merchant": "merchant name",
      "description": "transaction description",
      "transaction_type": "debit" or "credit"
    }
  ],
  "bank_detected": "bank name",
  "account_type": "checking/savings/investment",
  "confidence": 0.0 to 1.0
}`)

	return b.String()
}

// buildCategorizationPrompt asks for one merchant-to-category mapping over the
// whole batch, constrained to the known category vocabulary.
func buildCategorizationPrompt(candidates []domain.TransactionCandidate, categories []domain.Category) string {
	var b strings.Builder

	b.WriteString("You are a personal-finance categorizer. Assign each transaction below to one of the allowed categories.\n\n")

	b.WriteString("Allowed categories (use EXACTLY these names):\n")
	for _, c := range categories {
		b.WriteString("- ")
		b.WriteString(c.Name)
		b.WriteString("\n")
	}

	b.WriteString("\nTransactions:\n")
	for _, c := range candidates {
		b.WriteString("- merchant: ")
		b.WriteString(c.Merchant)
		b.WriteString(" | description: ")
		b.WriteString(c.Description)
		b.WriteString(" | amount: ")
		b.WriteString(c.Amount.StringFixed(2))
		b.WriteString(" | type: ")
		b.WriteString(c.Type)
		b.WriteString("\n")
	}

	b.WriteString("\nReturn ONLY valid JSON (no markdown, no extra text): an object mapping each merchant name to one allowed category name.\n")
	b.WriteString("If no category fits a merchant confidently, omit that merchant from the object.\n")
	b.WriteString(`Example: {"TESCO STORES": "Groceries", "TFL TRAVEL": "Transport"}`)
	b.WriteString("\n")

	return b.String()
}
