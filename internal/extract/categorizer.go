package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tanveerk/finhub/internal/domain"
	"github.com/tanveerk/finhub/internal/llm"
)

// Categorizer is the category assignment client. Categorization is an
// enhancement, not a blocking step: every failure mode degrades to the input
// candidates with nil category ids so the import can still proceed.
type Categorizer struct {
	client llm.Client
	log    zerolog.Logger
}

// NewCategorizer builds a Categorizer over a completion client.
func NewCategorizer(client llm.Client, log zerolog.Logger) *Categorizer {
	return &Categorizer{client: client, log: log}
}

const categorizationTemperature = 0.2

// Assign annotates candidates with category ids resolved from the known
// category set. One batched call covers the whole upload. Every input
// candidate appears exactly once in the output; unmatched or hallucinated
// category names resolve to nil, never to an invented id.
func (c *Categorizer) Assign(ctx context.Context, candidates []domain.TransactionCandidate, categories []domain.Category) []domain.TransactionCandidate {
	out := make([]domain.TransactionCandidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].CategoryID = nil
	}

	if len(out) == 0 || len(categories) == 0 {
		return out
	}

	msg, err := c.client.ChatCompletion(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildCategorizationPrompt(candidates, categories)},
		},
		Temperature: categorizationTemperature,
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("Category assignment failed; proceeding uncategorized")
		return out
	}

	var mapping map[string]string
	if err := json.Unmarshal([]byte(llm.CleanModelJSON(msg.Content)), &mapping); err != nil {
		c.log.Warn().Err(err).Str("raw", truncateForLog(msg.Content)).Msg("Category assignment returned unparseable JSON; proceeding uncategorized")
		return out
	}

	byID := make(map[string]int64, len(categories))
	for _, cat := range categories {
		byID[strings.ToLower(cat.Name)] = cat.ID
	}

	byMerchant := make(map[string]string, len(mapping))
	for merchant, category := range mapping {
		byMerchant[strings.ToLower(strings.TrimSpace(merchant))] = category
	}

	for i := range out {
		category, ok := byMerchant[strings.ToLower(strings.TrimSpace(out[i].Merchant))]
		if !ok {
			continue
		}
		if id, ok := byID[strings.ToLower(strings.TrimSpace(category))]; ok {
			idCopy := id
			out[i].CategoryID = &idCopy
		}
	}

	return out
}
