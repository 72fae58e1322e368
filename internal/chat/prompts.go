package chat

import (
	"fmt"
	"sort"
	"strings"
)

// PageContext is what the UI was showing when the user asked: the orchestrator
// folds it into the system prompt so the model can ground answers in what is
// on screen.
type PageContext struct {
	Route   string            `json:"route,omitempty"`
	Country string            `json:"country,omitempty"`
	Summary map[string]string `json:"summary,omitempty"`
}

func buildSystemPrompt(page PageContext) string {
	var contextLines []string
	if page.Route != "" {
		contextLines = append(contextLines, "Current route: "+page.Route)
	}
	if page.Country != "" {
		contextLines = append(contextLines, "Active country: "+page.Country)
	}
	if len(page.Summary) > 0 {
		contextLines = append(contextLines, "Visible metrics:")
		keys := make([]string, 0, len(page.Summary))
		for k := range page.Summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			contextLines = append(contextLines, fmt.Sprintf("- %s: %s", k, page.Summary[k]))
		}
	}

	pageSection := "Page context: none provided."
	if len(contextLines) > 0 {
		pageSection = "Page context:\n" + strings.Join(contextLines, "\n")
	}

	return strings.Join([]string{
		"You are the household personal-finance copilot for Tanveer and spouse.",
		"Rules: do not fabricate balances; always ask clarifying questions if data is missing; keep responses concise and actionable.",
		"Use tools whenever the user requests specific numbers, balances, categories, or transaction details.",
		"Never execute raw SQL; only call provided tools. All data is scoped to the authenticated user.",
		"Mark any inferred estimates clearly; prefer sourced numbers.",
		pageSection,
	}, "\n")
}
