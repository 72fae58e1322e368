// Package bankdetect classifies raw statement text to a known institution.
package bankdetect

import "regexp"

// Result is a successful detection. Confidence is a fixed heuristic score;
// the user always confirms the institution in the import flow.
type Result struct {
	Bank       string  `json:"bank"`
	Country    string  `json:"country"`
	Confidence float64 `json:"confidence"`
}

type institution struct {
	name      string
	patterns  []*regexp.Regexp
	countries []string
}

// The table is ordered: more specific patterns before generic ones. The first
// institution with any matching pattern wins.
var institutions = []institution{
	{
		name: "HSBC",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)HSBC\s+(Bank|UK|India)`),
			regexp.MustCompile(`(?i)hsbc\.co\.uk`),
		},
		countries: []string{"UK", "India"},
	},
	{
		name: "Revolut",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Revolut`),
			regexp.MustCompile(`(?i)revolut\.com`),
		},
		countries: []string{"UK"},
	},
	{
		name: "AMEX",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)American\s+Express|AMEX|amex\.com`),
		},
		countries: []string{"UK"},
	},
	{
		name: "ICICI",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)ICICI\s+Bank|icicibank\.com`),
		},
		countries: []string{"India"},
	},
}

var (
	ukSignals    = regexp.MustCompile(`(?i)£|GBP|UK|United Kingdom|London`)
	indiaSignals = regexp.MustCompile(`(?i)₹|INR|India|Mumbai|Bangalore`)
)

// Detect returns the best-guess institution for statement text, or nil when
// no pattern matches. A nil result means "ask the user", never an error.
func Detect(statementText string) *Result {
	for _, inst := range institutions {
		for _, p := range inst.patterns {
			if p.MatchString(statementText) {
				country := inst.countries[0]
				if len(inst.countries) > 1 {
					country = inferCountry(statementText, inst.countries)
				}
				return &Result{Bank: inst.name, Country: country, Confidence: 0.95}
			}
		}
	}
	return nil
}

// inferCountry disambiguates multi-country institutions by scanning for
// currency symbols and place names, falling back to the first listed country.
func inferCountry(text string, possible []string) string {
	if ukSignals.MatchString(text) {
		return "UK"
	}
	if indiaSignals.MatchString(text) {
		return "India"
	}
	return possible[0]
}
