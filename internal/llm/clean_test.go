package llm

import "testing"

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "bare object untouched",
			raw:  `{"transactions": []}`,
			want: `{"transactions": []}`,
		},
		{
			name: "json fence",
			raw:  "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "plain fence",
			raw:  "```\n[1, 2, 3]\n```",
			want: `[1, 2, 3]`,
		},
		{
			name: "prose around object",
			raw:  "Here is the result:\n{\"a\": 1}\nHope that helps!",
			want: `{"a": 1}`,
		},
		{
			name: "whitespace only trimmed",
			raw:  "  \n {\"a\": 1} \n ",
			want: `{"a": 1}`,
		},
		{
			name: "no json at all",
			raw:  "sorry, I cannot do that",
			want: "sorry, I cannot do that",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("CleanModelJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSafeParseArgs(t *testing.T) {
	tests := []struct {
		name      string
		arguments string
		wantKey   string
		wantEmpty bool
	}{
		{name: "valid", arguments: `{"countryCode": "UK"}`, wantKey: "countryCode"},
		{name: "empty string", arguments: "", wantEmpty: true},
		{name: "malformed", arguments: `{"countryCode": `, wantEmpty: true},
		{name: "null", arguments: "null", wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeParseArgs(tt.arguments)
			if got == nil {
				t.Fatal("SafeParseArgs returned nil map")
			}
			if tt.wantEmpty && len(got) != 0 {
				t.Errorf("SafeParseArgs(%q) = %v, want empty map", tt.arguments, got)
			}
			if tt.wantKey != "" {
				if _, ok := got[tt.wantKey]; !ok {
					t.Errorf("SafeParseArgs(%q) missing key %q", tt.arguments, tt.wantKey)
				}
			}
		})
	}
}
