package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/tanveerk/finhub/internal/domain"
	"github.com/tanveerk/finhub/internal/store"
)

type fakeQueryStore struct {
	lastCountry string
	lastDays    int
	lastLimit   int
	lastFrom    string
	lastTo      string
	total       float64
}

func (f *fakeQueryStore) SpendSummary(ctx context.Context, userID int64, countryCode string, days int) (float64, error) {
	f.lastCountry, f.lastDays = countryCode, days
	return f.total, nil
}

func (f *fakeQueryStore) IncomeSummary(ctx context.Context, userID int64, countryCode string, days int) (float64, error) {
	f.lastCountry, f.lastDays = countryCode, days
	return f.total, nil
}

func (f *fakeQueryStore) RecentTransactions(ctx context.Context, userID int64, countryCode string, limit int) ([]domain.Transaction, error) {
	f.lastCountry, f.lastLimit = countryCode, limit
	return nil, nil
}

func (f *fakeQueryStore) CategoryBreakdown(ctx context.Context, userID int64, countryCode, fromDate, toDate string) ([]store.CategorySpend, error) {
	f.lastCountry, f.lastFrom, f.lastTo = countryCode, fromDate, toDate
	return nil, nil
}

func (f *fakeQueryStore) ListAccountsByCountry(ctx context.Context, userID int64, countryCode string) ([]domain.BankAccount, error) {
	f.lastCountry = countryCode
	return nil, nil
}

func TestRun_ParameterClamping(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		wantCtry string
		wantDays int
	}{
		{
			name:     "days above range clamps to 90",
			tool:     "get_spend_summary",
			args:     map[string]any{"countryCode": "UK", "days": float64(500)},
			wantCtry: "UK",
			wantDays: 90,
		},
		{
			name:     "days below range clamps to 7",
			tool:     "get_spend_summary",
			args:     map[string]any{"countryCode": "UK", "days": float64(1)},
			wantCtry: "UK",
			wantDays: 7,
		},
		{
			name:     "missing days defaults to 30",
			tool:     "get_income_summary",
			args:     map[string]any{"countryCode": "IN"},
			wantCtry: "IN",
			wantDays: 30,
		},
		{
			name:     "unsupported country coerces to UK",
			tool:     "get_spend_summary",
			args:     map[string]any{"countryCode": "FR"},
			wantCtry: "UK",
			wantDays: 30,
		},
		{
			name:     "lowercase country is not IN",
			tool:     "get_spend_summary",
			args:     map[string]any{"countryCode": "in"},
			wantCtry: "UK",
			wantDays: 30,
		},
		{
			name:     "missing country coerces to UK",
			tool:     "get_spend_summary",
			args:     map[string]any{},
			wantCtry: "UK",
			wantDays: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeQueryStore{}
			r := NewRegistry(fs)

			if _, err := r.Run(context.Background(), tt.tool, tt.args, 1); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if fs.lastCountry != tt.wantCtry {
				t.Errorf("country = %q, want %q", fs.lastCountry, tt.wantCtry)
			}
			if fs.lastDays != tt.wantDays {
				t.Errorf("days = %d, want %d", fs.lastDays, tt.wantDays)
			}
		})
	}
}

func TestRun_LimitClamping(t *testing.T) {
	fs := &fakeQueryStore{}
	r := NewRegistry(fs)

	if _, err := r.Run(context.Background(), "get_recent_transactions", map[string]any{"countryCode": "UK", "limit": float64(100)}, 1); err != nil {
		t.Fatal(err)
	}
	if fs.lastLimit != 25 {
		t.Errorf("limit = %d, want 25", fs.lastLimit)
	}

	if _, err := r.Run(context.Background(), "get_recent_transactions", map[string]any{"countryCode": "UK"}, 1); err != nil {
		t.Fatal(err)
	}
	if fs.lastLimit != 10 {
		t.Errorf("default limit = %d, want 10", fs.lastLimit)
	}
}

func TestRun_UnknownTool(t *testing.T) {
	r := NewRegistry(&fakeQueryStore{})

	_, err := r.Run(context.Background(), "drop_all_tables", map[string]any{}, 1)
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("err = %v, want ErrUnknownTool", err)
	}
}

func TestRun_EmptyResultsMarshalAsArrays(t *testing.T) {
	r := NewRegistry(&fakeQueryStore{})

	out, err := r.Run(context.Background(), "get_recent_transactions", map[string]any{"countryCode": "UK"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	res, ok := out.(recentTransactionsResult)
	if !ok {
		t.Fatalf("unexpected result type %T", out)
	}
	if res.Transactions == nil {
		t.Error("nil transaction slice would marshal as null, want []")
	}
}

func TestDefinitions(t *testing.T) {
	defs := Definitions()
	if len(defs) != len(toolKinds) {
		t.Fatalf("got %d definitions, want %d", len(defs), len(toolKinds))
	}
	for _, d := range defs {
		if _, ok := toolKinds[d.Function.Name]; !ok {
			t.Errorf("definition %q has no dispatch case", d.Function.Name)
		}
		if len(d.Function.Parameters) == 0 {
			t.Errorf("definition %q has empty parameters", d.Function.Name)
		}
	}
}
