package upload

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tanveerk/finhub/internal/domain"
	"github.com/tanveerk/finhub/internal/extract"
	"github.com/tanveerk/finhub/internal/store"
)

type fakeText struct {
	text string
	err  error
}

func (f *fakeText) Extract(ctx context.Context, path string) (string, error) {
	return f.text, f.err
}

type fakeParser struct {
	result *extract.Result
	err    error
}

func (f *fakeParser) ExtractTransactions(ctx context.Context, text string) (*extract.Result, error) {
	return f.result, f.err
}

type fakeCategorizer struct{}

func (fakeCategorizer) Assign(ctx context.Context, candidates []domain.TransactionCandidate, categories []domain.Category) []domain.TransactionCandidate {
	out := make([]domain.TransactionCandidate, len(candidates))
	copy(out, candidates)
	return out
}

type fakeStore struct {
	accounts       map[string]*domain.BankAccount
	createdAccount *domain.BankAccount
	imported       []domain.TransactionCandidate
	importResult   *store.ImportResult
	uploadRecorded bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]*domain.BankAccount)}
}

func (f *fakeStore) GetCountryByCode(ctx context.Context, code string) (*domain.Country, error) {
	switch code {
	case "UK":
		return &domain.Country{ID: 1, Code: "UK", CurrencyCode: "GBP"}, nil
	case "IN":
		return &domain.Country{ID: 2, Code: "IN", CurrencyCode: "INR"}, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) FindAccount(ctx context.Context, userID int64, bankName, countryCode string) (*domain.BankAccount, error) {
	if a, ok := f.accounts[bankName+"/"+countryCode]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateAccount(ctx context.Context, userID int64, country *domain.Country, bankName, accountType string, confirmed bool) (*domain.BankAccount, error) {
	a := &domain.BankAccount{ID: 7, UserID: userID, BankName: bankName, AccountType: accountType, Currency: country.CurrencyCode, Confirmed: confirmed}
	f.accounts[bankName+"/"+country.Code] = a
	f.createdAccount = a
	return a, nil
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: 1, Name: "Groceries"}}, nil
}

func (f *fakeStore) InsertTransactions(ctx context.Context, userID, accountID int64, currency string, candidates []domain.TransactionCandidate) (*store.ImportResult, error) {
	f.imported = candidates
	if f.importResult != nil {
		return f.importResult, nil
	}
	res := &store.ImportResult{Inserted: len(candidates)}
	for i := range candidates {
		res.Outcomes = append(res.Outcomes, store.ImportOutcome{Index: i, Status: store.ImportInserted})
	}
	return res, nil
}

func (f *fakeStore) RecordUpload(ctx context.Context, userID, accountID int64, fileName, bankDetected string, transactionCount int) error {
	f.uploadRecorded = true
	return nil
}

func testCandidates() []domain.TransactionCandidate {
	mk := func(merchant, amount string) domain.TransactionCandidate {
		amt, _ := decimal.NewFromString(amount)
		return domain.TransactionCandidate{
			Date:        time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			Amount:      amt,
			Merchant:    merchant,
			Description: merchant,
			Type:        domain.TransactionDebit,
		}
	}
	return []domain.TransactionCandidate{mk("TESCO", "-42.10"), mk("TFL", "-2.80"), mk("AMAZON", "-9.99")}
}

func newTestService(t *testing.T, fs *fakeStore, text string) *Service {
	t.Helper()
	return NewService(
		fs,
		&fakeText{text: text},
		&fakeParser{result: &extract.Result{Transactions: testCandidates(), BankDetected: "HSBC", Confidence: 0.9}},
		fakeCategorizer{},
		t.TempDir(),
		zerolog.Nop(),
	)
}

func TestBegin(t *testing.T) {
	svc := newTestService(t, newFakeStore(), "HSBC Bank plc, London, United Kingdom")

	st, err := svc.Begin(context.Background(), "sess", 1, strings.NewReader("%PDF-1.4"), "statement.pdf", 100)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if st.Step != StepConfirmBank {
		t.Errorf("step = %d, want %d", st.Step, StepConfirmBank)
	}
	if st.Detection == nil || st.Detection.Bank != "HSBC" || st.Detection.Country != "UK" {
		t.Errorf("detection = %+v, want HSBC/UK", st.Detection)
	}
	if st.FileName != "statement.pdf" {
		t.Errorf("file name = %q", st.FileName)
	}
}

func TestBegin_Rejections(t *testing.T) {
	svc := newTestService(t, newFakeStore(), "text")

	_, err := svc.Begin(context.Background(), "sess", 1, strings.NewReader("x"), "statement.csv", 100)
	if !errors.Is(err, ErrNotPDF) {
		t.Errorf("csv upload: err = %v, want ErrNotPDF", err)
	}

	_, err = svc.Begin(context.Background(), "sess", 1, strings.NewReader("x"), "statement.pdf", MaxUploadSize+1)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("oversize upload: err = %v, want ErrFileTooLarge", err)
	}
}

func TestBegin_OverwritesExistingState(t *testing.T) {
	svc := newTestService(t, newFakeStore(), "Revolut Ltd, London")
	ctx := context.Background()

	if _, err := svc.Begin(ctx, "sess", 1, strings.NewReader("a"), "first.pdf", 10); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ConfirmBank(ctx, "sess", "Revolut", "UK"); err != nil {
		t.Fatal(err)
	}

	st, err := svc.Begin(ctx, "sess", 1, strings.NewReader("b"), "second.pdf", 10)
	if err != nil {
		t.Fatal(err)
	}
	if st.Bank != "" || st.Step != StepConfirmBank || st.FileName != "second.pdf" {
		t.Errorf("new upload did not reset state: %+v", st)
	}
}

func TestWizard_RequiresUploadFirst(t *testing.T) {
	svc := newTestService(t, newFakeStore(), "text")
	ctx := context.Background()

	if _, err := svc.ConfirmBank(ctx, "nope", "HSBC", "UK"); !errors.Is(err, ErrNoUploadInProgress) {
		t.Errorf("ConfirmBank: err = %v", err)
	}
	if _, err := svc.ExtractTransactions(ctx, "nope"); !errors.Is(err, ErrNoUploadInProgress) {
		t.Errorf("ExtractTransactions: err = %v", err)
	}
	if _, err := svc.SkipTransactions(ctx, "nope", []int{0}); !errors.Is(err, ErrNoUploadInProgress) {
		t.Errorf("SkipTransactions: err = %v", err)
	}
	if _, err := svc.Confirm(ctx, "nope", 1, nil); !errors.Is(err, ErrNoUploadInProgress) {
		t.Errorf("Confirm: err = %v", err)
	}
}

func TestConfirm_RequiresExplicitBankAndCountry(t *testing.T) {
	svc := newTestService(t, newFakeStore(), "HSBC Bank plc, London")
	ctx := context.Background()

	if _, err := svc.Begin(ctx, "sess", 1, strings.NewReader("x"), "s.pdf", 10); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ExtractTransactions(ctx, "sess"); err != nil {
		t.Fatal(err)
	}

	// Detection suggested HSBC/UK but the user never confirmed it.
	_, err := svc.Confirm(ctx, "sess", 1, nil)
	if !errors.Is(err, ErrBankNotConfirmed) {
		t.Fatalf("err = %v, want ErrBankNotConfirmed", err)
	}

	if _, err := svc.ConfirmBank(ctx, "sess", "HSBC", ""); !errors.Is(err, ErrBankNotConfirmed) {
		t.Errorf("empty country accepted: %v", err)
	}
}

func TestConfirmBank_NormalizesCountry(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"uk", "UK"},
		{"United Kingdom", "UK"},
		{"India", "IN"},
		{"IN", "IN"},
	}

	for _, tt := range tests {
		fs := newFakeStore()
		svc := newTestService(t, fs, "ICICI Bank statement")
		ctx := context.Background()

		if _, err := svc.Begin(ctx, "sess", 1, strings.NewReader("x"), "s.pdf", 10); err != nil {
			t.Fatal(err)
		}
		st, err := svc.ConfirmBank(ctx, "sess", "ICICI", tt.in)
		if err != nil {
			t.Fatalf("ConfirmBank(%q): %v", tt.in, err)
		}
		if st.Country != tt.want {
			t.Errorf("ConfirmBank(%q): country = %q, want %q", tt.in, st.Country, tt.want)
		}
	}
}

func TestConfirm_FullFlow(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs, "HSBC Bank plc, London, United Kingdom")
	ctx := context.Background()

	if _, err := svc.Begin(ctx, "sess", 1, strings.NewReader("x"), "jan.pdf", 10); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ConfirmBank(ctx, "sess", "HSBC", "uk"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ExtractTransactions(ctx, "sess"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SkipTransactions(ctx, "sess", []int{1, 99}); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Confirm(ctx, "sess", 1, map[int]int64{0: 5})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if fs.createdAccount == nil {
		t.Fatal("account was not created on first import")
	}
	if fs.createdAccount.Currency != "GBP" {
		t.Errorf("currency = %q, want GBP from country", fs.createdAccount.Currency)
	}
	if len(fs.imported) != 2 {
		t.Fatalf("imported %d candidates, want 2 (one skipped, out-of-range ignored)", len(fs.imported))
	}
	if fs.imported[0].CategoryID == nil || *fs.imported[0].CategoryID != 5 {
		t.Errorf("override not applied: %v", fs.imported[0].CategoryID)
	}
	if fs.imported[0].Merchant != "TESCO" || fs.imported[1].Merchant != "AMAZON" {
		t.Errorf("wrong candidates survived skip: %q, %q", fs.imported[0].Merchant, fs.imported[1].Merchant)
	}
	if result.Inserted != 2 {
		t.Errorf("inserted = %d, want 2", result.Inserted)
	}
	if !fs.uploadRecorded {
		t.Error("audit row not recorded")
	}

	// Session state is cleared after a successful import.
	if _, err := svc.Confirm(ctx, "sess", 1, nil); !errors.Is(err, ErrNoUploadInProgress) {
		t.Errorf("state survived confirm: %v", err)
	}
}
