package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tanveerk/finhub/internal/bankdetect"
	"github.com/tanveerk/finhub/internal/domain"
	"github.com/tanveerk/finhub/internal/extract"
	"github.com/tanveerk/finhub/internal/store"
)

// MaxUploadSize caps statement uploads at 5MB.
const MaxUploadSize = 5 << 20

var (
	ErrNoUploadInProgress = errors.New("no upload in progress")
	ErrNotPDF             = errors.New("only PDF files are supported")
	ErrFileTooLarge       = errors.New("file exceeds the 5MB limit")
	ErrBankNotConfirmed   = errors.New("bank and country must be confirmed before import")
	ErrNothingToImport    = errors.New("no transactions to import")
)

// TextExtractor pulls plain text out of an uploaded statement file.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// StatementParser turns statement text into transaction candidates.
type StatementParser interface {
	ExtractTransactions(ctx context.Context, statementText string) (*extract.Result, error)
}

// CategoryAssigner annotates candidates with category ids.
type CategoryAssigner interface {
	Assign(ctx context.Context, candidates []domain.TransactionCandidate, categories []domain.Category) []domain.TransactionCandidate
}

// Store is the subset of the persistence layer the wizard needs.
type Store interface {
	GetCountryByCode(ctx context.Context, code string) (*domain.Country, error)
	FindAccount(ctx context.Context, userID int64, bankName, countryCode string) (*domain.BankAccount, error)
	CreateAccount(ctx context.Context, userID int64, country *domain.Country, bankName, accountType string, confirmed bool) (*domain.BankAccount, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	InsertTransactions(ctx context.Context, userID, accountID int64, currency string, candidates []domain.TransactionCandidate) (*store.ImportResult, error)
	RecordUpload(ctx context.Context, userID, accountID int64, fileName, bankDetected string, transactionCount int) error
}

// Service runs the ingestion wizard for all sessions.
type Service struct {
	store       Store
	text        TextExtractor
	parser      StatementParser
	categorizer CategoryAssigner
	sessions    *SessionStore
	uploadDir   string
	log         zerolog.Logger
}

// NewService builds the wizard service. uploadDir is created lazily on the
// first upload.
func NewService(st Store, text TextExtractor, parser StatementParser, categorizer CategoryAssigner, uploadDir string, log zerolog.Logger) *Service {
	return &Service{
		store:       st,
		text:        text,
		parser:      parser,
		categorizer: categorizer,
		sessions:    NewSessionStore(),
		uploadDir:   uploadDir,
		log:         log,
	}
}

// Begin saves the uploaded statement, extracts its text and runs bank
// detection. Starting a new upload replaces any state the session already
// had. Returns the fresh state at step 2.
func (s *Service) Begin(ctx context.Context, sessionID string, userID int64, file io.Reader, fileName string, size int64) (*State, error) {
	if size > MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return nil, ErrNotPDF
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("Begin: create upload dir: %w", err)
	}

	storedName := uuid.New().String() + "-" + filepath.Base(fileName)
	path := filepath.Join(s.uploadDir, storedName)
	if err := saveFile(path, file); err != nil {
		return nil, fmt.Errorf("Begin: %w", err)
	}

	text, err := s.text.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("Begin: extract text: %w", err)
	}

	detection := bankdetect.Detect(text)
	if detection != nil {
		s.log.Info().Int64("user_id", userID).Str("bank", detection.Bank).Str("country", detection.Country).Msg("Bank detected from statement")
	} else {
		s.log.Info().Int64("user_id", userID).Str("file", fileName).Msg("No bank pattern matched; user will pick manually")
	}

	st := &State{
		Step:          StepConfirmBank,
		FileName:      fileName,
		StoredName:    storedName,
		StatementText: text,
		Detection:     detection,
	}
	s.sessions.Put(sessionID, st)
	return st, nil
}

// ConfirmBank records the user's bank and country choice. Both are required:
// detection is a suggestion, never a default.
// normalizeCountry maps the values the detector surfaces ("UK", "India")
// and common variants onto the two-letter codes the store uses.
func normalizeCountry(country string) string {
	c := strings.ToUpper(strings.TrimSpace(country))
	switch c {
	case "INDIA":
		return "IN"
	case "UNITED KINGDOM", "GB":
		return "UK"
	}
	return c
}

func (s *Service) ConfirmBank(ctx context.Context, sessionID, bank, country string) (*State, error) {
	st, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrNoUploadInProgress
	}
	if strings.TrimSpace(bank) == "" || strings.TrimSpace(country) == "" {
		return nil, ErrBankNotConfirmed
	}

	st.Bank = strings.TrimSpace(bank)
	st.Country = normalizeCountry(country)
	st.Step = StepReview
	s.sessions.Put(sessionID, st)
	return st, nil
}

// ExtractTransactions parses the statement text into candidates and
// categorizes them. On failure the session state is kept so the user can
// retry without re-uploading.
func (s *Service) ExtractTransactions(ctx context.Context, sessionID string) (*State, error) {
	st, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrNoUploadInProgress
	}

	result, err := s.parser.ExtractTransactions(ctx, st.StatementText)
	if err != nil {
		return nil, fmt.Errorf("ExtractTransactions: %w", err)
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Loading categories failed; transactions will be uncategorized")
		categories = nil
	}
	st.Candidates = s.categorizer.Assign(ctx, result.Transactions, categories)
	st.Step = StepReview
	s.sessions.Put(sessionID, st)
	return st, nil
}

// SkipTransactions marks candidates the user excluded from the import.
// Indices outside the candidate range are ignored.
func (s *Service) SkipTransactions(ctx context.Context, sessionID string, indices []int) (*State, error) {
	st, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrNoUploadInProgress
	}

	skipped := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(st.Candidates) {
			skipped[i] = true
		}
	}
	st.Skipped = skipped
	st.Step = StepCategorize
	s.sessions.Put(sessionID, st)
	return st, nil
}

// Confirm imports the reviewed candidates. The bank account is resolved by
// (bank, country) and created on first import. overrides maps candidate index
// to the category id the user picked during review. The session state is
// cleared on success; dedup handling is reported per row in the result.
func (s *Service) Confirm(ctx context.Context, sessionID string, userID int64, overrides map[int]int64) (*store.ImportResult, error) {
	st, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrNoUploadInProgress
	}
	if st.Bank == "" || st.Country == "" {
		return nil, ErrBankNotConfirmed
	}
	if len(st.Candidates) == 0 {
		return nil, ErrNothingToImport
	}

	country, err := s.store.GetCountryByCode(ctx, st.Country)
	if err != nil {
		return nil, fmt.Errorf("Confirm: country %q: %w", st.Country, err)
	}

	account, err := s.store.FindAccount(ctx, userID, st.Bank, st.Country)
	if errors.Is(err, store.ErrNotFound) {
		account, err = s.store.CreateAccount(ctx, userID, country, st.Bank, "checking", true)
	}
	if err != nil {
		return nil, fmt.Errorf("Confirm: resolve account: %w", err)
	}

	final := make([]domain.TransactionCandidate, 0, len(st.Candidates))
	for i, c := range st.Candidates {
		if st.Skipped[i] {
			continue
		}
		if id, ok := overrides[i]; ok {
			idCopy := id
			c.CategoryID = &idCopy
		}
		final = append(final, c)
	}
	if len(final) == 0 {
		return nil, ErrNothingToImport
	}

	result, err := s.store.InsertTransactions(ctx, userID, account.ID, account.Currency, final)
	if err != nil {
		return nil, fmt.Errorf("Confirm: %w", err)
	}

	if err := s.store.RecordUpload(ctx, userID, account.ID, st.FileName, st.Bank, result.Inserted); err != nil {
		s.log.Warn().Err(err).Msg("Recording upload audit row failed")
	}

	s.sessions.Delete(sessionID)
	s.log.Info().Int64("user_id", userID).Int("inserted", result.Inserted).Int("duplicates", result.SkippedDuplicates).Int("failed", result.Failed).Msg("Statement import finished")
	return result, nil
}

func saveFile(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	return nil
}
