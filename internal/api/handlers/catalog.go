package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tanveerk/finhub/internal/api/middleware"
	"github.com/tanveerk/finhub/internal/domain"
	"github.com/tanveerk/finhub/internal/store"
)

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CatalogHandler serves categories, accounts and the dashboard rollup.
type CatalogHandler struct {
	store *store.Store
	log   zerolog.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(st *store.Store, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{store: st, log: log}
}

// ListCategories handles GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Listing categories failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

// CreateCategory handles POST /api/categories
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}

	if existing, err := h.store.GetCategoryByName(r.Context(), req.Name); err == nil && existing != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Category already exists")
		return
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.Error().Err(err).Msg("Category lookup failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	category, err := h.store.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		h.log.Error().Err(err).Msg("Creating category failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{"category": category})
}

// ListAccounts handles GET /api/accounts
func (h *CatalogHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var (
		accounts []domain.BankAccount
		err      error
	)
	if country := r.URL.Query().Get("country"); country != "" {
		accounts, err = h.store.ListAccountsByCountry(r.Context(), userID, strings.ToUpper(country))
	} else {
		accounts, err = h.store.ListAccounts(r.Context(), userID)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Listing accounts failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []domain.BankAccount{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

var validAccountTypes = map[string]bool{
	"checking":   true,
	"savings":    true,
	"investment": true,
}

// CreateAccount handles POST /api/accounts
func (h *CatalogHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req struct {
		BankName            string `json:"bankName"`
		CountryCode         string `json:"countryCode"`
		AccountType         string `json:"accountType"`
		AccountNumberMasked string `json:"accountNumberMasked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.BankName = strings.TrimSpace(req.BankName)
	if req.BankName == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Bank name is required")
		return
	}
	if !validAccountTypes[req.AccountType] {
		middleware.WriteError(w, http.StatusBadRequest, "Account type must be checking, savings or investment")
		return
	}

	country, err := h.store.GetCountryByCode(r.Context(), strings.ToUpper(strings.TrimSpace(req.CountryCode)))
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusBadRequest, "Unsupported country")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Country lookup failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	account, err := h.store.CreateManualAccount(r.Context(), userID, country, req.BankName, req.AccountType, req.AccountNumberMasked, true)
	if err != nil {
		h.log.Error().Err(err).Msg("Creating account failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{"account": account})
}

const (
	dashboardDays   = 30
	dashboardMonths = 6
	dashboardRecent = 5
)

// DashboardSummary handles GET /dashboard/summary
func (h *CatalogHandler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	ctx := r.Context()

	country := strings.ToUpper(r.URL.Query().Get("country"))
	if country != "IN" {
		country = "UK"
	}

	spend, err := h.store.SpendSummary(ctx, userID, country, dashboardDays)
	if err != nil {
		h.log.Error().Err(err).Msg("Dashboard spend rollup failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	income, err := h.store.IncomeSummary(ctx, userID, country, dashboardDays)
	if err != nil {
		h.log.Error().Err(err).Msg("Dashboard income rollup failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	monthly, err := h.store.MonthlyTotals(ctx, userID, country, dashboardMonths)
	if err != nil {
		h.log.Error().Err(err).Msg("Dashboard monthly rollup failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	recent, err := h.store.RecentTransactions(ctx, userID, country, dashboardRecent)
	if err != nil {
		h.log.Error().Err(err).Msg("Dashboard recent transactions failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	if monthly == nil {
		monthly = []store.MonthlyFlow{}
	}
	if recent == nil {
		recent = []domain.Transaction{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"country":            country,
		"spendLast30Days":    spend,
		"incomeLast30Days":   income,
		"monthly":            monthly,
		"recentTransactions": recent,
	})
}
