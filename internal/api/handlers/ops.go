package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tanveerk/finhub/internal/api/middleware"
	"github.com/tanveerk/finhub/internal/extract"
	"github.com/tanveerk/finhub/internal/llm"
	"github.com/tanveerk/finhub/internal/upload"
)

// OpsHandler drives the statement ingestion wizard over HTTP. The wizard
// state is keyed by the caller's session token, so each login has at most one
// upload in flight.
type OpsHandler struct {
	svc *upload.Service
	log zerolog.Logger
}

// NewOpsHandler creates a new wizard handler.
func NewOpsHandler(svc *upload.Service, log zerolog.Logger) *OpsHandler {
	return &OpsHandler{svc: svc, log: log}
}

// UploadStatement handles POST /ops/upload
func (h *OpsHandler) UploadStatement(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxUploadSize+1024)
	if err := r.ParseMultipartForm(upload.MaxUploadSize); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "File exceeds the 5MB limit")
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "PDF file is required")
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" {
		middleware.WriteError(w, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	st, err := h.svc.Begin(r.Context(), middleware.SessionToken(r), userID, file, header.Filename, header.Size)
	switch {
	case errors.Is(err, upload.ErrNotPDF), errors.Is(err, upload.ErrFileTooLarge):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Statement upload failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process PDF")
		return
	}

	detection := map[string]interface{}{"bank": nil, "confidence": 0}
	if st.Detection != nil {
		detection = map[string]interface{}{
			"bank":       st.Detection.Bank,
			"country":    st.Detection.Country,
			"confidence": st.Detection.Confidence,
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"step":          st.Step,
		"bankDetection": detection,
	})
}

// ConfirmBank handles POST /ops/upload/confirm-bank
func (h *OpsHandler) ConfirmBank(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SelectedBank    string `json:"selectedBank"`
		SelectedCountry string `json:"selectedCountry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	st, err := h.svc.ConfirmBank(r.Context(), middleware.SessionToken(r), req.SelectedBank, req.SelectedCountry)
	switch {
	case errors.Is(err, upload.ErrNoUploadInProgress):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, upload.ErrBankNotConfirmed):
		middleware.WriteError(w, http.StatusBadRequest, "Bank and country are required")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Bank confirmation failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to confirm bank")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"step":    st.Step,
	})
}

// ExtractTransactions handles POST /ops/upload/extract-transactions
func (h *OpsHandler) ExtractTransactions(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.ExtractTransactions(r.Context(), middleware.SessionToken(r))
	switch {
	case errors.Is(err, upload.ErrNoUploadInProgress):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, llm.ErrMissingAPIKey):
		middleware.WriteError(w, http.StatusInternalServerError, "AI extraction is not configured")
		return
	case errors.Is(err, extract.ErrMalformedModelOutput):
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to extract transactions from the statement")
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Transaction extraction failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to extract transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"step":         st.Step,
		"transactions": st.Candidates,
		"count":        len(st.Candidates),
	})
}

// SkipTransactions handles POST /ops/upload/skip-transactions
func (h *OpsHandler) SkipTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SkippedIDs []int `json:"skippedIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	st, err := h.svc.SkipTransactions(r.Context(), middleware.SessionToken(r), req.SkippedIDs)
	if errors.Is(err, upload.ErrNoUploadInProgress) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Skipping transactions failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to skip transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"step":    st.Step,
	})
}

// Confirm handles POST /ops/upload/confirm
func (h *OpsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req struct {
		CategorizedTransactions []struct {
			Index      int    `json:"index"`
			CategoryID *int64 `json:"categoryId"`
		} `json:"categorizedTransactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	overrides := make(map[int]int64, len(req.CategorizedTransactions))
	for _, ct := range req.CategorizedTransactions {
		if ct.CategoryID != nil {
			overrides[ct.Index] = *ct.CategoryID
		}
	}

	result, err := h.svc.Confirm(r.Context(), middleware.SessionToken(r), userID, overrides)
	switch {
	case errors.Is(err, upload.ErrNoUploadInProgress),
		errors.Is(err, upload.ErrBankNotConfirmed),
		errors.Is(err, upload.ErrNothingToImport):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Statement import failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to import transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":              true,
		"transactionsImported": result.Inserted,
		"skippedDuplicates":    result.SkippedDuplicates,
		"failed":               result.Failed,
		"outcomes":             result.Outcomes,
		"redirect":             "/dashboard",
	})
}
