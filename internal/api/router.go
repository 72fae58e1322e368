// Package api assembles the HTTP surface from the handler packages.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/tanveerk/finhub/internal/api/handlers"
	"github.com/tanveerk/finhub/internal/api/middleware"
)

// Deps is everything the router needs wired in.
type Deps struct {
	Auth     *handlers.AuthHandler
	Ops      *handlers.OpsHandler
	AI       *handlers.AIHandler
	Catalog  *handlers.CatalogHandler
	Sessions middleware.SessionResolver
	Log      zerolog.Logger
}

// NewRouter builds the full route table wrapped in the standard middleware
// chain. Everything except health and login requires a session.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", d.Auth.Login).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", d.Auth.Logout).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(middleware.RequireAuth(d.Sessions, d.Log))

	authed.HandleFunc("/ops/upload", d.Ops.UploadStatement).Methods(http.MethodPost)
	authed.HandleFunc("/ops/upload/confirm-bank", d.Ops.ConfirmBank).Methods(http.MethodPost)
	authed.HandleFunc("/ops/upload/extract-transactions", d.Ops.ExtractTransactions).Methods(http.MethodPost)
	authed.HandleFunc("/ops/upload/skip-transactions", d.Ops.SkipTransactions).Methods(http.MethodPost)
	authed.HandleFunc("/ops/upload/confirm", d.Ops.Confirm).Methods(http.MethodPost)

	authed.HandleFunc("/api/ai/chat", d.AI.Chat).Methods(http.MethodPost)
	authed.HandleFunc("/api/ai/conversations", d.AI.ListConversations).Methods(http.MethodGet)
	authed.HandleFunc("/api/ai/conversations/{id:[0-9]+}/messages", d.AI.GetMessages).Methods(http.MethodGet)

	authed.HandleFunc("/api/categories", d.Catalog.ListCategories).Methods(http.MethodGet)
	authed.HandleFunc("/api/categories", d.Catalog.CreateCategory).Methods(http.MethodPost)
	authed.HandleFunc("/api/accounts", d.Catalog.ListAccounts).Methods(http.MethodGet)
	authed.HandleFunc("/api/accounts", d.Catalog.CreateAccount).Methods(http.MethodPost)
	authed.HandleFunc("/dashboard/summary", d.Catalog.DashboardSummary).Methods(http.MethodGet)

	return middleware.Recovery(d.Log)(
		middleware.Logger(d.Log)(
			middleware.RequestID(
				middleware.CORS(r),
			),
		),
	)
}
