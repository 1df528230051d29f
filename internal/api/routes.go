// Package api wires the chi router: public auth endpoints, the protected
// dispatch endpoint, and read-only discovery over the sealed registries.
package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nlatta/caseforge/internal/api/handlers"
	apimiddleware "github.com/nlatta/caseforge/internal/api/middleware"
	"github.com/nlatta/caseforge/internal/domain/audit"
	domainauth "github.com/nlatta/caseforge/internal/domain/auth"
	"github.com/nlatta/caseforge/internal/domain/dispatch"
	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/tool"
)

// Deps are the bootstrapped collaborators the router serves. Registries
// are sealed before the router sees them; handlers only read.
type Deps struct {
	DB      *sql.DB
	Ops     *operation.Registry
	Tools   *tool.Registry
	Orch    *dispatch.Orchestrator
	Auditor *audit.Service
}

// NewRouter builds the HTTP route tree.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Unauthenticated, used by load balancers and health probes.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	authHandler := handlers.NewAuthHandler(domainauth.NewService(d.DB, d.Auditor))
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	dispatchHandler := handlers.NewDispatchHandler(d.Orch)
	catalogHandler := handlers.NewCatalogHandler(d.Ops, d.Tools)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apimiddleware.Auth)

		r.Post("/dispatch", dispatchHandler.Dispatch)

		r.Route("/operations", func(r chi.Router) {
			r.Get("/", catalogHandler.ListOperations)
			r.Get("/{name}", catalogHandler.GetOperation)
		})
		r.Route("/tools", func(r chi.Router) {
			r.Get("/", catalogHandler.ListTools)
			r.Get("/{name}", catalogHandler.GetTool)
		})
	})

	return r
}
