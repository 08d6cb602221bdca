// Package handler implements the HTTP surface of the slug service.
// All handlers are methods on Server; they are split into endpoint-specific
// files (resolve.go, webhook.go, alias.go, health.go) but share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/summitupfitters/slugsvc/internal/domain"
	"github.com/summitupfitters/slugsvc/spec"
)

// Resolver defines the resolution operation the resolve handler depends on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the service layer or the store.
type Resolver interface {
	Resolve(ctx context.Context, identifier string) (domain.Resolution, error)
}

// ChangeProcessor defines the webhook handler's dependency. ProcessChange is
// best-effort by contract and returns nothing; the webhook acknowledges the
// CMS regardless of per-document outcomes.
type ChangeProcessor interface {
	ProcessChange(ctx context.Context, n domain.ChangeNotification)
}

// AliasValidator defines the alias-validation handler's dependency.
type AliasValidator interface {
	Validate(ctx context.Context, input domain.AliasValidationInput) error
}

// Server implements all HTTP endpoints.
// Wire it in main.go via Routes.
type Server struct {
	resolver Resolver
	changes  ChangeProcessor
	aliases  AliasValidator
}

// NewServer constructs the Server with all its dependencies.
func NewServer(resolver Resolver, changes ChangeProcessor, aliases AliasValidator) *Server {
	return &Server{resolver: resolver, changes: changes, aliases: aliases}
}

// Routes registers every endpoint on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.GetHealth)
	r.Get("/resolve", s.Resolve)
	r.Post("/webhook", s.Webhook)
	r.Post("/aliases/validate", s.ValidateAliases)
	r.Get("/openapi.yaml", s.OpenAPI)
}

// OpenAPI serves the embedded API document. Serving it from the binary means
// the document and the running code are always in sync.
func (s *Server) OpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(spec.OpenAPI)
}
