package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/summitupfitters/slugsvc/internal/domain"
	"github.com/summitupfitters/slugsvc/internal/handler"
)

// Handler tests exercise the full chi router so route registration is covered
// alongside the handlers themselves. Dependencies are hand-written mocks with
// function fields.

type mockResolver struct {
	resolveFn func(ctx context.Context, identifier string) (domain.Resolution, error)
}

func (m *mockResolver) Resolve(ctx context.Context, identifier string) (domain.Resolution, error) {
	if m.resolveFn == nil {
		return domain.Resolution{}, domain.ErrNotFound
	}
	return m.resolveFn(ctx, identifier)
}

type mockChangeProcessor struct {
	notifications []domain.ChangeNotification
}

func (m *mockChangeProcessor) ProcessChange(_ context.Context, n domain.ChangeNotification) {
	m.notifications = append(m.notifications, n)
}

type mockAliasValidator struct {
	validateFn func(ctx context.Context, input domain.AliasValidationInput) error
}

func (m *mockAliasValidator) Validate(ctx context.Context, input domain.AliasValidationInput) error {
	if m.validateFn == nil {
		return nil
	}
	return m.validateFn(ctx, input)
}

type serverMocks struct {
	resolver *mockResolver
	changes  *mockChangeProcessor
	aliases  *mockAliasValidator
}

func newTestServer() (http.Handler, *serverMocks) {
	mocks := &serverMocks{
		resolver: &mockResolver{},
		changes:  &mockChangeProcessor{},
		aliases:  &mockAliasValidator{},
	}
	r := chi.NewRouter()
	handler.NewServer(mocks.resolver, mocks.changes, mocks.aliases).Routes(r)
	return r, mocks
}

func doRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
