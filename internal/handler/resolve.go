package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/summitupfitters/slugsvc/internal/domain"
)

// resolveResponse is the success envelope for GET /resolve.
type resolveResponse struct {
	Success bool           `json:"success"`
	Data    domain.Vehicle `json:"data"`
	Meta    resolveMeta    `json:"meta"`
}

// resolveMeta tells the caller whether the identifier it asked about is
// canonical. When IsHistoricalSlug is true the web layer should redirect to
// CurrentSlug instead of rendering under the stale identifier.
type resolveMeta struct {
	CurrentSlug      string `json:"currentSlug"`
	IsHistoricalSlug bool   `json:"isHistoricalSlug"`
	Redirect         bool   `json:"redirect"`
}

// Resolve handles GET /resolve?slug=<identifier>.
//
//	200 — vehicle found (meta says whether to redirect)
//	400 — slug parameter missing or blank
//	404 — no vehicle matches by current slug, history, or alias
//	500 — content store unreachable
func (s *Server) Resolve(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("slug")

	resolution, err := s.resolver.Resolve(r.Context(), identifier)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyIdentifier):
			writeError(w, http.StatusBadRequest, "slug parameter is required")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "Vehicle not found")
		default:
			slog.ErrorContext(r.Context(), "resolution failed", "slug", identifier, "error", err)
			writeError(w, http.StatusInternalServerError, "resolution failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		Success: true,
		Data:    resolution.Vehicle,
		Meta: resolveMeta{
			CurrentSlug:      resolution.Vehicle.Slug.Current,
			IsHistoricalSlug: resolution.IsRedirect,
			Redirect:         resolution.IsRedirect,
		},
	})
}
