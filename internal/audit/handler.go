package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hrops/casetrack/internal/pkg/httputil"
)

const defaultListLimit = 100

// Lister reads back persisted audit entries.
type Lister interface {
	List(ctx context.Context, limit int) ([]*Entry, error)
}

// Handler serves the audit trail.
type Handler struct {
	lister Lister
}

// NewHandler creates a new audit handler.
func NewHandler(lister Lister) *Handler {
	return &Handler{lister: lister}
}

// RegisterRoutes registers the audit routes (require an elevated role).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/audit", h.List)
}

// List handles GET /audit, newest entries first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			httputil.Error(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	entries, err := h.lister.List(r.Context(), limit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, entries)
}
