package notifications

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hrops/casetrack/internal/pkg/httputil"
)

const defaultListLimit = 50

// Handler handles HTTP requests for the notifications module.
type Handler struct {
	repo Repository
}

// NewHandler creates a new notifications handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers notification routes (require auth).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.List)
}

// NotificationView is the API shape of one queued notification.
type NotificationView struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	Link      string     `json:"link,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// List handles GET /notifications for the authenticated user.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.ActorFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			httputil.Error(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	items, err := h.repo.ListForRecipient(r.Context(), actor.ID, limit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	views := make([]NotificationView, 0, len(items))
	for _, item := range items {
		views = append(views, NotificationView{
			ID:        item.ID,
			Kind:      item.Kind,
			Subject:   item.Subject,
			Body:      item.Body,
			Link:      item.Link,
			Status:    string(item.Status),
			CreatedAt: item.CreatedAt,
			SentAt:    item.SentAt,
		})
	}

	httputil.Success(w, http.StatusOK, views)
}
