package notification

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	httpauth "github.com/citypd/platform/internal/shared/auth"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the caller's notification inbox
type Handler struct {
	service *Service
}

// NewHandler creates a new notification handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the notification routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListNotifications)
	r.Post("/{notificationID}/read", h.MarkAsRead)

	return r
}

// ListNotifications lists the caller's notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	principal, ok := httpauth.GetPrincipal(r.Context())
	if !ok {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	filter := ListFilter{
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if limit, err := strconv.Atoi(l); err == nil {
			filter.Limit = limit
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if offset, err := strconv.Atoi(o); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	items, total, err := h.service.List(r.Context(), principal.ID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"total": total,
	})
}

// MarkAsRead marks one notification as read
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := httpauth.GetPrincipal(r.Context())
	if !ok {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "notificationID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid notification ID"))
		return
	}

	n, err := h.service.MarkAsRead(r.Context(), principal.ID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, n)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := errors.As(err); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
