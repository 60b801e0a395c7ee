package personnel

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	httpauth "github.com/citypd/platform/internal/shared/auth"
	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the personnel module
type Handler struct {
	directory *Directory
}

// NewHandler creates a new personnel handler
func NewHandler(directory *Directory) *Handler {
	return &Handler{directory: directory}
}

// Routes registers the personnel routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/me", h.GetMe)
	r.Get("/roles", h.ListRoles)
	r.Put("/users/{userID}/roles", h.SetRoles)

	return r
}

// GetMe returns the caller's principal, effective actions and rank
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := httpauth.GetPrincipal(r.Context())
	if !ok {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, h.directory.Profile(principal))
}

// ListRoles lists the role table
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := httpauth.GetPrincipal(r.Context()); !ok {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": h.directory.Roles()})
}

// SetRoles replaces a user's role set
func (h *Handler) SetRoles(w http.ResponseWriter, r *http.Request) {
	principal, ok := httpauth.GetPrincipal(r.Context())
	if !ok {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid user ID"))
		return
	}

	var req SetRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	user, err := h.directory.SetRoles(r.Context(), principal, id, req.Roles)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
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
