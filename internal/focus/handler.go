package focus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/workspace-management/internal/auth"
	"github.com/frahmantamala/workspace-management/internal/transport"
	"github.com/frahmantamala/workspace-management/pkg/logger"
)

// PreferenceReader supplies the caller's selection state so the list can
// be ordered. Satisfied by preference.Service.
type PreferenceReader interface {
	Current(ctx context.Context, userID int64) (string, error)
	FavoriteIDs(ctx context.Context, userID int64) (map[string]bool, error)
}

type Handler struct {
	*transport.BaseHandler
	Service     *Service
	Preferences PreferenceReader
}

func NewHandler(svc *Service, prefs PreferenceReader) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Preferences: prefs,
	}
}

// ListFocuses handles GET /focuses
func (h *Handler) ListFocuses(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	opts := ListOptions{}
	if current, err := h.Preferences.Current(r.Context(), principal.ID); err == nil {
		opts.CurrentFocusID = current
	} else {
		h.Logger.Warn("could not load current selection for ordering", "error", err, "user_id", principal.ID)
	}
	if favorites, err := h.Preferences.FavoriteIDs(r.Context(), principal.ID); err == nil {
		opts.FavoriteIDs = favorites
	} else {
		h.Logger.Warn("could not load favorites for ordering", "error", err, "user_id", principal.ID)
	}

	focuses, err := h.Service.List(r.Context(), principal.Role, opts)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"focuses": focuses})
}

// GetFocus handles GET /focuses/{id}
func (h *Handler) GetFocus(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	f, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}
	if !f.VisibleTo(principal.Role) {
		// hidden, not forbidden: don't leak which ids exist
		h.WriteError(w, http.StatusNotFound, "focus not found")
		return
	}

	h.WriteJSON(w, http.StatusOK, f)
}

// CreateFocus handles POST /focuses (admin)
func (h *Handler) CreateFocus(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateFocusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.Service.Create(r.Context(), dto, principal.Role, principal.ID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, f)
}

// UpdateFocus handles PATCH /focuses/{id} (admin)
func (h *Handler) UpdateFocus(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto UpdateFocusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), dto, principal.Role, principal.ID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, f)
}

// DeleteFocus handles DELETE /focuses/{id} (admin)
func (h *Handler) DeleteFocus(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id"), principal.Role, principal.ID); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
