package preference

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/workspace-management/internal/auth"
	"github.com/frahmantamala/workspace-management/internal/transport"
	"github.com/frahmantamala/workspace-management/pkg/logger"
)

const maxCustomLayoutBytes = 1 << 20

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// GetPreferences handles GET /preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	prefs, err := h.Service.GetAllForUser(r.Context(), principal.ID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"preferences": prefs})
}

// ToggleFavorite handles POST /preferences/favorites/{focusID}
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	pref, err := h.Service.ToggleFavorite(r.Context(), principal.ID, chi.URLParam(r, "focusID"))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, pref)
}

type selectionRequest struct {
	FocusID string `json:"focus_id"`
}

// SetSelection handles PUT /preferences/selection. An empty focus_id
// clears the selection.
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.Select(r.Context(), principal.ID, req.FocusID); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, selectionRequest{FocusID: req.FocusID})
}

// GetSelection handles GET /preferences/selection
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	current, err := h.Service.Current(r.Context(), principal.ID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, selectionRequest{FocusID: current})
}

// SaveCustomLayout handles PUT /preferences/custom-layout/{focusID}. The
// body is the user's private layout override for that focus, stored as-is.
func (h *Handler) SaveCustomLayout(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCustomLayoutBytes))
	if err != nil || !json.Valid(body) {
		h.WriteError(w, http.StatusBadRequest, "body must be a JSON document")
		return
	}

	if err := h.Service.SaveCustomLayout(r.Context(), principal.ID, chi.URLParam(r, "focusID"), body); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
