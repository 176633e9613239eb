package workspace

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/workspace-management/internal/auth"
	"github.com/frahmantamala/workspace-management/internal/transport"
	"github.com/frahmantamala/workspace-management/pkg/logger"
)

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

type saveSnapshotRequest struct {
	Snapshot *Snapshot `json:"snapshot"`
	// BaseUpdatedAt is the updated_at observed on the last load; a newer
	// stored write rejects the save.
	BaseUpdatedAt time.Time `json:"base_updated_at"`
}

// LoadFocusSnapshot handles GET /workspace/focuses/{id}/snapshot
func (h *Handler) LoadFocusSnapshot(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.Service.LoadFocus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// SaveFocusSnapshot handles PUT /workspace/focuses/{id}/snapshot. The
// shared layout on a focus is admin-maintained; per-user tweaks go through
// the preference custom layout instead.
func (h *Handler) SaveFocusSnapshot(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !principal.IsAdmin() {
		h.WriteError(w, http.StatusForbidden, "insufficient role for this operation")
		return
	}

	var req saveSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	focusID := chi.URLParam(r, "id")
	if err := h.Service.SaveFocus(r.Context(), focusID, req.Snapshot, req.BaseUpdatedAt, principal.ID); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LoadLocalSnapshot handles GET /workspace/local
func (h *Handler) LoadLocalSnapshot(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.Service.LoadLocal(r.Context(), localKey(principal.ID))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// SaveLocalSnapshot handles PUT /workspace/local
func (h *Handler) SaveLocalSnapshot(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req saveSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.SaveLocal(r.Context(), localKey(principal.ID), req.Snapshot, req.BaseUpdatedAt, principal.ID); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func localKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}
