package identity

import (
	"log/slog"
	"net/http"

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

// ListMappings handles GET /users/mappings (admin)
func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	mappings, err := h.Service.ListMappings(r.Context(), principal.Role)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"mappings": mappings})
}
