package rest

import (
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/workspace-management/internal/auth"
	"github.com/frahmantamala/workspace-management/internal/focus"
	"github.com/frahmantamala/workspace-management/internal/identity"
	"github.com/frahmantamala/workspace-management/internal/preference"
	"github.com/frahmantamala/workspace-management/internal/transport/middleware"
	"github.com/frahmantamala/workspace-management/internal/transport/swagger"
	"github.com/frahmantamala/workspace-management/internal/user"
	"github.com/frahmantamala/workspace-management/internal/workspace"
)

func RegisterAllRoutes(
	router *chi.Mux,
	checks map[string]Pinger,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	identityHandler *identity.Handler,
	focusHandler *focus.Handler,
	preferenceHandler *preference.Handler,
	workspaceHandler *workspace.Handler,
) {
	healthHandler := NewHealthHandler(checks)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery)

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/request-code", authHandler.RequestCode)
				sr.Post("/verify", authHandler.Verify)
				sr.Post("/refresh", authHandler.RefreshToken)
				sr.Post("/logout", authHandler.Logout)
			})
		}

		if authHandler != nil {
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				if userHandler != nil {
					pr.Get("/users/me", userHandler.GetCurrentUser)

					pr.Group(func(ar chi.Router) {
						ar.Use(middleware.RequireAdmin())
						ar.Get("/users", userHandler.ListUsers)
						ar.Patch("/users/{id}/role", userHandler.ChangeRole)
						ar.Delete("/users/{id}", userHandler.DeactivateUser)
						if identityHandler != nil {
							ar.Get("/users/mappings", identityHandler.ListMappings)
						}
					})
				}

				if focusHandler != nil {
					pr.Route("/focuses", func(fr chi.Router) {
						fr.Get("/", focusHandler.ListFocuses)
						fr.Get("/{id}", focusHandler.GetFocus)

						fr.Group(func(ar chi.Router) {
							ar.Use(middleware.RequireAdmin())
							ar.Post("/", focusHandler.CreateFocus)
							ar.Patch("/{id}", focusHandler.UpdateFocus)
							ar.Delete("/{id}", focusHandler.DeleteFocus)
						})
					})
				}

				if preferenceHandler != nil {
					pr.Route("/preferences", func(prr chi.Router) {
						prr.Get("/", preferenceHandler.GetPreferences)
						prr.Post("/favorites/{focusID}", preferenceHandler.ToggleFavorite)
						prr.Get("/selection", preferenceHandler.GetSelection)
						prr.Put("/selection", preferenceHandler.SetSelection)
						prr.Put("/custom-layout/{focusID}", preferenceHandler.SaveCustomLayout)
					})
				}

				if workspaceHandler != nil {
					pr.Route("/workspace", func(wr chi.Router) {
						wr.Get("/focuses/{id}/snapshot", workspaceHandler.LoadFocusSnapshot)
						wr.Put("/focuses/{id}/snapshot", workspaceHandler.SaveFocusSnapshot)
						wr.Get("/local", workspaceHandler.LoadLocalSnapshot)
						wr.Put("/local", workspaceHandler.SaveLocalSnapshot)
					})
				}
			})
		}
	})
}
