package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/frahmantamala/workspace-management/pkg/logger"
)

// Recovery converts a handler panic into a 500 without taking the process
// down. The panic value and stack stay in the log; the response body never
// carries them. The context logger already holds the trace id, so the
// entry can be correlated with the request that blew up.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.From(r.Context()).Error("panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, `{"error":"internal server error"}`)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
