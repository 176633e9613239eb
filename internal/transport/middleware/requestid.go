package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/workspace-management/pkg/logger"
)

const traceHeader = "X-Trace-ID"

// RequestID tags the request with a trace id, honoring one supplied by the
// caller, and threads a logger carrying it through the context so every
// log line downstream can be correlated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "trace_id", traceID)
		w.Header().Set(traceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
