package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/platform/logger"
)

// TraceMiddleware adds a trace ID to the request context and stashes a
// request-scoped logger carrying it, so all downstream log lines correlate.
// Apply it early in the chain.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())
		traceID := shared.GetTraceID(ctx)

		reqLogger := slog.Default().With(slog.String("trace_id", traceID))
		ctx = logger.WithLogger(ctx, reqLogger)

		reqLogger.Debug("request started",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
