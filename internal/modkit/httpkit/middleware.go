package httpkit

import (
	"net/http"
	"time"

	"matchbook/internal/platform/net/middleware"
)

// CommonStack returns a baseline per scope middleware slice
// compose with extra middleware as needed in main
func CommonStack(corsOrigins string, slow time.Duration) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		// tracing / correlation
		middleware.RequestID,

		// safety
		middleware.RecoverJSON,

		// observability
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: slow}),

		// cross-origin
		middleware.CORS(corsOrigins),
	}
}
